package amedos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gadget-bot/amedos/radar"
	"github.com/gadget-bot/amedos/router"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	payloads []radar.Payload
	err      error
}

func (d *fakeDispatcher) Submit(ctx context.Context, payload radar.Payload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, payload)
	return d.err
}

func (d *fakeDispatcher) Mode() string { return "fake" }

// 2024-07-01 03:05 UTC is 12:05 in Tokyo.
var fixedNow = time.Date(2024, 7, 1, 3, 5, 0, 0, time.UTC)

func newTestHandler(d *fakeDispatcher) *Handler {
	h := NewHandler(radar.ImageURLOptions{AppID: "client-id"}, d)
	h.Now = func() time.Time { return fixedNow }
	return h
}

func testCommand(text string) Command {
	return Command{
		Text:        text,
		Token:       "xoxb-fake",
		ChannelID:   "C123",
		ResponseURL: "https://hooks.slack.com/commands/T1/2/abc",
	}
}

func TestHandle_ResolvesFirstToken(t *testing.T) {
	d := &fakeDispatcher{}

	payload, err := newTestHandler(d).Handle(context.Background(), testCommand("osaka 400x300"))

	require.NoError(t, err)
	require.Len(t, d.payloads, 1)
	assert.Equal(t, payload, d.payloads[0])
	assert.Equal(t, "osaka", payload.RegionKey)
	assert.Equal(t, "大阪府", payload.RegionDisplayName)
	assert.Equal(t, "xoxb-fake", payload.AuthToken)
	assert.Equal(t, "C123", payload.ChannelID)
	assert.Equal(t, "https://hooks.slack.com/commands/T1/2/abc", payload.ResponseDestination)
	assert.Nil(t, payload.ImageBytes)
	assert.Equal(t,
		"https://map.yahooapis.jp/map/V1/static?appid=client-id&z=10&lat=34.68639&lon=135.52&width=400&height=300&mode=map&overlay=type%3Arainfall%7Cdatelabel%3Aon%7Cdate%3A202407011205",
		payload.ImageRequestURL)
}

func TestHandle_EmptyTextUsesDefault(t *testing.T) {
	d := &fakeDispatcher{}

	payload, err := newTestHandler(d).Handle(context.Background(), testCommand(""))

	require.NoError(t, err)
	assert.Equal(t, "tokyo", payload.RegionKey)
	assert.Equal(t, "東京都", payload.RegionDisplayName)
	assert.Contains(t, payload.ImageRequestURL, "lat=35.68944&lon=139.69167")
}

func TestHandle_NeoTokioMatchesTokyo(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	neo := h.Payload(testCommand("neo tokio"))
	tokyo := h.Payload(testCommand("tokyo"))

	assert.Equal(t, tokyo, neo)
}

func TestHandle_CaseAndWhitespace(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	payload := h.Payload(testCommand("  OSAKA\tplease "))

	assert.Equal(t, "osaka", payload.RegionKey)
	assert.Equal(t, "大阪府", payload.RegionDisplayName)
}

func TestHandle_AliasKeepsTypedKey(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	payload := h.Payload(testCommand("oosaka"))

	assert.Equal(t, "oosaka", payload.RegionKey)
	assert.Equal(t, "大阪府", payload.RegionDisplayName)
	assert.Equal(t, h.Payload(testCommand("osaka")).ImageRequestURL, payload.ImageRequestURL)
}

func TestHandle_UnknownRegionFallsBack(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	payload := h.Payload(testCommand("atlantis"))

	assert.Equal(t, "tokyo", payload.RegionKey)
	assert.Equal(t, "東京都", payload.RegionDisplayName)
}

func TestHandle_DispatchErrorIsReturned(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("redis down")}

	payload, err := newTestHandler(d).Handle(context.Background(), testCommand("osaka"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.Equal(t, "osaka", payload.RegionKey)
}

func TestHandle_InvalidCommandIsNotDispatched(t *testing.T) {
	d := &fakeDispatcher{}
	cmd := testCommand("osaka")
	cmd.ResponseURL = ""

	_, err := newTestHandler(d).Handle(context.Background(), cmd)

	assert.ErrorIs(t, err, radar.ErrInvalidPayload)
	assert.Empty(t, d.payloads)
}

func TestGetSlashCommandRoute_Metadata(t *testing.T) {
	route := GetSlashCommandRoute("", "xoxb-fake", newTestHandler(&fakeDispatcher{}))

	assert.Equal(t, "amedos.radar", route.Name)
	assert.Equal(t, "/amedos", route.Command)
	assert.Empty(t, route.ImmediateResponse)

	route = GetSlashCommandRoute("/weather", "xoxb-fake", newTestHandler(&fakeDispatcher{}))
	assert.Equal(t, "/weather", route.Command)
}

func TestGetSlashCommandRoute_SubmitsWithBotToken(t *testing.T) {
	d := &fakeDispatcher{}
	route := GetSlashCommandRoute("amedos", "xoxb-bot", newTestHandler(d))

	route.Execute(router.Router{}, slack.Client{}, slack.SlashCommand{
		Command:     "/amedos",
		Text:        "kyoto",
		ChannelID:   "C999",
		ResponseURL: "https://hooks.slack.com/commands/T1/2/xyz",
		Token:       "verification-token",
	})

	require.Len(t, d.payloads, 1)
	assert.Equal(t, "xoxb-bot", d.payloads[0].AuthToken)
	assert.Equal(t, "kyoto", d.payloads[0].RegionKey)
	assert.Equal(t, "京都府", d.payloads[0].RegionDisplayName)
	assert.Equal(t, "C999", d.payloads[0].ChannelID)
}

func TestPrefectureListing(t *testing.T) {
	listing := PrefectureListing()
	lines := strings.Split(strings.TrimSpace(listing), "\n")

	assert.Len(t, lines, 47)
	assert.Equal(t, "`hokkaido` 北海道", lines[0])
	assert.Contains(t, listing, "`osaka` 大阪府\n")
	assert.Equal(t, "`okinawa` 沖縄県", lines[46])
}

func TestListPrefectures_Route(t *testing.T) {
	routes := GetMentionRoutes()
	require.Len(t, routes, 1)
	route := routes[0]

	r := router.NewRouter()
	r.AddMentionRoutes(routes)
	found, ok := r.FindMentionRouteByMessage("prefectures")
	assert.True(t, ok)
	assert.Equal(t, "amedos.listPrefectures", found.Name)
	_, ok = r.FindMentionRouteByMessage("osaka")
	assert.False(t, ok)

	var posted string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		posted = r.PostForm.Get("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1.2"}`))
	}))
	t.Cleanup(ts.Close)
	api := slack.New("xoxb-fake", slack.OptionAPIURL(ts.URL+"/"))

	route.Execute(*r, *api, slackevents.AppMentionEvent{User: "U1", Channel: "C123"}, "prefectures")

	assert.Contains(t, posted, "<@U1>")
	assert.Contains(t, posted, "`tokyo` 東京都")
}
