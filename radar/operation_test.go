package radar

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	image []byte
	err   error
	urls  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	f.urls = append(f.urls, imageURL)
	return f.image, f.err
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []Upload
	err     error
}

func (u *fakeUploader) Upload(ctx context.Context, upload Upload) (*slack.FileSummary, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads = append(u.uploads, upload)
	if u.err != nil {
		return nil, u.err
	}
	return &slack.FileSummary{ID: "F123", Title: upload.Title}, nil
}

type notice struct {
	destination string
	text        string
}

type fakeNotifier struct {
	notices []notice
	err     error
}

func (n *fakeNotifier) Notify(ctx context.Context, destination, text string) error {
	n.notices = append(n.notices, notice{destination, text})
	return n.err
}

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestOperationRun_UploadsFetchedImage(t *testing.T) {
	image := []byte("\x89PNG radar")
	fetcher := &fakeFetcher{image: image}
	uploader := &fakeUploader{}
	notifier := &fakeNotifier{}
	metrics := newTestMetrics(t)
	op := NewOperation(fetcher, uploader, notifier, metrics)

	payload := validPayload()
	result := op.Run(context.Background(), payload)

	assert.True(t, result.OK())
	assert.Equal(t, OutcomeUploaded, result.Outcome)
	assert.NoError(t, result.Err)
	assert.Equal(t, "F123", result.File.ID)

	assert.Equal(t, []string{payload.ImageRequestURL}, fetcher.urls)
	require.Len(t, uploader.uploads, 1)
	up := uploader.uploads[0]
	assert.Equal(t, image, up.Content)
	assert.Equal(t, "C123", up.ChannelID)
	assert.Equal(t, "xoxb-fake", up.Token)
	assert.Equal(t, "amedos_osaka.png", up.Filename)
	assert.Equal(t, "image/png", up.FileType)
	assert.Equal(t, "大阪府付近の現在の雨雲レーダーを表示しています", up.Title)
	assert.Empty(t, notifier.notices)

	assert.Nil(t, payload.ImageBytes, "caller's payload must not be modified")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues("uploaded")))
	var fetchSample dto.Metric
	require.NoError(t, metrics.FetchDuration.Write(&fetchSample))
	assert.Equal(t, uint64(1), fetchSample.GetHistogram().GetSampleCount())
}

func TestOperationRun_FetchFailureNotifies(t *testing.T) {
	fetchErr := &FetchError{URL: "https://map.example/static?appid=secret", StatusCode: 503, Status: "503 Service Unavailable"}
	uploader := &fakeUploader{}
	notifier := &fakeNotifier{}
	metrics := newTestMetrics(t)
	op := NewOperation(&fakeFetcher{err: fetchErr}, uploader, notifier, metrics)

	result := op.Run(context.Background(), validPayload())

	assert.Equal(t, OutcomeFetchFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, fetchErr)
	assert.Empty(t, uploader.uploads)

	require.Len(t, notifier.notices, 1)
	n := notifier.notices[0]
	assert.Equal(t, "https://hooks.slack.com/commands/T1/2/abc", n.destination)
	assert.Equal(t, `Failed to post an image file - {"name":"FetchError","message":"image request failed: 503 Service Unavailable","statusCode":503}`, n.text)
	assert.NotContains(t, n.text, "secret")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues("fetch_failed")))
}

func TestOperationRun_FetchFailureWithPlainError(t *testing.T) {
	notifier := &fakeNotifier{}
	op := NewOperation(&fakeFetcher{err: errors.New("connection reset")}, &fakeUploader{}, notifier, nil)

	result := op.Run(context.Background(), validPayload())

	assert.Equal(t, OutcomeFetchFailed, result.Outcome)
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, `Failed to post an image file - {"message":"connection reset"}`, notifier.notices[0].text)
}

func TestOperationRun_UploadFailureIsOnlyLogged(t *testing.T) {
	var buf bytes.Buffer
	origLogger := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = origLogger }()

	uploadErr := errors.New("not_in_channel")
	notifier := &fakeNotifier{}
	op := NewOperation(&fakeFetcher{image: []byte("png")}, &fakeUploader{err: uploadErr}, notifier, nil)

	var result Result
	assert.NotPanics(t, func() {
		result = op.Run(context.Background(), validPayload())
	})

	assert.Equal(t, OutcomeUploadFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, uploadErr)
	assert.Empty(t, notifier.notices)
	assert.Contains(t, buf.String(), "Failed to upload radar image")
	assert.Contains(t, buf.String(), "not_in_channel")
	assert.NotContains(t, buf.String(), "xoxb-fake")
}

func TestOperationRun_NotifyFailureIsOnlyLogged(t *testing.T) {
	var buf bytes.Buffer
	origLogger := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = origLogger }()

	fetchErr := errors.New("dial tcp: no route to host")
	notifyErr := errors.New("expired_url")
	metrics := newTestMetrics(t)
	op := NewOperation(&fakeFetcher{err: fetchErr}, &fakeUploader{}, &fakeNotifier{err: notifyErr}, metrics)

	result := op.Run(context.Background(), validPayload())

	assert.Equal(t, OutcomeNotifyFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, notifyErr)
	assert.ErrorIs(t, result.FetchErr, fetchErr)
	assert.Contains(t, buf.String(), "Failed to deliver failure notice")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues("notify_failed")))
}

func TestOperationRun_InvalidPayload(t *testing.T) {
	fetcher := &fakeFetcher{image: []byte("png")}
	op := NewOperation(fetcher, &fakeUploader{}, &fakeNotifier{}, nil)

	result := op.Run(context.Background(), Payload{RegionKey: "osaka"})

	assert.Equal(t, OutcomeInvalidPayload, result.Outcome)
	assert.ErrorIs(t, result.Err, ErrInvalidPayload)
	assert.Empty(t, fetcher.urls)
}
