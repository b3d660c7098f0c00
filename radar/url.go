package radar

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	// DefaultMapEndpoint is the Yahoo! JAPAN static map API
	DefaultMapEndpoint = "https://map.yahooapis.jp/map/V1/static"
	// DefaultMapMode renders the plain road map under the rainfall overlay
	DefaultMapMode = "map"

	ImageWidth  = 400
	ImageHeight = 300

	mapZoom = 10

	// The provider indexes radar snapshots by Tokyo wall-clock minute.
	radarTimestampLayout = "200601021504"
	radarTimeZone        = "Asia/Tokyo"
)

var tokyo = mustLoadLocation(radarTimeZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// ImageURLOptions holds the provider settings that do not change per request.
type ImageURLOptions struct {
	Endpoint string
	AppID    string
	Mode     string
}

// Now returns the current time in the radar's time zone.
func Now() time.Time {
	return time.Now().In(tokyo)
}

// FormatRadarTimestamp renders t as YYYYMMDDHHmm in Asia/Tokyo regardless of t's location.
func FormatRadarTimestamp(t time.Time) string {
	return t.In(tokyo).Format(radarTimestampLayout)
}

// BuildImageURL composes the static map request. Parameters are always
// written in the same order so identical input yields an identical URL.
func BuildImageURL(opts ImageURLOptions, lat, lon float64, width, height int, t time.Time) string {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultMapEndpoint
	}
	mode := opts.Mode
	if mode == "" {
		mode = DefaultMapMode
	}

	params := [][2]string{
		{"appid", opts.AppID},
		{"z", strconv.Itoa(mapZoom)},
		{"lat", strconv.FormatFloat(lat, 'f', -1, 64)},
		{"lon", strconv.FormatFloat(lon, 'f', -1, 64)},
		{"width", strconv.Itoa(width)},
		{"height", strconv.Itoa(height)},
		{"mode", mode},
		{"overlay", "type:rainfall|datelabel:on|date:" + FormatRadarTimestamp(t)},
	}

	var b strings.Builder
	b.WriteString(endpoint)
	if strings.Contains(endpoint, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}
