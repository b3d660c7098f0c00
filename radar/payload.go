package radar

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// ImageContentType is the MIME type of every uploaded radar image.
const ImageContentType = "image/png"

var ErrInvalidPayload = errors.New("invalid operation payload")

// Payload is everything the fetch-and-upload operation needs. It must not
// reference process state since it may be executed by a different process.
type Payload struct {
	AuthToken           string `json:"authToken"`
	ImageRequestURL     string `json:"imageRequestUrl"`
	ResponseDestination string `json:"responseDestination"`
	ChannelID           string `json:"channelId"`
	RegionKey           string `json:"regionKey"`
	RegionDisplayName   string `json:"regionDisplayName"`
	// ImageBytes stays empty until the image has been fetched
	ImageBytes []byte `json:"imageBytes,omitempty"`
}

// Validate reports every missing or malformed field in one error wrapping ErrInvalidPayload.
func (p Payload) Validate() error {
	var problems []string
	if p.AuthToken == "" {
		problems = append(problems, "authToken is empty")
	}
	if err := checkHTTPURL(p.ImageRequestURL); err != nil {
		problems = append(problems, "imageRequestUrl "+err.Error())
	}
	if err := checkHTTPURL(p.ResponseDestination); err != nil {
		problems = append(problems, "responseDestination "+err.Error())
	}
	if p.ChannelID == "" {
		problems = append(problems, "channelId is empty")
	}
	if p.RegionKey == "" {
		problems = append(problems, "regionKey is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(problems, "; "))
	}
	return nil
}

func checkHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("is not a URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("is not an absolute http(s) URL")
	}
	return nil
}

// Filename is the name the image is uploaded under.
func (p Payload) Filename() string {
	return "amedos_" + p.RegionKey + ".png"
}

// Title is shown above the uploaded image.
func (p Payload) Title() string {
	return p.RegionDisplayName + "付近の現在の雨雲レーダーを表示しています"
}

// MarshalZerologObject logs the payload without the token or image URL,
// both of which carry credentials.
func (p Payload) MarshalZerologObject(e *zerolog.Event) {
	e.Str("channel", p.ChannelID).
		Str("region", p.RegionKey).
		Str("region_name", p.RegionDisplayName).
		Int("image_bytes", len(p.ImageBytes))
}

func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}
