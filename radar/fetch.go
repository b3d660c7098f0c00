package radar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Fetcher retrieves the raw image bytes for a map request.
type Fetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// FetchError describes a failed image request. Its JSON form is what users
// see, so it never includes the request URL (the URL carries the API client id).
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return "image request failed: " + e.Status
	}
	return "image request failed: " + e.cause()
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) cause() string {
	if e.Err == nil {
		return "unknown error"
	}
	var urlErr *url.Error
	if errors.As(e.Err, &urlErr) {
		return urlErr.Op + ": " + urlErr.Err.Error()
	}
	return e.Err.Error()
}

func (e *FetchError) MarshalJSON() ([]byte, error) {
	out := struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode,omitempty"`
	}{
		Name:       "FetchError",
		Message:    e.Error(),
		StatusCode: e.StatusCode,
	}
	return json.Marshal(out)
}

// HTTPFetcher issues a plain GET and returns the body as-is.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

func (f HTTPFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: imageURL, Err: err}
	}
	req.Header.Set("Accept", ImageContentType)
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: imageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: imageURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: imageURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// serializeError renders err as JSON for failure notices.
func serializeError(err error) string {
	var fetchErr *FetchError
	var data []byte
	var marshalErr error
	if errors.As(err, &fetchErr) {
		data, marshalErr = json.Marshal(fetchErr)
	} else {
		data, marshalErr = json.Marshal(struct {
			Message string `json:"message"`
		}{err.Error()})
	}
	if marshalErr != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return string(data)
}
