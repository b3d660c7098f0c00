package radar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"

	"github.com/slack-go/slack"
)

// Upload is a single file destined for a channel.
type Upload struct {
	Token     string
	ChannelID string
	Filename  string
	FileType  string
	Title     string
	Content   []byte
}

// Uploader shares a file into a channel.
type Uploader interface {
	Upload(ctx context.Context, upload Upload) (*slack.FileSummary, error)
}

// Notifier posts a text message to a response URL.
type Notifier interface {
	Notify(ctx context.Context, destination, text string) error
}

// SlackUploader uploads through the Slack Web API using the token carried by
// each upload, so one uploader can serve payloads from any workspace.
type SlackUploader struct {
	Options []slack.Option
}

func (u SlackUploader) Upload(ctx context.Context, upload Upload) (*slack.FileSummary, error) {
	if len(upload.Content) == 0 {
		return nil, errors.New("upload: empty file")
	}
	// files.getUploadURLExternal has no file type field; Slack derives it from the extension.
	if upload.FileType != "" {
		if byExt := mime.TypeByExtension(path.Ext(upload.Filename)); byExt != upload.FileType {
			return nil, fmt.Errorf("upload: filename %q does not match file type %s", upload.Filename, upload.FileType)
		}
	}

	api := slack.New(upload.Token, u.Options...)
	file, err := api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:   bytes.NewReader(upload.Content),
		FileSize: len(upload.Content),
		Filename: upload.Filename,
		Title:    upload.Title,
		AltTxt:   upload.Title,
		Channel:  upload.ChannelID,
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s to %s: %w", upload.Filename, upload.ChannelID, err)
	}
	return file, nil
}

// WebhookNotifier posts to a slash command's response URL.
type WebhookNotifier struct {
	Client *http.Client
}

func (n WebhookNotifier) Notify(ctx context.Context, destination, text string) error {
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, destination, client, &slack.WebhookMessage{Text: text}); err != nil {
		return fmt.Errorf("notify response url: %w", err)
	}
	return nil
}
