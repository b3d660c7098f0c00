package radar

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

// Outcome classifies how a single operation ended.
type Outcome string

const (
	OutcomeUploaded       Outcome = "uploaded"
	OutcomeFetchFailed    Outcome = "fetch_failed"
	OutcomeUploadFailed   Outcome = "upload_failed"
	OutcomeNotifyFailed   Outcome = "notify_failed"
	OutcomeInvalidPayload Outcome = "invalid_payload"
)

// Result is returned instead of an error: every failure has already been
// handled (notified or logged) by the time Run returns.
type Result struct {
	Outcome Outcome
	// Err is the failure that determined Outcome. For OutcomeNotifyFailed it
	// is the notification error; the fetch error is in FetchErr.
	Err      error
	FetchErr error
	File     *slack.FileSummary
}

func (r Result) OK() bool { return r.Outcome == OutcomeUploaded }

// Operation fetches a radar image and shares it into a channel. Each call to
// Run is independent; an Operation is safe for concurrent use as long as its
// collaborators are.
type Operation struct {
	Fetcher  Fetcher
	Uploader Uploader
	Notifier Notifier
	Metrics  *Metrics
}

func NewOperation(fetcher Fetcher, uploader Uploader, notifier Notifier, metrics *Metrics) *Operation {
	return &Operation{
		Fetcher:  fetcher,
		Uploader: uploader,
		Notifier: notifier,
		Metrics:  metrics,
	}
}

// Run makes a single attempt and never retries. The payload is received by
// value; the caller's copy is left untouched.
func (op *Operation) Run(ctx context.Context, payload Payload) Result {
	result := op.run(ctx, payload)
	op.Metrics.ObserveOutcome(result.Outcome)
	return result
}

func (op *Operation) run(ctx context.Context, payload Payload) Result {
	logger := log.With().Object("payload", payload).Logger()

	if err := payload.Validate(); err != nil {
		logger.Error().Err(err).Msg("Refusing to run operation")
		return Result{Outcome: OutcomeInvalidPayload, Err: err}
	}

	start := time.Now()
	image, err := op.Fetcher.Fetch(ctx, payload.ImageRequestURL)
	op.Metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return op.notifyFetchFailure(ctx, payload, err)
	}
	payload.ImageBytes = image

	file, err := op.Uploader.Upload(ctx, Upload{
		Token:     payload.AuthToken,
		ChannelID: payload.ChannelID,
		Filename:  payload.Filename(),
		FileType:  ImageContentType,
		Title:     payload.Title(),
		Content:   payload.ImageBytes,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to upload radar image")
		return Result{Outcome: OutcomeUploadFailed, Err: err}
	}

	event := logger.Info()
	if file != nil {
		event = event.Str("file", file.ID)
	}
	event.Msg("Uploaded radar image")
	return Result{Outcome: OutcomeUploaded, File: file}
}

func (op *Operation) notifyFetchFailure(ctx context.Context, payload Payload, fetchErr error) Result {
	serialized := serializeError(fetchErr)
	log.Error().Object("payload", payload).Str("error", serialized).Msg("Failed to fetch radar image")

	err := op.Notifier.Notify(ctx, payload.ResponseDestination, "Failed to post an image file - "+serialized)
	if err != nil {
		log.Error().Err(err).Object("payload", payload).Msg("Failed to deliver failure notice")
		return Result{Outcome: OutcomeNotifyFailed, Err: err, FetchErr: fetchErr}
	}
	return Result{Outcome: OutcomeFetchFailed, Err: fetchErr, FetchErr: fetchErr}
}
