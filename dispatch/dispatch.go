// Package dispatch hands operation payloads from the slash-command frontend
// to the fetch-and-upload backend, either in-process or through a task queue.
package dispatch

import (
	"context"

	"github.com/gadget-bot/amedos/radar"
	"github.com/rs/zerolog/log"
)

const (
	ModeInline = "inline"
	ModeRemote = "remote"
)

// Dispatcher submits a payload for execution. A nil error only means the
// submission was accepted; the outcome of the operation is never reported back.
type Dispatcher interface {
	Submit(ctx context.Context, payload radar.Payload) error
	Mode() string
}

// Runner executes a payload. *radar.Operation implements it.
type Runner interface {
	Run(ctx context.Context, payload radar.Payload) radar.Result
}

// Inline runs the operation in the calling goroutine. Callers are expected to
// already be off the acknowledgment path.
type Inline struct {
	runner  Runner
	metrics *radar.Metrics
}

func NewInline(runner Runner, metrics *radar.Metrics) *Inline {
	return &Inline{runner: runner, metrics: metrics}
}

func (d *Inline) Mode() string { return ModeInline }

func (d *Inline) Submit(ctx context.Context, payload radar.Payload) error {
	d.metrics.ObserveDispatch(ModeInline, nil)
	// The operation must not be canceled along with the request that triggered it.
	result := d.runner.Run(context.WithoutCancel(ctx), payload)
	logResult(payload, result)
	return nil
}

func logResult(payload radar.Payload, result radar.Result) {
	event := log.Info()
	if !result.OK() {
		event = log.Warn().Err(result.Err)
	}
	event.Object("payload", payload).Str("outcome", string(result.Outcome)).Msg("Operation finished")
}
