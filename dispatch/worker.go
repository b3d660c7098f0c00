package dispatch

import (
	"context"
	"fmt"

	"github.com/gadget-bot/amedos/radar"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultConcurrency = 10

type WorkerConfig struct {
	TaskName    string
	Queue       string
	Concurrency int
}

// Worker is the remote backend. It consumes tasks enqueued by Remote and runs
// each one through the operation exactly once.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	runner   Runner
	taskName string
}

func NewWorker(opt asynq.RedisConnOpt, cfg WorkerConfig, runner Runner) *Worker {
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		Logger:   asynqLogger{log.Logger.With().Str("component", "worker").Logger()},
		LogLevel: asynq.WarnLevel,
	})

	w := &Worker{
		server:   server,
		mux:      asynq.NewServeMux(),
		runner:   runner,
		taskName: cfg.TaskName,
	}
	w.mux.HandleFunc(cfg.TaskName, w.ProcessTask)

	return w
}

// ProcessTask runs a single task. Operation failures are already reported to
// the user or logged, so only malformed tasks produce an error, and those are
// never retried.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := radar.DecodePayload(task.Payload())
	if err != nil {
		log.Error().Err(err).Str("type", task.Type()).Msg("Dropping undecodable task")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	result := w.runner.Run(ctx, payload)
	logResult(payload, result)
	if result.Outcome == radar.OutcomeInvalidPayload {
		return fmt.Errorf("%w: %w", result.Err, asynq.SkipRetry)
	}
	return nil
}

// Run blocks until ctx is done, then drains in-flight tasks.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	log.Info().Str("type", w.taskName).Msg("Worker started")

	<-ctx.Done()
	w.server.Shutdown()
	log.Info().Msg("Worker stopped")
	return nil
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
