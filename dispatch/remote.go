package dispatch

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/gadget-bot/amedos/radar"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultStage = "dev"
	DefaultQueue = "default"
)

// TaskName addresses the backend: "<service>-<stage>-backend".
func TaskName(service, stage string) string {
	if stage == "" {
		stage = DefaultStage
	}
	return fmt.Sprintf("%s-%s-backend", service, stage)
}

// RedisConnOpt turns a redis:// or rediss:// URL into asynq connection options.
func RedisConnOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		tlsConfig = opt.TLSConfig.Clone()
		if tlsInsecure {
			tlsConfig.InsecureSkipVerify = true
		}
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

// NewTask wraps an encoded payload in an asynq task for the given task name.
func NewTask(taskName string, payload radar.Payload) (*asynq.Task, error) {
	data, err := radar.EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskName, data), nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Remote submits payloads to the asynq queue the worker consumes.
type Remote struct {
	client   enqueuer
	taskName string
	queue    string
	metrics  *radar.Metrics
}

func NewRemote(opt asynq.RedisConnOpt, taskName, queue string, metrics *radar.Metrics) *Remote {
	return newRemote(asynq.NewClient(opt), taskName, queue, metrics)
}

func newRemote(client enqueuer, taskName, queue string, metrics *radar.Metrics) *Remote {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Remote{client: client, taskName: taskName, queue: queue, metrics: metrics}
}

func (d *Remote) Mode() string { return ModeRemote }

func (d *Remote) TaskName() string { return d.taskName }

// Submit returns as soon as the task is stored; it does not wait for the worker.
func (d *Remote) Submit(ctx context.Context, payload radar.Payload) error {
	task, err := NewTask(d.taskName, payload)
	if err != nil {
		d.metrics.ObserveDispatch(ModeRemote, err)
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task,
		asynq.Queue(d.queue),
		asynq.MaxRetry(0),
		asynq.TaskID(uuid.NewString()),
	)
	d.metrics.ObserveDispatch(ModeRemote, err)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", d.taskName, err)
	}

	log.Debug().Str("task", info.ID).Str("type", info.Type).Str("queue", info.Queue).Object("payload", payload).Msg("Enqueued operation")
	return nil
}

func (d *Remote) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}
