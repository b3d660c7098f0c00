package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gadget-bot/amedos/radar"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingEnqueuer struct {
	tasks  []*asynq.Task
	opts   [][]asynq.Option
	err    error
	closed bool
}

func (e *capturingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	e.opts = append(e.opts, opts)
	return &asynq.TaskInfo{ID: "t1", Queue: "default", Type: task.Type()}, nil
}

func (e *capturingEnqueuer) Close() error {
	e.closed = true
	return nil
}

func TestRemote_SubmitEnqueuesEncodedPayload(t *testing.T) {
	enq := &capturingEnqueuer{}
	metrics := newTestMetrics(t)
	d := newRemote(enq, TaskName("amedos", "dev"), "", metrics)

	require.NoError(t, d.Submit(context.Background(), testPayload()))

	assert.Equal(t, ModeRemote, d.Mode())
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, "amedos-dev-backend", enq.tasks[0].Type())

	decoded, err := radar.DecodePayload(enq.tasks[0].Payload())
	require.NoError(t, err)
	assert.Equal(t, testPayload(), decoded)

	var queue string
	var maxRetry = -1
	for _, opt := range enq.opts[0] {
		switch opt.Type() {
		case asynq.QueueOpt:
			queue = opt.Value().(string)
		case asynq.MaxRetryOpt:
			maxRetry = opt.Value().(int)
		}
	}
	assert.Equal(t, DefaultQueue, queue)
	assert.Equal(t, 0, maxRetry)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dispatches.WithLabelValues(ModeRemote, "accepted")))

	require.NoError(t, d.Close())
	assert.True(t, enq.closed)
}

func TestRemote_SubmitReportsEnqueueFailure(t *testing.T) {
	enq := &capturingEnqueuer{err: errors.New("connection refused")}
	metrics := newTestMetrics(t)
	d := newRemote(enq, "amedos-dev-backend", "default", metrics)

	err := d.Submit(context.Background(), testPayload())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "amedos-dev-backend")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dispatches.WithLabelValues(ModeRemote, "rejected")))
}

func TestRemote_SubmitStoresPendingTask(t *testing.T) {
	mr := miniredis.RunT(t)
	opt, err := RedisConnOpt("redis://"+mr.Addr()+"/0", false)
	require.NoError(t, err)

	d := NewRemote(opt, TaskName("amedos", "staging"), "amedos", nil)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, d.Submit(context.Background(), testPayload()))
	require.NoError(t, d.Submit(context.Background(), testPayload()))

	pending, err := mr.List("asynq:{amedos}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.NotEqual(t, pending[0], pending[1])

	state := mr.HGet("asynq:{amedos}:t:"+pending[0], "state")
	assert.Equal(t, "pending", state)
	assert.True(t, mr.Exists("asynq:queues"))
}
