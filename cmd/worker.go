package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gadget-bot/amedos/conf"
	"github.com/gadget-bot/amedos/core"
	"github.com/gadget-bot/amedos/dispatch"
	"github.com/gadget-bot/amedos/radar"
	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the remote backend",
		Long:  `Consume queued radar operations from Redis and run them.`,
		RunE:  worker,
	}
}

func newWorker(cfg conf.Config, metrics *radar.Metrics) (*dispatch.Worker, error) {
	if err := cfg.ValidateWorker(); err != nil {
		return nil, err
	}
	opt, err := dispatch.RedisConnOpt(cfg.RedisURL, cfg.RedisTLSInsecure)
	if err != nil {
		return nil, err
	}
	return dispatch.NewWorker(opt, dispatch.WorkerConfig{
		TaskName:    dispatch.TaskName(cfg.Service, cfg.Stage),
		Queue:       cfg.Queue,
		Concurrency: cfg.WorkerConcurrency,
	}, core.NewOperation(metrics)), nil
}

func worker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := core.NewMetrics()
	if err != nil {
		return err
	}
	w, err := newWorker(loadConfig(), metrics)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
