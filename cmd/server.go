package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gadget-bot/amedos/core"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var withWorker bool

func newServerCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "server",
		Aliases: []string{"serve"},
		Short:   "Run the Slack frontend",
		Long: `Run the HTTP server that receives slash commands and events from Slack.
With --worker the remote backend runs in the same process as well.`,
		RunE: server,
	}
	c.Flags().BoolVar(&withWorker, "worker", false, "also consume queued operations in this process")
	return c
}

func server(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	metrics, err := core.NewMetrics()
	if err != nil {
		return err
	}

	bot, err := core.Setup(cfg, metrics)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(ctx) })

	if withWorker && !cfg.Inline {
		worker, err := newWorker(cfg, metrics)
		if err != nil {
			return err
		}
		g.Go(func() error { return worker.Run(ctx) })
	}

	return g.Wait()
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
