package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/workflow"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a Temporal worker that executes scan workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "worker", metrics.New(prometheus.DefaultRegisterer))
		if err != nil {
			return err
		}
		defer env.Close()

		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
			MaxConcurrentActivityExecutionSize: cfg.Dispatch.MaxConcurrent,
		})
		workflow.Register(w, &workflow.Activities{Runner: env.Pipeline})

		if err := w.Start(); err != nil {
			return eris.Wrap(err, "start temporal worker")
		}
		zap.L().Info("temporal worker started",
			zap.String("task_queue", cfg.Temporal.TaskQueue),
			zap.Int("max_concurrent", cfg.Dispatch.MaxConcurrent),
		)

		<-ctx.Done()
		w.Stop()
		zap.L().Info("temporal worker stopped")
		return nil
	},
}

// dialTemporal connects to the configured Temporal frontend.
func dialTemporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dial temporal %s", cfg.Temporal.HostPort)
	}
	return c, nil
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
