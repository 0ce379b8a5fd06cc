package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/api"
	"github.com/sells-group/visibility-cli/internal/dispatch"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/monitoring"
	"github.com/sells-group/visibility-cli/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, run executor, scheduler and reaper",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m := metrics.New(prometheus.DefaultRegisterer)

		env, err := initApp(ctx, "serve", m)
		if err != nil {
			return err
		}
		defer env.Close()

		exec, shutdownExec, err := initExecutor(env)
		if err != nil {
			return err
		}
		defer shutdownExec()

		gw := dispatch.NewGateway(env.Store, exec, cfg.Dispatch, m)

		if cfg.Scheduler.Enabled {
			sched := scheduler.New(env.Store, gw, cfg.Scheduler)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()
		}

		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(
				monitoring.NewReaper(env.Store, cfg.Dispatch.RunBudget(), cfg.Monitoring.StaleGrace(), m),
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.NewServer(gw, env.Store, prometheus.DefaultGatherer, cfg.Server).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("executor", cfg.Dispatch.Executor),
			zap.Bool("scheduler", cfg.Scheduler.Enabled),
			zap.Bool("monitoring", cfg.Monitoring.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// initExecutor builds the configured run executor and its shutdown hook.
func initExecutor(env *appEnv) (dispatch.Executor, func(), error) {
	switch cfg.Dispatch.Executor {
	case "temporal":
		c, err := dialTemporal()
		if err != nil {
			return nil, nil, err
		}
		return dispatch.NewTemporalExecutor(c, cfg.Temporal, cfg.Dispatch), c.Close, nil
	default:
		local := dispatch.NewLocalExecutor(env.Pipeline, cfg.Dispatch)
		return local, func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := local.Shutdown(ctx); err != nil {
				zap.L().Warn("executor shutdown", zap.Error(err))
			}
		}, nil
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
