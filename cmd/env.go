package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/crawl"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/notify"
	"github.com/sells-group/visibility-cli/internal/pipeline"
	"github.com/sells-group/visibility-cli/internal/platform"
	"github.com/sells-group/visibility-cli/internal/resilience"
	"github.com/sells-group/visibility-cli/internal/scorer"
	"github.com/sells-group/visibility-cli/internal/store"
	anthropicpkg "github.com/sells-group/visibility-cli/pkg/anthropic"
)

// appEnv holds the store, notifier and pipeline shared by the serve, worker
// and scan commands.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Notifier notify.Notifier
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Notifier != nil {
		if err := e.Notifier.Close(); err != nil {
			zap.L().Warn("close notifier", zap.Error(err))
		}
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "visibility.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore validates config for store-only commands, opens the store and
// applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initNotifier publishes to RabbitMQ when configured and logs otherwise.
func initNotifier() (notify.Notifier, error) {
	if cfg.RabbitMQ.URL == "" {
		zap.L().Debug("VISIBILITY_RABBITMQ_URL not set, completion events are logged only")
		return notify.LogNotifier{}, nil
	}
	mq, err := notify.NewRabbitMQ(cfg.RabbitMQ)
	if err != nil {
		return nil, eris.Wrap(err, "init rabbitmq notifier")
	}
	zap.L().Info("rabbitmq notifier enabled", zap.String("exchange", cfg.RabbitMQ.Exchange))
	return mq, nil
}

// initApp validates config for mode, opens the store and builds the
// pipeline. Callers should defer env.Close(). m may be nil.
func initApp(ctx context.Context, mode string, m *metrics.Metrics) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	if err := scorer.ValidateConfig(cfg.Scoring); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	breakers := resilience.NewBreakerSet(resilience.BreakerConfigFromFanOut(cfg.FanOut))
	platforms, err := platform.Roster(cfg, breakers)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	zap.L().Info("platforms configured", zap.Strings("platforms", platform.Names(platforms)))

	notifier, err := initNotifier()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	ai := anthropicpkg.NewClient(cfg.Anthropic.Key)
	p := pipeline.New(
		cfg,
		st,
		crawl.New(cfg.Crawl),
		pipeline.NewAnalyzer(ai, cfg.Anthropic, cfg.Crawl),
		pipeline.NewPromptGenerator(ai, cfg.Anthropic, cfg.FanOut),
		pipeline.NewFanOut(platforms, cfg.FanOut.PerPlatformConcurrency, m),
		notifier,
		m,
	)

	return &appEnv{Store: st, Pipeline: p, Notifier: notifier}, nil
}
