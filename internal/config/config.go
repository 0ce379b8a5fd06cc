package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	FanOut     FanOutConfig     `yaml:"fanout" mapstructure:"fanout"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Dispatch   DispatchConfig   `yaml:"dispatch" mapstructure:"dispatch"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" mapstructure:"scheduler"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Temporal   TemporalConfig   `yaml:"temporal" mapstructure:"temporal"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq" mapstructure:"rabbitmq"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port          int      `yaml:"port" mapstructure:"port"`
	PublicBaseURL string   `yaml:"public_base_url" mapstructure:"public_base_url"`
	CORSOrigins   []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// CrawlConfig configures the crawl stage.
type CrawlConfig struct {
	MaxPages        int    `yaml:"max_pages" mapstructure:"max_pages"`
	PageTimeoutSecs int    `yaml:"page_timeout_secs" mapstructure:"page_timeout_secs"`
	MaxContentChars int    `yaml:"max_content_chars" mapstructure:"max_content_chars"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
}

// PageTimeout returns the per-page fetch timeout.
func (c CrawlConfig) PageTimeout() time.Duration {
	if c.PageTimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.PageTimeoutSecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings. AnalysisModel serves the
// analyzer and prompt generator; PlatformModel answers scan prompts.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	AnalysisModel string `yaml:"analysis_model" mapstructure:"analysis_model"`
	PlatformModel string `yaml:"platform_model" mapstructure:"platform_model"`
	MaxTokens     int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// FanOutConfig configures prompt generation and the querying stage.
type FanOutConfig struct {
	PromptCount            int     `yaml:"prompt_count" mapstructure:"prompt_count"`
	PerPlatformConcurrency int     `yaml:"per_platform_concurrency" mapstructure:"per_platform_concurrency"`
	CallTimeoutSecs        int     `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	RequestsPerSecond      float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxAttempts            int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	ProgressFlushMillis    int     `yaml:"progress_flush_ms" mapstructure:"progress_flush_ms"`
}

// CallTimeout returns the per-call timeout for platform queries.
func (c FanOutConfig) CallTimeout() time.Duration {
	if c.CallTimeoutSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.CallTimeoutSecs) * time.Second
}

// ProgressFlushInterval returns the minimum spacing between progress writes.
func (c FanOutConfig) ProgressFlushInterval() time.Duration {
	if c.ProgressFlushMillis <= 0 {
		return 750 * time.Millisecond
	}
	return time.Duration(c.ProgressFlushMillis) * time.Millisecond
}

// ScoringConfig configures report construction.
type ScoringConfig struct {
	PublicCompetitors   int `yaml:"public_competitors" mapstructure:"public_competitors"`
	InternalCompetitors int `yaml:"internal_competitors" mapstructure:"internal_competitors"`
}

// DispatchConfig configures run creation and execution.
type DispatchConfig struct {
	CooldownHours int    `yaml:"cooldown_hours" mapstructure:"cooldown_hours"`
	RunBudgetSecs int    `yaml:"run_budget_secs" mapstructure:"run_budget_secs"`
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	Executor      string `yaml:"executor" mapstructure:"executor"`
}

// Cooldown returns the manual rescan cooldown window.
func (c DispatchConfig) Cooldown() time.Duration {
	if c.CooldownHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.CooldownHours) * time.Hour
}

// RunBudget returns the hard wall-clock budget of one run.
func (c DispatchConfig) RunBudget() time.Duration {
	if c.RunBudgetSecs <= 0 {
		return 600 * time.Second
	}
	return time.Duration(c.RunBudgetSecs) * time.Second
}

// SchedulerConfig configures automatic scans for subscriptions.
type SchedulerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Cron    string `yaml:"cron" mapstructure:"cron"`
}

// MonitoringConfig configures the stale-run reaper and failure alerts.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StaleGraceSecs       int     `yaml:"stale_grace_secs" mapstructure:"stale_grace_secs"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// StaleGrace returns the slack added to the run budget before a run is
// reaped.
func (c MonitoringConfig) StaleGrace() time.Duration {
	if c.StaleGraceSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.StaleGraceSecs) * time.Second
}

// TemporalConfig configures the optional Temporal executor.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// RabbitMQConfig configures completion event publishing.
type RabbitMQConfig struct {
	URL        string `yaml:"url" mapstructure:"url"`
	Exchange   string `yaml:"exchange" mapstructure:"exchange"`
	RoutingKey string `yaml:"routing_key" mapstructure:"routing_key"`
	QueueName  string `yaml:"queue_name" mapstructure:"queue_name"`
}

// Load reads configuration from .env, config.yaml, and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VISIBILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_base_url", "http://localhost:8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("crawl.max_pages", 8)
	v.SetDefault("crawl.page_timeout_secs", 10)
	v.SetDefault("crawl.max_content_chars", 60000)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; VisibilityBot/1.0)")
	v.SetDefault("anthropic.analysis_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.platform_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("openai.model", "gpt-4.1-mini")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("fanout.prompt_count", 9)
	v.SetDefault("fanout.per_platform_concurrency", 4)
	v.SetDefault("fanout.call_timeout_secs", 60)
	v.SetDefault("fanout.requests_per_second", 5)
	v.SetDefault("fanout.max_attempts", 2)
	v.SetDefault("fanout.progress_flush_ms", 750)
	v.SetDefault("scoring.public_competitors", 5)
	v.SetDefault("scoring.internal_competitors", 50)
	v.SetDefault("dispatch.cooldown_hours", 24)
	v.SetDefault("dispatch.run_budget_secs", 600)
	v.SetDefault("dispatch.max_concurrent", 8)
	v.SetDefault("dispatch.executor", "local")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.cron", "0 6 * * 1")
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.check_interval_secs", 60)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.stale_grace_secs", 120)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "visibility-scans")
	v.SetDefault("rabbitmq.exchange", "visibility")
	v.SetDefault("rabbitmq.routing_key", "report.completed")
	v.SetDefault("rabbitmq.queue_name", "report-notifications")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command mode needs are present and
// within bounds. Modes: "serve", "worker", "scan", "store".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "worker", "scan", "store":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if mode != "store" {
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.FanOut.PromptCount < 1 || c.FanOut.PromptCount > 30 {
			errs = append(errs, "fanout.prompt_count must be between 1 and 30")
		}
		if c.FanOut.PerPlatformConcurrency < 1 {
			errs = append(errs, "fanout.per_platform_concurrency must be > 0")
		}
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	}

	if mode == "serve" || mode == "worker" {
		switch c.Dispatch.Executor {
		case "local", "temporal":
		default:
			errs = append(errs, fmt.Sprintf("dispatch.executor %q is not supported", c.Dispatch.Executor))
		}
		if c.Dispatch.MaxConcurrent < 1 {
			errs = append(errs, "dispatch.max_concurrent must be > 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
