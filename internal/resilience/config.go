package resilience

import (
	"time"

	"github.com/sells-group/visibility-cli/internal/config"
)

// PolicyFromFanOut derives the per-call retry policy from fan-out settings.
func PolicyFromFanOut(cfg config.FanOutConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	// Keep the worst-case backoff below a quarter of the call timeout.
	if t := cfg.CallTimeout(); t > 0 && p.MaxBackoff > t/4 {
		p.MaxBackoff = t / 4
		if p.InitialBackoff > p.MaxBackoff {
			p.InitialBackoff = p.MaxBackoff
		}
	}
	return p
}

// BreakerConfigFromFanOut sizes the per-platform breaker so one platform
// outage stops burning the fan-out's call budget after a handful of failures.
func BreakerConfigFromFanOut(cfg config.FanOutConfig) BreakerConfig {
	bc := DefaultBreakerConfig()
	if cfg.PerPlatformConcurrency > 0 {
		bc.FailureThreshold = cfg.PerPlatformConcurrency + 2
	}
	if t := cfg.CallTimeout(); t > 0 {
		bc.ResetTimeout = t / 2
		if bc.ResetTimeout < 5*time.Second {
			bc.ResetTimeout = 5 * time.Second
		}
	}
	return bc
}
