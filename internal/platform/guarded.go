package platform

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/visibility-cli/internal/resilience"
)

// GuardOptions configures a Guarded platform.
type GuardOptions struct {
	// RequestsPerSecond throttles calls to the provider. Zero is unlimited.
	RequestsPerSecond float64
	// Burst defaults to 1.
	Burst int
	// CallTimeout bounds each attempt.
	CallTimeout time.Duration
	Retry       resilience.RetryPolicy
	// Breaker is shared by every Guarded for the same provider. Nil disables
	// circuit breaking.
	Breaker *resilience.Breaker
}

// Guarded decorates a Platform with rate limiting, circuit breaking, retry
// on transient errors, and a per-attempt timeout.
type Guarded struct {
	inner   Platform
	limiter *rate.Limiter
	breaker *resilience.Breaker
	retry   resilience.RetryPolicy
	timeout time.Duration
}

// Guard wraps p.
func Guard(p Platform, opts GuardOptions) *Guarded {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retry := opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.LogRetry(p.Name())
	}
	return &Guarded{
		inner:   p,
		limiter: rate.NewLimiter(limit, burst),
		breaker: opts.Breaker,
		retry:   retry,
		timeout: timeout,
	}
}

// Name implements Platform.
func (g *Guarded) Name() string { return g.inner.Name() }

// Query implements Platform. LatencyMS covers the whole guarded call,
// including throttling and retries.
func (g *Guarded) Query(ctx context.Context, prompt string) (*Answer, error) {
	start := time.Now()
	ans, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*Answer, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "%s: rate limit wait", g.Name())
		}
		if g.breaker == nil {
			return g.attempt(ctx, prompt)
		}
		return resilience.Call(ctx, g.breaker, func(ctx context.Context) (*Answer, error) {
			return g.attempt(ctx, prompt)
		})
	})
	if err != nil {
		return nil, err
	}
	ans.LatencyMS = time.Since(start).Milliseconds()
	return ans, nil
}

func (g *Guarded) attempt(ctx context.Context, prompt string) (*Answer, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ans, err := g.inner.Query(attemptCtx, prompt)
	if err == nil {
		return ans, nil
	}
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		zap.L().Debug("platform call timed out",
			zap.String("platform", g.Name()),
			zap.Duration("timeout", g.timeout),
		)
		return nil, &resilience.ProviderError{
			Platform:  g.Name(),
			Retryable: true,
			Err:       eris.Errorf("timed out after %s", g.timeout),
		}
	}
	return nil, err
}
