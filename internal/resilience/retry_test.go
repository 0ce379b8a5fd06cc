package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sells-group/visibility-cli/internal/config"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDoVal_RetriesTransient(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), fastPolicy(3), func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewProviderError("openai", 429, errors.New("slow down"))
		}
		return "answer", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "answer" || calls != 3 {
		t.Errorf("expected answer after 3 calls, got %q after %d", got, calls)
	}
}

func TestDoVal_StopsOnPermanent(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastPolicy(5), func(_ context.Context) (int, error) {
		calls++
		return 0, NewProviderError("openai", 400, errors.New("bad prompt"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastPolicy(2), func(_ context.Context) (int, error) {
		calls++
		return 7, context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected last error, got %v", err)
	}
	if val != 0 {
		t.Errorf("expected zero value, got %d", val)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_ContextCancelledStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	p := RetryPolicy{MaxAttempts: 5, InitialBackoff: 50 * time.Millisecond, MaxBackoff: 100 * time.Millisecond}

	err := Do(ctx, p, func(_ context.Context) error {
		calls++
		cancel()
		return NewProviderError("gemini", 503, errors.New("down"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancel, got %d", calls)
	}
}

func TestDo_OnRetry(t *testing.T) {
	var attempts []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	_ = Do(context.Background(), p, func(_ context.Context) error {
		return NewProviderError("anthropic", 529, errors.New("overloaded"))
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected [1 2], got %v", attempts)
	}
}

func TestDo_CustomShouldRetry(t *testing.T) {
	var calls int
	p := fastPolicy(3)
	p.ShouldRetry = func(err error) bool { return err.Error() == "again" }

	err := Do(context.Background(), p, func(_ context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("again")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("expected success on 2nd call, got err=%v calls=%d", err, calls)
	}
}

func TestBackoff_Capped(t *testing.T) {
	p := RetryPolicy{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second}.withDefaults()
	p.JitterFraction = 0

	if d := p.backoff(0); d != time.Second {
		t.Errorf("attempt 0: expected 1s, got %s", d)
	}
	if d := p.backoff(1); d != 2*time.Second {
		t.Errorf("attempt 1: expected 2s, got %s", d)
	}
	if d := p.backoff(5); d != 3*time.Second {
		t.Errorf("attempt 5: expected cap 3s, got %s", d)
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	p := RetryPolicy{InitialBackoff: time.Second, MaxBackoff: time.Minute, JitterFraction: 0.5}.withDefaults()
	for i := 0; i < 100; i++ {
		d := p.backoff(0)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("jittered delay %s out of bounds", d)
		}
	}
}

func TestPolicyFromFanOut(t *testing.T) {
	p := PolicyFromFanOut(config.FanOutConfig{MaxAttempts: 3, CallTimeoutSecs: 8})
	if p.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", p.MaxAttempts)
	}
	if p.MaxBackoff != 2*time.Second {
		t.Errorf("expected backoff capped at 2s, got %s", p.MaxBackoff)
	}
	if p.InitialBackoff > p.MaxBackoff {
		t.Errorf("initial %s exceeds max %s", p.InitialBackoff, p.MaxBackoff)
	}

	def := PolicyFromFanOut(config.FanOutConfig{})
	if def.MaxAttempts != DefaultRetryPolicy().MaxAttempts {
		t.Errorf("expected default attempts, got %d", def.MaxAttempts)
	}
}

func TestBreakerConfigFromFanOut(t *testing.T) {
	bc := BreakerConfigFromFanOut(config.FanOutConfig{PerPlatformConcurrency: 4, CallTimeoutSecs: 60})
	if bc.FailureThreshold != 6 {
		t.Errorf("expected threshold 6, got %d", bc.FailureThreshold)
	}
	if bc.ResetTimeout != 30*time.Second {
		t.Errorf("expected 30s reset, got %s", bc.ResetTimeout)
	}

	short := BreakerConfigFromFanOut(config.FanOutConfig{CallTimeoutSecs: 4})
	if short.ResetTimeout != 5*time.Second {
		t.Errorf("expected 5s floor, got %s", short.ResetTimeout)
	}
}
