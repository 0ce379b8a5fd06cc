package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/mention"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/platform"
)

func testPrompts(n int) []model.Prompt {
	ps := make([]model.Prompt, n)
	for i := range ps {
		ps[i] = model.Prompt{ID: fmt.Sprintf("p%d", i), RunID: "run-1", Index: i, Text: fmt.Sprintf("Question %d", i)}
	}
	return ps
}

func acmeDetector() *mention.Detector {
	return mention.NewDetector(mention.Target{Domain: "acme-plumbing.com", BusinessName: "Acme Plumbing"})
}

func TestFanOut_OneRowPerPairInSlotOrder(t *testing.T) {
	platforms := []platform.Platform{
		platform.Func{PlatformName: "openai", Fn: func(_ context.Context, p string) (*platform.Answer, error) {
			return &platform.Answer{Text: "Acme Plumbing is great. " + p}, nil
		}},
		platform.Func{PlatformName: "gemini", Fn: func(_ context.Context, _ string) (*platform.Answer, error) {
			return &platform.Answer{Text: "No idea."}, nil
		}},
	}

	rows := NewFanOut(platforms, 2, nil).Run(context.Background(), "run-1", testPrompts(4), acmeDetector(), nil)

	require.Len(t, rows, 8)
	for i, r := range rows {
		assert.Equal(t, i/2, r.PromptIndex)
		assert.Equal(t, fmt.Sprintf("p%d", i/2), r.PromptID)
		assert.Equal(t, "run-1", r.RunID)
		assert.Equal(t, []string{"openai", "gemini"}[i%2], r.Platform)
		assert.Equal(t, r.Platform == "openai", r.Mentioned)
		require.NotNil(t, r.ResponseText)
		assert.False(t, r.CreatedAt.IsZero())
	}
}

func TestFanOut_ErrorsAndPanicsBecomeRows(t *testing.T) {
	platforms := []platform.Platform{
		platform.Func{PlatformName: "openai", Fn: func(context.Context, string) (*platform.Answer, error) {
			return nil, errors.New("openai: status 500")
		}},
		platform.Func{PlatformName: "anthropic", Fn: func(context.Context, string) (*platform.Answer, error) {
			panic("nil map")
		}},
	}

	rows := NewFanOut(platforms, 1, nil).Run(context.Background(), "run-1", testPrompts(3), acmeDetector(), nil)

	require.Len(t, rows, 6)
	for _, r := range rows {
		require.NotNil(t, r.ErrorMessage, r.Platform)
		assert.Nil(t, r.ResponseText)
		assert.False(t, r.Mentioned)
		if r.Platform == "anthropic" {
			assert.Equal(t, "panic: nil map", *r.ErrorMessage)
			assert.Equal(t, "run-1", r.RunID)
		} else {
			assert.Contains(t, *r.ErrorMessage, "status 500")
		}
	}
}

func TestFanOut_PerPlatformConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	var otherStarted atomic.Bool
	slow := platform.Func{PlatformName: "openai", Fn: func(context.Context, string) (*platform.Answer, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return &platform.Answer{Text: "ok"}, nil
	}}
	other := platform.Func{PlatformName: "gemini", Fn: func(context.Context, string) (*platform.Answer, error) {
		otherStarted.Store(true)
		return &platform.Answer{Text: "ok"}, nil
	}}

	rows := NewFanOut([]platform.Platform{slow, other}, 3, nil).
		Run(context.Background(), "run-1", testPrompts(12), acmeDetector(), nil)

	assert.Len(t, rows, 24)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1))
	assert.True(t, otherStarted.Load())
}

func TestFanOut_ProgressReachesTotal(t *testing.T) {
	platforms := []platform.Platform{
		platform.Func{PlatformName: "a", Fn: func(context.Context, string) (*platform.Answer, error) {
			return &platform.Answer{Text: "ok"}, nil
		}},
		platform.Func{PlatformName: "b", Fn: func(context.Context, string) (*platform.Answer, error) {
			return nil, errors.New("down")
		}},
	}

	var mu sync.Mutex
	var seen []int
	totals := map[int]bool{}
	NewFanOut(platforms, 4, nil).Run(context.Background(), "run-1", testPrompts(5), acmeDetector(), func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, done)
		totals[total] = true
	})

	assert.Len(t, seen, 10)
	assert.Equal(t, map[int]bool{10: true}, totals)
	assert.Contains(t, seen, 10)
}

func TestFanOut_CancelledContextStillFillsEverySlot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	platforms := []platform.Platform{
		platform.Func{PlatformName: "openai", Fn: func(ctx context.Context, _ string) (*platform.Answer, error) {
			return nil, ctx.Err()
		}},
	}

	rows := NewFanOut(platforms, 2, nil).Run(ctx, "run-1", testPrompts(3), acmeDetector(), nil)
	require.Len(t, rows, 3)
	for _, r := range rows {
		require.NotNil(t, r.ErrorMessage)
		assert.Equal(t, "openai", r.Platform)
	}
}

func TestFanOut_NoPrompts(t *testing.T) {
	rows := NewFanOut([]platform.Platform{platform.Func{PlatformName: "x"}}, 1, nil).
		Run(context.Background(), "run-1", nil, acmeDetector(), nil)
	assert.Empty(t, rows)
}
