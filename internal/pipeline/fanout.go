package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/visibility-cli/internal/mention"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/platform"
)

// maxErrorChars bounds the error text stored on a response row.
const maxErrorChars = 500

// ProgressFunc receives the number of resolved calls out of total. It may
// be called from many goroutines at once.
type ProgressFunc func(done, total int)

// FanOut queries every platform with every prompt.
type FanOut struct {
	platforms   []platform.Platform
	concurrency int
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewFanOut creates a FanOut allowing concurrency in-flight calls per
// platform. All platforms run at the same time.
func NewFanOut(platforms []platform.Platform, concurrency int, m *metrics.Metrics) *FanOut {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &FanOut{
		platforms:   platforms,
		concurrency: concurrency,
		metrics:     m,
		now:         time.Now,
	}
}

// Platforms returns the roster in query order.
func (f *FanOut) Platforms() []platform.Platform {
	return f.platforms
}

// Run resolves every (prompt, platform) pair and returns exactly one
// response per pair, ordered by prompt then platform. Provider failures,
// timeouts and panics become rows with ErrorMessage set.
func (f *FanOut) Run(ctx context.Context, runID string, prompts []model.Prompt, det *mention.Detector, onProgress ProgressFunc) []model.PlatformResponse {
	n := len(f.platforms)
	total := len(prompts) * n
	out := make([]model.PlatformResponse, total)
	var done atomic.Int64

	var all errgroup.Group
	for pi, p := range f.platforms {
		all.Go(func() error {
			var g errgroup.Group
			g.SetLimit(f.concurrency)
			for qi := range prompts {
				slot := qi*n + pi
				g.Go(func() error {
					out[slot] = f.resolve(ctx, runID, p, prompts[qi], det)
					resolved := done.Add(1)
					if onProgress != nil {
						onProgress(int(resolved), total)
					}
					return nil
				})
			}
			return g.Wait()
		})
	}
	_ = all.Wait()

	return out
}

// resolve performs one guarded query and scans the answer.
func (f *FanOut) resolve(ctx context.Context, runID string, p platform.Platform, prompt model.Prompt, det *mention.Detector) (resp model.PlatformResponse) {
	resp = model.PlatformResponse{
		RunID:       runID,
		PromptID:    prompt.ID,
		PromptIndex: prompt.Index,
		Platform:    p.Name(),
	}
	start := f.now()

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("pipeline: platform call panicked",
				zap.String("run_id", runID),
				zap.String("platform", resp.Platform),
				zap.Any("panic", r),
			)
			msg := fmt.Sprintf("panic: %v", r)
			resp = model.PlatformResponse{
				RunID:        runID,
				PromptID:     prompt.ID,
				PromptIndex:  prompt.Index,
				Platform:     p.Name(),
				ErrorMessage: &msg,
				LatencyMS:    f.now().Sub(start).Milliseconds(),
				CreatedAt:    f.now().UTC(),
			}
		}
	}()

	ans, err := p.Query(ctx, prompt.Text)
	elapsed := f.now().Sub(start)
	resp.CreatedAt = f.now().UTC()
	f.metrics.ObservePlatformCall(resp.Platform, elapsed, err)

	if err != nil {
		msg := model.Truncate(err.Error(), maxErrorChars)
		resp.ErrorMessage = &msg
		resp.LatencyMS = elapsed.Milliseconds()
		zap.L().Warn("pipeline: platform call failed",
			zap.String("run_id", runID),
			zap.String("platform", resp.Platform),
			zap.Int("prompt_index", prompt.Index),
			zap.Int64("duration_ms", resp.LatencyMS),
			zap.Error(err),
		)
		return resp
	}

	text := ans.Text
	resp.ResponseText = &text
	resp.LatencyMS = ans.LatencyMS
	if resp.LatencyMS <= 0 {
		resp.LatencyMS = elapsed.Milliseconds()
	}

	found := det.Scan(text, ans.Citations)
	resp.Mentioned = found.Mentioned
	resp.Position = found.Position
	resp.Competitors = found.Competitors
	return resp
}
