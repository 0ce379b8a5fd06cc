// Package pipeline runs one scan: crawl, analyze, generate prompts, query
// every platform, score, and persist the report.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/mention"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/notify"
	"github.com/sells-group/visibility-cli/internal/scorer"
	"github.com/sells-group/visibility-cli/internal/store"
)

// failureWriteTimeout bounds the write that records a failed run after the
// run context has ended.
const failureWriteTimeout = 15 * time.Second

// Crawler fetches a domain's pages.
type Crawler interface {
	Crawl(ctx context.Context, domain string) (*model.CrawlResult, error)
}

// Pipeline executes runs against a store.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	crawler   Crawler
	analyzer  *Analyzer
	generator *PromptGenerator
	fanout    *FanOut
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New creates a Pipeline with all dependencies. notifier and m may be nil.
func New(
	cfg *config.Config,
	st store.Store,
	crawler Crawler,
	analyzer *Analyzer,
	generator *PromptGenerator,
	fanout *FanOut,
	notifier notify.Notifier,
	m *metrics.Metrics,
) *Pipeline {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		crawler:   crawler,
		analyzer:  analyzer,
		generator: generator,
		fanout:    fanout,
		notifier:  notifier,
		metrics:   m,
		now:       time.Now,
	}
}

// Execute runs the pending run runID to a terminal status. Stage failures
// are recorded on the run and are not returned; an error means the run
// could not be loaded or its failure could not be persisted. A run that is
// no longer pending is left alone, so duplicate deliveries are harmless.
func (p *Pipeline) Execute(ctx context.Context, runID string) error {
	run, err := p.store.GetRun(ctx, runID)
	if err != nil {
		return eris.Wrapf(err, "pipeline: load run %s", runID)
	}

	log := zap.L().With(zap.String("run_id", run.ID), zap.String("domain", run.Domain))
	if run.Status != model.RunStatusPending {
		log.Info("pipeline: run not pending, skipping", zap.String("status", string(run.Status)))
		return nil
	}

	if err := p.store.TransitionRun(ctx, run.ID, model.RunStatusPending, model.RunStatusCrawling); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			log.Info("pipeline: run claimed elsewhere, skipping")
			return nil
		}
		return eris.Wrap(err, "pipeline: start run")
	}

	trigger := string(run.Trigger)
	p.metrics.RunStarted(trigger)
	log.Info("pipeline: run started", zap.String("trigger", trigger))
	start := p.now()

	report, stageErr := p.execute(ctx, run, log)
	if stageErr != nil {
		log.Error("pipeline: run failed",
			zap.Int64("duration_ms", p.now().Sub(start).Milliseconds()),
			zap.Error(stageErr),
		)
		p.metrics.RunFinished(trigger, string(model.RunStatusFailed))
		return p.recordFailure(ctx, run.ID, stageErr, log)
	}

	p.metrics.RunFinished(trigger, string(model.RunStatusComplete))
	log.Info("pipeline: run complete",
		zap.Int("overall_score", report.OverallScore),
		zap.Int("mention_count", report.MentionCount),
		zap.Int("query_count", report.QueryCount),
		zap.Int64("duration_ms", p.now().Sub(start).Milliseconds()),
	)
	p.publish(ctx, run, report, log)
	return nil
}

// execute runs the stages of a claimed run. Each status transition is
// persisted before the stage it names begins.
func (p *Pipeline) execute(ctx context.Context, run *model.Run, log *zap.Logger) (*model.Report, error) {
	// crawling
	var crawl *model.CrawlResult
	if err := p.stage(log, "crawl", func() error {
		var err error
		crawl, err = p.crawler.Crawl(ctx, run.Domain)
		return err
	}); err != nil {
		return nil, err
	}
	if crawl.Empty() {
		log.Warn("pipeline: no pages retrieved, continuing with low confidence")
	}

	// analyzing
	if err := p.advance(ctx, run.ID, model.RunStatusCrawling, model.RunStatusAnalyzing); err != nil {
		return nil, err
	}
	var analysis *model.SiteAnalysis
	if err := p.stage(log, "analyze", func() error {
		var err error
		if analysis, err = p.analyzer.Analyze(ctx, run.Domain, crawl); err != nil {
			return err
		}
		analysis.RunID = run.ID
		return p.store.SaveSiteAnalysis(ctx, analysis)
	}); err != nil {
		return nil, err
	}

	// generating
	if err := p.advance(ctx, run.ID, model.RunStatusAnalyzing, model.RunStatusGenerating); err != nil {
		return nil, err
	}
	var prompts []model.Prompt
	if err := p.stage(log, "generate", func() error {
		var err error
		if prompts, err = p.generator.Generate(ctx, run.ID, run.Domain, analysis); err != nil {
			return err
		}
		return p.store.InsertPrompts(ctx, prompts)
	}); err != nil {
		return nil, err
	}

	// querying
	if err := p.advance(ctx, run.ID, model.RunStatusGenerating, model.RunStatusQuerying); err != nil {
		return nil, err
	}
	var responses []model.PlatformResponse
	if err := p.stage(log, "query", func() error {
		det, err := p.detector(ctx, run, analysis)
		if err != nil {
			return err
		}
		reporter := NewProgressReporter(ctx, p.store, run.ID, p.cfg.FanOut.ProgressFlushInterval())
		responses = p.fanout.Run(ctx, run.ID, prompts, det, reporter.Report)
		reporter.Close()
		return p.store.InsertPlatformResponses(ctx, responses)
	}); err != nil {
		return nil, err
	}

	// complete
	var report *model.Report
	if err := p.stage(log, "score", func() error {
		report = p.buildReport(run, responses)
		return p.store.CompleteRun(ctx, report)
	}); err != nil {
		return nil, err
	}
	return report, nil
}

// stage times fn and logs its outcome.
func (p *Pipeline) stage(log *zap.Logger, name string, fn func() error) error {
	start := p.now()
	err := fn()
	d := p.now().Sub(start)
	p.metrics.ObserveStage(name, d, err)
	if err != nil {
		return eris.Wrapf(err, "%s stage", name)
	}
	log.Info("pipeline: stage complete", zap.String("stage", name), zap.Int64("duration_ms", d.Milliseconds()))
	return nil
}

func (p *Pipeline) advance(ctx context.Context, runID string, from, to model.RunStatus) error {
	if err := p.store.TransitionRun(ctx, runID, from, to); err != nil {
		return eris.Wrapf(err, "pipeline: transition %s -> %s", from, to)
	}
	return nil
}

// detector builds the mention scanner from the analysis and, for
// subscription runs, the tracked competitors.
func (p *Pipeline) detector(ctx context.Context, run *model.Run, analysis *model.SiteAnalysis) (*mention.Detector, error) {
	target := mention.Target{
		Domain:      run.Domain,
		Competitors: append([]string(nil), analysis.Competitors...),
	}
	if analysis.BusinessName != nil {
		target.BusinessName = *analysis.BusinessName
	}
	if run.SubscriptionID != nil {
		sub, err := p.store.GetSubscription(ctx, *run.SubscriptionID)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load subscription competitors")
		}
		target.Competitors = append(append([]string(nil), sub.Competitors...), target.Competitors...)
	}
	return mention.NewDetector(target), nil
}

func (p *Pipeline) buildReport(run *model.Run, responses []model.PlatformResponse) *model.Report {
	res := scorer.Compute(responses, p.cfg.Scoring)
	return &model.Report{
		RunID:           run.ID,
		Token:           NewReportToken(),
		Domain:          run.Domain,
		OverallScore:    res.OverallScore,
		ProminenceScore: res.ProminenceScore,
		PlatformScores:  res.PlatformScores,
		Competitors:     res.Competitors,
		AllCompetitors:  res.AllCompetitors,
		MentionCount:    res.MentionCount,
		QueryCount:      res.QueryCount,
		Summary:         scorer.Summary(res, run.Domain),
		CreatedAt:       p.now().UTC(),
	}
}

// NewReportToken returns an opaque, unguessable public report token.
func NewReportToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ReportURL is the public address of the report with token.
func ReportURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/v1/reports/" + token
}

// recordFailure marks the run failed. It uses a fresh deadline because the
// run context may be the reason the stage failed.
func (p *Pipeline) recordFailure(ctx context.Context, runID string, stageErr error, log *zap.Logger) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	msg := model.Truncate(stageErr.Error(), 1000)
	if err := p.store.FailRun(wctx, runID, msg); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			log.Warn("pipeline: run already terminal, failure not recorded")
			return nil
		}
		return eris.Wrap(err, "pipeline: record failure")
	}
	return nil
}

// publish emits the completion event. Failures are logged only.
func (p *Pipeline) publish(ctx context.Context, run *model.Run, report *model.Report, log *zap.Logger) {
	acct, err := p.store.GetAccount(ctx, run.AccountID)
	if err != nil {
		log.Warn("pipeline: load account for notification", zap.Error(err))
		return
	}
	ev := notify.Event{
		RunID:        run.ID,
		Email:        acct.Email,
		Domain:       run.Domain,
		ReportURL:    ReportURL(p.cfg.Server.PublicBaseURL, report.Token),
		OverallScore: report.OverallScore,
		CompletedAt:  report.CreatedAt,
	}
	if err := p.notifier.Publish(ctx, ev); err != nil {
		log.Warn("pipeline: publish completion event", zap.Error(err))
	}
}
