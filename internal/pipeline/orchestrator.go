// Package pipeline runs the end-to-end optimization cycle: ingest metrics,
// analyze them into decisions, execute each decision, advance experiments,
// and persist a run report. One orchestrator instance serializes its runs; a
// second run requested while one is in flight is rejected, not queued.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ignite/ads-pilot/internal/ads"
	"github.com/ignite/ads-pilot/internal/analysis"
	"github.com/ignite/ads-pilot/internal/creative"
	"github.com/ignite/ads-pilot/internal/experiments"
	"github.com/ignite/ads-pilot/internal/metrics"
	"github.com/ignite/ads-pilot/internal/storage"
	"github.com/ignite/ads-pilot/internal/validation"
)

// Ingester produces a metrics snapshot for a date range
type Ingester interface {
	Ingest(ctx context.Context, dateRange metrics.DateRange) (*metrics.Snapshot, error)
}

// CreativeGenerator turns a creative brief into a launched ad
type CreativeGenerator interface {
	GenerateAndLaunch(ctx context.Context, req creative.Request) (*ads.Ad, error)
}

// Options tunes a single run
type Options struct {
	DateRangeDays int // 0 means the configured default
}

// RunResult is the outcome of one pipeline run. Run never returns an error;
// failures are carried here so the caller always gets the logs.
type RunResult struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Error      string              `json:"error,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Decisions  []analysis.Decision `json:"decisions,omitempty"`
	ReportID   string              `json:"report_id,omitempty"`
	Logs       []storage.LogEntry  `json:"logs"`
}

// StoreUploader adapts a storage.Store to the creative uploader interface
type StoreUploader struct {
	Store storage.Store
}

func (u StoreUploader) UploadCreative(ctx context.Context, image validation.Image, campaignID string) (string, error) {
	asset, err := u.Store.UploadCreative(ctx, image, campaignID)
	if err != nil {
		return "", err
	}
	return asset.URL, nil
}

// Orchestrator wires the pipeline stages together. Construct one explicitly
// and share it; the running flag is per instance.
type Orchestrator struct {
	ingester    Ingester
	engine      analysis.Engine
	generator   CreativeGenerator
	executor    *ads.Executor
	experiments *experiments.Manager
	store       storage.Store

	dateRangeDays int
	maxDecisions  int
	now           func() time.Time

	mu         sync.Mutex
	running    bool
	lastResult *RunResult
}

// Deps carries the orchestrator's collaborators
type Deps struct {
	Ingester    Ingester
	Engine      analysis.Engine
	Generator   CreativeGenerator
	Executor    *ads.Executor
	Experiments *experiments.Manager
	Store       storage.Store

	DateRangeDays int
	MaxDecisions  int // 0 means the analysis default
}

// NewOrchestrator creates an orchestrator from its dependencies
func NewOrchestrator(deps Deps) *Orchestrator {
	days := deps.DateRangeDays
	if days <= 0 {
		days = 30
	}
	maxDecisions := deps.MaxDecisions
	if maxDecisions <= 0 {
		maxDecisions = analysis.MaxDecisions
	}
	return &Orchestrator{
		ingester:      deps.Ingester,
		engine:        deps.Engine,
		generator:     deps.Generator,
		executor:      deps.Executor,
		experiments:   deps.Experiments,
		store:         deps.Store,
		dateRangeDays: days,
		maxDecisions:  maxDecisions,
		now:           time.Now,
	}
}

// Running reports whether a run is in flight
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// LastResult returns the most recent run result, nil before the first run
func (o *Orchestrator) LastResult() *RunResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastResult
}

// Run executes one full pipeline cycle. It never returns an error: failures
// are reported through the result so callers always get the run log. A run
// requested while another is in flight is rejected immediately.
func (o *Orchestrator) Run(ctx context.Context, opts Options) *RunResult {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return &RunResult{Success: false, Message: "Pipeline already running"}
	}
	o.running = true
	o.mu.Unlock()

	result := o.run(ctx, opts)

	o.mu.Lock()
	o.running = false
	o.lastResult = result
	o.mu.Unlock()

	return result
}

// runLog accumulates the run's log entries
type runLog struct {
	now     func() time.Time
	entries []storage.LogEntry
}

func (l *runLog) add(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.entries = append(l.entries, storage.LogEntry{Timestamp: l.now(), Level: level, Message: msg})
	log.Printf("[Pipeline] %s", msg)
}

func (l *runLog) info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *runLog) warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *runLog) error(format string, args ...interface{}) { l.add("error", format, args...) }

func (o *Orchestrator) run(ctx context.Context, opts Options) *RunResult {
	started := o.now()
	rlog := &runLog{now: o.now}
	rlog.info("pipeline run started")

	fail := func(err error) *RunResult {
		rlog.error("run aborted: %v", err)
		return &RunResult{
			Success:    false,
			Error:      err.Error(),
			StartedAt:  started,
			FinishedAt: o.now(),
			Logs:       rlog.entries,
		}
	}

	days := opts.DateRangeDays
	if days <= 0 {
		days = o.dateRangeDays
	}

	// Stage 1: ingest
	snapshot, err := o.ingester.Ingest(ctx, metrics.DefaultDateRange(days))
	if err != nil {
		return fail(fmt.Errorf("ingesting metrics: %w", err))
	}
	rlog.info("ingested %d campaigns, %d ad sets, %d ads (avg CTR %.2f%%, ROAS %.2f)",
		snapshot.CampaignsCount, snapshot.AdSetsCount, snapshot.AdsCount,
		snapshot.Aggregated.AvgCTR, snapshot.Aggregated.ROAS)

	if err := o.seedAds(ctx, snapshot); err != nil {
		return fail(fmt.Errorf("seeding execution records: %w", err))
	}

	// Stage 2: analyze
	decisions, err := o.engine.Analyze(ctx, snapshot)
	if err != nil {
		return fail(fmt.Errorf("analyzing snapshot: %w", err))
	}
	if len(decisions) > o.maxDecisions {
		rlog.info("capping %d decisions at the configured limit of %d", len(decisions), o.maxDecisions)
		decisions = decisions[:o.maxDecisions]
	}
	rlog.info("analysis produced %d decision(s)", len(decisions))

	// Stage 3: execute decisions in order. A failed decision aborts the run.
	for _, d := range decisions {
		if err := o.execute(ctx, d, rlog); err != nil {
			return fail(fmt.Errorf("executing %s: %w", d.Type, err))
		}
	}

	// Stage 4: advance experiments and promote any that concluded
	if err := o.checkExperiments(ctx, rlog); err != nil {
		return fail(fmt.Errorf("checking experiments: %w", err))
	}

	// Stage 5: build and persist the report
	report, err := o.buildReport(ctx, snapshot, rlog)
	if err != nil {
		return fail(fmt.Errorf("building report: %w", err))
	}
	if err := o.store.SaveReport(ctx, report); err != nil {
		return fail(fmt.Errorf("saving report: %w", err))
	}
	rlog.info("report %s saved", report.ID)

	return &RunResult{
		Success:    true,
		Message:    fmt.Sprintf("Run completed with %d decision(s)", len(decisions)),
		StartedAt:  started,
		FinishedAt: o.now(),
		Decisions:  decisions,
		ReportID:   report.ID,
		Logs:       rlog.entries,
	}
}

// seedAds upserts an execution record for every ad in the snapshot so pause,
// promote and reallocation decisions can target them
func (o *Orchestrator) seedAds(ctx context.Context, snapshot *metrics.Snapshot) error {
	for _, c := range snapshot.Campaigns {
		for _, as := range c.AdSets {
			for _, ad := range as.Ads {
				record := &ads.Ad{
					ID:         ad.ID,
					Name:       ad.Name,
					Status:     ad.Status,
					CampaignID: c.ID,
					AdSetID:    as.ID,
					Metrics:    rollUp(ad.Metrics),
					CreatedAt:  o.now(),
				}
				if err := o.executor.Seed(ctx, record); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// rollUp collapses daily metrics into the executor's summary shape
func rollUp(daily []metrics.DailyMetric) ads.Metrics {
	var m ads.Metrics
	var revenue float64
	for _, d := range daily {
		m.Spend += d.Spend
		m.Impressions += d.Impressions
		m.Clicks += d.Clicks
		m.Conversions += d.Conversions
		revenue += d.Revenue
	}
	if m.Impressions > 0 {
		m.CTR = float64(m.Clicks) / float64(m.Impressions) * 100
	}
	if m.Spend > 0 {
		m.ROAS = revenue / m.Spend
	}
	return m
}

// execute dispatches one decision to its handler. Unknown types are logged
// and skipped rather than failing the run.
func (o *Orchestrator) execute(ctx context.Context, d analysis.Decision, rlog *runLog) error {
	switch d.Type {
	case analysis.DecisionGenerateCreative:
		if d.Context == nil {
			return fmt.Errorf("decision has no creative brief")
		}
		ad, err := o.generator.GenerateAndLaunch(ctx, creative.Request{
			CampaignID: d.CampaignID,
			AdSetID:    d.AdSetID,
			Context: creative.Context{
				Headline:    d.Context.Headline,
				Description: d.Context.Description,
				CTA:         d.Context.CTA,
				Objective:   d.Context.Objective,
				Audience:    d.Context.Audience,
				Tone:        d.Context.Tone,
			},
		})
		if err != nil {
			return err
		}
		rlog.info("launched generated creative as ad %s", ad.ID)

	case analysis.DecisionPauseUnderperformer:
		if err := o.executor.PauseAd(ctx, d.TargetID); err != nil {
			return err
		}
		rlog.info("paused underperforming ad %s", d.TargetID)

	case analysis.DecisionBudgetReallocate:
		if d.Realloc == nil {
			return fmt.Errorf("decision has no reallocation params")
		}
		if err := o.executor.ReallocateBudget(ctx, d.Realloc.FromAdID, d.Realloc.ToAdID, d.Realloc.Amount); err != nil {
			return err
		}
		rlog.info("reallocated %.2f from %s to %s", d.Realloc.Amount, d.Realloc.FromAdID, d.Realloc.ToAdID)

	case analysis.DecisionDuplicateAdSetForTest:
		if d.Experiment == nil {
			return fmt.Errorf("decision has no experiment params")
		}
		if err := o.startExperiment(ctx, d, rlog); err != nil {
			return err
		}

	case analysis.DecisionPromoteWinner:
		if err := o.executor.PromoteAd(ctx, d.TargetID); err != nil {
			return err
		}
		rlog.info("promoted winning ad %s", d.TargetID)

	default:
		rlog.warn("skipping unknown decision type %q", d.Type)
	}
	return nil
}

// startExperiment registers the A/B test and launches one ad per variant
func (o *Orchestrator) startExperiment(ctx context.Context, d analysis.Decision, rlog *runLog) error {
	params := d.Experiment

	var variants []experiments.Variant
	for _, spec := range params.Variants {
		variants = append(variants, experiments.Variant{Name: spec.Name, Audience: spec.Audience})
	}

	input := experiments.CreateInput{
		Name:          params.ExperimentName,
		Hypothesis:    params.Hypothesis,
		Variants:      variants,
		TargetMetrics: params.TargetMetrics,
		Budget:        params.Budget,
	}
	if params.DurationDays > 0 {
		input.DurationDays = &params.DurationDays
	}

	exp, err := o.experiments.Create(ctx, input)
	if err != nil {
		return err
	}

	for _, v := range exp.Variants {
		ad, err := o.executor.LaunchVariant(ctx, ads.VariantInput{
			ExperimentID: exp.ID,
			VariantName:  v.Name,
			CampaignID:   d.CampaignID,
			AdSetID:      d.AdSetID,
			Creative: ads.Creative{
				Headline:    params.ExperimentName,
				Description: params.Hypothesis,
			},
		})
		if err != nil {
			return fmt.Errorf("launching variant %s: %w", v.Name, err)
		}
		rlog.info("launched variant %q as ad %s", v.Name, ad.ID)
	}

	rlog.info("experiment %q started with %d variants", exp.Name, len(exp.Variants))
	return nil
}

// checkExperiments advances all experiments and promotes the ones that
// concluded: the winning variant's ad gets a boost, losing variant ads pause
func (o *Orchestrator) checkExperiments(ctx context.Context, rlog *runLog) error {
	candidates := o.experiments.CheckAll(ctx)
	for _, c := range candidates {
		exp, improvement, err := o.experiments.PromoteWinner(ctx, c.Experiment.ID)
		if err != nil {
			return err
		}
		rlog.info("experiment %q concluded (%s): %s wins with +%.1f%%", exp.Name, c.Reason, exp.Winner, improvement)

		variantAds, err := o.executor.AdsForExperiment(ctx, exp.ID)
		if err != nil {
			return err
		}
		for _, ad := range variantAds {
			if ad.VariantName == exp.Winner {
				if err := o.executor.PromoteAd(ctx, ad.ID); err != nil {
					return err
				}
				rlog.info("boosted winning variant ad %s", ad.ID)
			} else {
				if err := o.executor.PauseAd(ctx, ad.ID); err != nil {
					return err
				}
				rlog.info("paused losing variant ad %s", ad.ID)
			}
		}
	}
	return nil
}

// buildReport assembles the run report from the snapshot and current state
func (o *Orchestrator) buildReport(ctx context.Context, snapshot *metrics.Snapshot, rlog *runLog) (*storage.Report, error) {
	top, err := o.executor.TopPerformers(ctx, 5)
	if err != nil {
		return nil, err
	}
	under, err := o.executor.Underperformers(ctx, 5)
	if err != nil {
		return nil, err
	}

	var recommendations []string
	for _, u := range under {
		recommendations = append(recommendations, fmt.Sprintf("%s: %s (%s)", u.Ad.Name, u.Recommendation, u.Issue))
	}

	return &storage.Report{
		Timestamp:       o.now(),
		Period:          "daily",
		Summary:         snapshot.Aggregated,
		TopPerformers:   top,
		Underperformers: under,
		Experiments:     o.experiments.List(ctx, ""),
		Recommendations: recommendations,
		Logs:            rlog.entries,
	}, nil
}
