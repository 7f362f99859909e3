package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/ads-pilot/internal/config"
	"github.com/ignite/ads-pilot/internal/metrics"
)

// Engine produces decisions from a metrics snapshot
type Engine interface {
	Analyze(ctx context.Context, snapshot *metrics.Snapshot) ([]Decision, error)
}

// ExplorationPolicy decides whether to emit the optional exploratory
// decisions (experiment proposals, winner promotion). The original system
// rolled dice here; making it injectable keeps decision generation
// reproducible in tests.
type ExplorationPolicy interface {
	ProposeExperiment(snapshot *metrics.Snapshot) bool
	ProposePromotion(snapshot *metrics.Snapshot) bool
}

// NeverExplore disables both exploratory branches
type NeverExplore struct{}

func (NeverExplore) ProposeExperiment(*metrics.Snapshot) bool { return false }
func (NeverExplore) ProposePromotion(*metrics.Snapshot) bool  { return false }

// AlwaysExplore enables both exploratory branches
type AlwaysExplore struct{}

func (AlwaysExplore) ProposeExperiment(*metrics.Snapshot) bool { return true }
func (AlwaysExplore) ProposePromotion(*metrics.Snapshot) bool  { return true }

// RuleEngine is the deterministic threshold-based decision generator. It is
// the default engine in demo mode and the fallback for the LLM engine.
type RuleEngine struct {
	thresholds  config.AnalysisConfig
	exploration ExplorationPolicy
	now         func() time.Time
}

// NewRuleEngine creates a rule engine. A nil policy disables exploration.
func NewRuleEngine(thresholds config.AnalysisConfig, exploration ExplorationPolicy) *RuleEngine {
	if exploration == nil {
		exploration = NeverExplore{}
	}
	return &RuleEngine{
		thresholds:  thresholds,
		exploration: exploration,
		now:         time.Now,
	}
}

// Analyze applies the threshold rules in a fixed order and truncates to
// MaxDecisions. Generation order is the priority order: anything past
// position five is dropped.
func (e *RuleEngine) Analyze(ctx context.Context, snapshot *metrics.Snapshot) ([]Decision, error) {
	agg := snapshot.Aggregated
	decisions := make([]Decision, 0, MaxDecisions)

	refCampaign, refAdSet := referenceTarget(snapshot)

	if agg.AvgCTR < e.thresholds.LowCTRThreshold {
		decisions = append(decisions, Decision{
			Type:       DecisionGenerateCreative,
			Priority:   PriorityHigh,
			Reason:     fmt.Sprintf("Average CTR %.2f%% is below the %.1f%% target; creative fatigue suspected", agg.AvgCTR, e.thresholds.LowCTRThreshold),
			CampaignID: refCampaign,
			AdSetID:    refAdSet,
			Context: &CreativeContext{
				Headline:    "Discover What You've Been Missing",
				Description: "Fresh offer, same great value. See why thousands already switched.",
				CTA:         "Learn More",
				Objective:   "Improve CTR",
			},
			Timestamp: e.now(),
		})
	}

	if agg.ROAS > e.thresholds.HighROASThreshold {
		from, to := reallocationPair(snapshot)
		decisions = append(decisions, Decision{
			Type:     DecisionBudgetReallocate,
			Priority: PriorityHigh,
			Reason:   fmt.Sprintf("Account ROAS %.2f exceeds %.1f; shifting budget toward the top performer compounds returns", agg.ROAS, e.thresholds.HighROASThreshold),
			Realloc: &ReallocationParams{
				FromAdID: from,
				ToAdID:   to,
				Amount:   50,
			},
			Timestamp: e.now(),
		})
	}

	if e.exploration.ProposeExperiment(snapshot) {
		decisions = append(decisions, Decision{
			Type:     DecisionDuplicateAdSetForTest,
			Priority: PriorityMedium,
			Reason:   "Audience saturation risk; test interest targeting against a lookalike seed",
			AdSetID:  refAdSet,
			Experiment: &ExperimentParams{
				ExperimentName: "Interest vs Lookalike",
				Hypothesis:     "A 1% lookalike audience outperforms stacked interest targeting on CTR and ROAS",
				Variants: []VariantSpec{
					{Name: "Variant A", Audience: "interest_stack"},
					{Name: "Variant B", Audience: "lookalike_1pct"},
				},
				Budget: 100,
			},
			Timestamp: e.now(),
		})
	}

	if ad, ok := firstUnderperformingAd(snapshot, e.thresholds.PauseCTRThreshold); ok {
		decisions = append(decisions, Decision{
			Type:      DecisionPauseUnderperformer,
			Priority:  PriorityMedium,
			Reason:    fmt.Sprintf("Ad %s CTR %.2f%% is below %.1f%%; spend is not converting to clicks", ad.Name, ad.AvgCTR(), e.thresholds.PauseCTRThreshold),
			TargetID:  ad.ID,
			Timestamp: e.now(),
		})
	}

	if e.exploration.ProposePromotion(snapshot) {
		top, _ := reallocationPair(snapshot)
		decisions = append(decisions, Decision{
			Type:      DecisionPromoteWinner,
			Priority:  PriorityLow,
			Reason:    "Consistent outperformance warrants a boost",
			TargetID:  top,
			Timestamp: e.now(),
		})
	}

	if len(decisions) > MaxDecisions {
		decisions = decisions[:MaxDecisions]
	}

	return decisions, nil
}

// referenceTarget picks the first campaign/ad set as the anchor for
// account-level decisions
func referenceTarget(snapshot *metrics.Snapshot) (campaignID, adSetID string) {
	if len(snapshot.Campaigns) == 0 {
		return "", ""
	}
	c := snapshot.Campaigns[0]
	if len(c.AdSets) == 0 {
		return c.ID, ""
	}
	return c.ID, c.AdSets[0].ID
}

// reallocationPair returns the best- and worst-performing ads by CTR so
// budget can flow from the laggard to the leader
func reallocationPair(snapshot *metrics.Snapshot) (fromID, toID string) {
	ads := snapshot.AllAds()
	if len(ads) == 0 {
		return "", ""
	}

	best, worst := ads[0], ads[0]
	for _, ad := range ads[1:] {
		if ad.AvgCTR() > best.AvgCTR() {
			best = ad
		}
		if ad.AvgCTR() < worst.AvgCTR() {
			worst = ad
		}
	}
	return worst.ID, best.ID
}

// firstUnderperformingAd returns the first ad (hierarchy order) whose CTR is
// below the pause threshold
func firstUnderperformingAd(snapshot *metrics.Snapshot, threshold float64) (metrics.Ad, bool) {
	for _, ad := range snapshot.AllAds() {
		if ad.AvgCTR() < threshold {
			return ad, true
		}
	}
	return metrics.Ad{}, false
}
