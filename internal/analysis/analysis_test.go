package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ads-pilot/internal/config"
	"github.com/ignite/ads-pilot/internal/metrics"
)

func defaultThresholds() config.AnalysisConfig {
	return config.AnalysisConfig{LowCTRThreshold: 2.0, HighROASThreshold: 4.0, PauseCTRThreshold: 1.0}
}

// snapshotWith builds a one-campaign snapshot whose aggregate CTR and ROAS
// land exactly on the requested values
func snapshotWith(t *testing.T, avgCTR, roas float64) *metrics.Snapshot {
	t.Helper()

	impressions := int64(100000)
	clicks := int64(float64(impressions) * avgCTR / 100)
	spend := 1000.0
	revenue := spend * roas

	daily := metrics.NewDailyMetric("2026-08-01", spend, impressions, clicks, 50, revenue)

	snap := &metrics.Snapshot{
		CampaignsCount: 1,
		AdSetsCount:    1,
		AdsCount:       2,
		Campaigns: []metrics.Campaign{{
			ID: "camp_1", Name: "Prospecting", Status: metrics.StatusActive,
			AdSets: []metrics.AdSet{{
				ID: "adset_1", Name: "Set 1", Status: metrics.StatusActive,
				Metrics: []metrics.DailyMetric{daily},
				Ads: []metrics.Ad{
					{ID: "ad_1", Name: "Ad 1", Status: metrics.StatusActive,
						Metrics: []metrics.DailyMetric{metrics.NewDailyMetric("2026-08-01", 500, 50000, clicks, 25, revenue/2)}},
					{ID: "ad_2", Name: "Ad 2", Status: metrics.StatusActive,
						Metrics: []metrics.DailyMetric{metrics.NewDailyMetric("2026-08-01", 500, 50000, 2500, 25, revenue/2)}},
				},
			}},
		}},
	}
	snap.Aggregated = metrics.ComputeAggregate(snap.Campaigns)
	require.InDelta(t, avgCTR, snap.Aggregated.AvgCTR, 0.01)
	require.InDelta(t, roas, snap.Aggregated.ROAS, 0.01)
	return snap
}

func countByType(decisions []Decision, dt DecisionType) int {
	n := 0
	for _, d := range decisions {
		if d.Type == dt {
			n++
		}
	}
	return n
}

func TestLowCTREmitsGenerateCreative(t *testing.T) {
	engine := NewRuleEngine(defaultThresholds(), NeverExplore{})

	snap := snapshotWith(t, 1.2, 2.0)
	decisions, err := engine.Analyze(context.Background(), snap)
	require.NoError(t, err)

	require.Equal(t, 1, countByType(decisions, DecisionGenerateCreative),
		"avgCTR < 2 must emit exactly one GENERATE_CREATIVE")

	for _, d := range decisions {
		if d.Type == DecisionGenerateCreative {
			assert.Equal(t, PriorityHigh, d.Priority)
			assert.Equal(t, "camp_1", d.CampaignID)
			assert.Equal(t, "adset_1", d.AdSetID)
			require.NotNil(t, d.Context)
			assert.Equal(t, "Improve CTR", d.Context.Objective)
		}
	}
}

func TestHighROASEmitsBudgetReallocate(t *testing.T) {
	engine := NewRuleEngine(defaultThresholds(), NeverExplore{})

	snap := snapshotWith(t, 3.0, 5.1)
	decisions, err := engine.Analyze(context.Background(), snap)
	require.NoError(t, err)

	require.Equal(t, 1, countByType(decisions, DecisionBudgetReallocate))
	for _, d := range decisions {
		if d.Type == DecisionBudgetReallocate {
			assert.Equal(t, PriorityHigh, d.Priority)
			require.NotNil(t, d.Realloc)
			assert.NotEmpty(t, d.Realloc.FromAdID)
			assert.NotEmpty(t, d.Realloc.ToAdID)
			assert.NotEqual(t, d.Realloc.FromAdID, d.Realloc.ToAdID)
		}
	}
}

func TestHealthyAccountEmitsNothing(t *testing.T) {
	engine := NewRuleEngine(defaultThresholds(), NeverExplore{})

	snap := snapshotWith(t, 3.0, 3.0)
	decisions, err := engine.Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestPauseUnderperformer(t *testing.T) {
	engine := NewRuleEngine(defaultThresholds(), NeverExplore{})

	// ad_1 sits below 1% CTR, ad_2 well above
	snap := snapshotWith(t, 3.0, 3.0)
	snap.Campaigns[0].AdSets[0].Ads[0].Metrics = []metrics.DailyMetric{
		metrics.NewDailyMetric("2026-08-01", 100, 50000, 300, 1, 50),
	}

	decisions, err := engine.Analyze(context.Background(), snap)
	require.NoError(t, err)

	require.Equal(t, 1, countByType(decisions, DecisionPauseUnderperformer))
	for _, d := range decisions {
		if d.Type == DecisionPauseUnderperformer {
			assert.Equal(t, "ad_1", d.TargetID, "first underperforming ad in hierarchy order")
		}
	}
}

func TestDecisionCapAtFive(t *testing.T) {
	engine := NewRuleEngine(defaultThresholds(), AlwaysExplore{})

	// Trip every rule at once: low CTR, high ROAS, underperforming ad,
	// plus both exploratory branches.
	snap := snapshotWith(t, 1.2, 5.1)
	snap.Campaigns[0].AdSets[0].Ads[0].Metrics = []metrics.DailyMetric{
		metrics.NewDailyMetric("2026-08-01", 100, 50000, 300, 1, 50),
	}

	decisions, err := engine.Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(decisions), MaxDecisions)
	assert.Len(t, decisions, 5)
}

func TestValidateDecisions(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	in := []Decision{
		{Type: DecisionGenerateCreative, Priority: PriorityHigh, Reason: "keep"},
		{Type: "DELETE_EVERYTHING", Reason: "drop"},
		{Type: DecisionPauseUnderperformer, Reason: "default priority"},
		{Type: "", Reason: "drop empty"},
		{Type: DecisionPromoteWinner, Priority: PriorityLow, Reason: "keep"},
	}

	out := ValidateDecisions(in, now)
	require.Len(t, out, 3)
	assert.Equal(t, DecisionGenerateCreative, out[0].Type)
	assert.Equal(t, PriorityMedium, out[1].Priority, "missing priority defaults to medium")
	assert.Equal(t, now, out[1].Timestamp)
}

func TestValidateDecisionsCap(t *testing.T) {
	in := make([]Decision, 8)
	for i := range in {
		in[i] = Decision{Type: DecisionGenerateCreative}
	}
	assert.Len(t, ValidateDecisions(in, time.Now()), MaxDecisions)
}

func TestLLMEngineParsesDecisions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `[{"type":"GENERATE_CREATIVE","reason":"ctr low"},{"type":"BOGUS","reason":"x"}]`
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "```json\n" + content + "\n```"}},
			},
		})
	}))
	defer server.Close()

	engine := NewLLMEngine(config.OpenAIConfig{APIKey: "k", Model: "gpt-4o"}, NewRuleEngine(defaultThresholds(), NeverExplore{}))
	engine.baseURL = server.URL

	decisions, err := engine.Analyze(context.Background(), snapshotWith(t, 3.0, 3.0))
	require.NoError(t, err)

	require.Len(t, decisions, 1, "unknown types are filtered")
	assert.Equal(t, DecisionGenerateCreative, decisions[0].Type)
	assert.Equal(t, PriorityMedium, decisions[0].Priority)
}

func TestLLMEngineFallsBackOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	engine := NewLLMEngine(config.OpenAIConfig{APIKey: "k"}, NewRuleEngine(defaultThresholds(), NeverExplore{}))
	engine.baseURL = server.URL

	// Low-CTR snapshot: the rule fallback must produce the creative decision
	decisions, err := engine.Analyze(context.Background(), snapshotWith(t, 1.2, 3.0))
	require.NoError(t, err, "LLM errors must never propagate")
	assert.Equal(t, 1, countByType(decisions, DecisionGenerateCreative))
}

func TestLLMEngineFallsBackOnGarbage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "I think you should pause some ads."}},
			},
		})
	}))
	defer server.Close()

	engine := NewLLMEngine(config.OpenAIConfig{APIKey: "k"}, NewRuleEngine(defaultThresholds(), NeverExplore{}))
	engine.baseURL = server.URL

	decisions, err := engine.Analyze(context.Background(), snapshotWith(t, 1.2, 3.0))
	require.NoError(t, err)
	assert.Equal(t, 1, countByType(decisions, DecisionGenerateCreative))
}
