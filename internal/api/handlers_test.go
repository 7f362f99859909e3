package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ads-pilot/internal/ads"
	"github.com/ignite/ads-pilot/internal/analysis"
	"github.com/ignite/ads-pilot/internal/config"
	"github.com/ignite/ads-pilot/internal/creative"
	"github.com/ignite/ads-pilot/internal/experiments"
	"github.com/ignite/ads-pilot/internal/metrics"
	"github.com/ignite/ads-pilot/internal/pipeline"
	"github.com/ignite/ads-pilot/internal/storage"
	"github.com/ignite/ads-pilot/internal/validation"
)

type alwaysValid struct{}

func (alwaysValid) ValidateCreative(image validation.Image, vctx validation.Context) validation.Result {
	return validation.Result{IsValid: true, Score: 1.0, Feedback: map[string]bool{}}
}

type testEnv struct {
	server *httptest.Server
	exec   *ads.Executor
	exps   *experiments.Manager
	store  *storage.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	exec := ads.NewExecutor(ads.NewMemoryRepo(), nil)
	exps := experiments.NewManager(7)

	generator := creative.NewGenerator(
		creative.PlaceholderProvider{},
		alwaysValid{},
		pipeline.StoreUploader{Store: store},
		exec,
		0,
	)

	ingester := metrics.NewIngester(nil, metrics.NewSyntheticGenerator(7))
	engine := analysis.NewRuleEngine(config.AnalysisConfig{
		LowCTRThreshold:   2.0,
		HighROASThreshold: 4.0,
		PauseCTRThreshold: 1.0,
	}, nil)

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Ingester:    ingester,
		Engine:      engine,
		Generator:   generator,
		Executor:    exec,
		Experiments: exps,
		Store:       store,
	})

	handlers := NewHandlers(orch, exec, exps, store, NewMetrics(prometheus.NewRegistry()))
	server := httptest.NewServer(SetupRoutes(handlers))
	t.Cleanup(server.Close)

	return &testEnv{server: server, exec: exec, exps: exps, store: store}
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]interface{}
	resp := getJSON(t, env.server.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["running"])
}

func TestTriggerRunAndStatus(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/pipeline/run", "application/json", strings.NewReader(`{"date_range_days":7}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result pipeline.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Logs)

	var status map[string]interface{}
	getJSON(t, env.server.URL+"/api/pipeline/status", &status)
	assert.Equal(t, false, status["running"])
	assert.NotNil(t, status["last_result"])

	var logs map[string]interface{}
	getJSON(t, env.server.URL+"/api/pipeline/logs", &logs)
	assert.NotEmpty(t, logs["logs"])
}

func TestReportsAfterRun(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/pipeline/run", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Reports []storage.Report `json:"reports"`
		Count   int              `json:"count"`
	}
	getJSON(t, env.server.URL+"/api/reports", &body)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "daily", body.Reports[0].Period)
	assert.NotEmpty(t, body.Reports[0].Logs)
}

func TestExperimentEndpoints(t *testing.T) {
	env := newTestEnv(t)

	exp, err := env.exps.Create(context.Background(), experiments.CreateInput{
		Name:       "Interest vs Lookalike",
		Hypothesis: "Lookalike wins",
		Variants: []experiments.Variant{
			{Name: "Variant A", Audience: "interest_stack", Metrics: experiments.VariantMetrics{Impressions: 5000, Clicks: 100, CTR: 2.0}},
			{Name: "Variant B", Audience: "lookalike_1pct", Metrics: experiments.VariantMetrics{Impressions: 5000, Clicks: 160, CTR: 3.2}},
		},
	})
	require.NoError(t, err)

	var list map[string]interface{}
	getJSON(t, env.server.URL+"/api/experiments/", &list)
	assert.Equal(t, float64(1), list["count"])

	var got experiments.Experiment
	resp := getJSON(t, env.server.URL+"/api/experiments/"+exp.ID, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, exp.ID, got.ID)

	var sig map[string]interface{}
	getJSON(t, env.server.URL+"/api/experiments/"+exp.ID+"/significance", &sig)
	assert.Equal(t, "Variant A", sig["control"])
	assert.InDelta(t, 0.99, sig["confidence"].(float64), 0.001, "160 vs 100 clicks on 5000 impressions is decisive")

	resp = getJSON(t, env.server.URL+"/api/experiments/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdRankingEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seed := func(id string, ctr, roas float64) {
		require.NoError(t, env.exec.Seed(ctx, &ads.Ad{
			ID:     id,
			Name:   "Ad " + id,
			Status: ads.StatusActive,
			Metrics: ads.Metrics{
				CTR:  ctr,
				ROAS: roas,
			},
			CreatedAt: time.Now(),
		}))
	}
	seed("a", 3.0, 6.0)
	seed("b", 2.5, 4.0)
	seed("c", 0.8, 1.2)

	var top struct {
		Ads []ads.Ad `json:"ads"`
	}
	getJSON(t, env.server.URL+"/api/ads/top?limit=2", &top)
	require.Len(t, top.Ads, 2)
	assert.Equal(t, "a", top.Ads[0].ID, "sorted by ROAS descending")

	var under struct {
		Ads []ads.Underperformer `json:"ads"`
	}
	getJSON(t, env.server.URL+"/api/ads/underperforming", &under)
	require.Len(t, under.Ads, 1)
	assert.Equal(t, "c", under.Ads[0].Ad.ID)
	assert.Equal(t, "Refresh creative", under.Ads[0].Recommendation)
}

func TestSequentialRunsBothSucceed(t *testing.T) {
	env := newTestEnv(t)

	// Runs are synchronous, so back-to-back posts both go through. The
	// in-flight rejection path is covered at the pipeline level.
	resp, err := http.Post(env.server.URL+"/api/pipeline/run", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(env.server.URL+"/api/pipeline/run", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/pipeline/run", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "adspilot_pipeline_runs_total")
	assert.Contains(t, string(body), `outcome="success"`)
}
