// Package api exposes the pipeline over HTTP: trigger runs, inspect status
// and logs, browse reports, experiments and ad rankings.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/ads-pilot/internal/ads"
	"github.com/ignite/ads-pilot/internal/experiments"
	"github.com/ignite/ads-pilot/internal/pipeline"
	"github.com/ignite/ads-pilot/internal/storage"
)

// Handlers holds the API dependencies
type Handlers struct {
	orchestrator *pipeline.Orchestrator
	executor     *ads.Executor
	experiments  *experiments.Manager
	store        storage.Store
	metrics      *Metrics
	startTime    time.Time
}

// NewHandlers creates the handler set
func NewHandlers(orch *pipeline.Orchestrator, executor *ads.Executor, exps *experiments.Manager, store storage.Store, metrics *Metrics) *Handlers {
	return &Handlers{
		orchestrator: orch,
		executor:     executor,
		experiments:  exps,
		store:        store,
		metrics:      metrics,
		startTime:    time.Now(),
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck reports process liveness and whether a run is in flight
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"running": h.orchestrator.Running(),
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
	})
}

type runRequest struct {
	DateRangeDays int `json:"date_range_days"`
}

// TriggerRun starts a pipeline run synchronously. A 409 is returned when a
// run is already in flight.
//
//	POST /api/pipeline/run
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	// An empty body means defaults; a malformed one is rejected
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	started := time.Now()
	result := h.orchestrator.Run(r.Context(), pipeline.Options{DateRangeDays: req.DateRangeDays})

	if !result.Success && result.Message == "Pipeline already running" {
		respondJSON(w, http.StatusConflict, result)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveRun(result, time.Since(started))
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, result)
}

// RunStatus reports whether a run is in flight and the last run's outcome
//
//	GET /api/pipeline/status
func (h *Handlers) RunStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running":     h.orchestrator.Running(),
		"last_result": h.orchestrator.LastResult(),
	})
}

// RunLogs returns the log of the most recent run
//
//	GET /api/pipeline/logs
func (h *Handlers) RunLogs(w http.ResponseWriter, r *http.Request) {
	last := h.orchestrator.LastResult()
	if last == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"logs": []storage.LogEntry{}})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"logs": last.Logs})
}

// ListReports returns persisted run reports, newest first
//
//	GET /api/reports?period=daily
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "daily"
	}

	reports, err := h.store.GetReports(r.Context(), period)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reports == nil {
		reports = []storage.Report{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reports": reports, "count": len(reports)})
}

// ListCreatives returns stored creative assets
//
//	GET /api/creatives?campaign_id=...
func (h *Handlers) ListCreatives(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.ListCreatives(r.Context(), storage.AssetFilter{
		CampaignID: r.URL.Query().Get("campaign_id"),
		Type:       r.URL.Query().Get("type"),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if assets == nil {
		assets = []storage.Asset{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"assets": assets, "count": len(assets)})
}

// ListExperiments returns experiments filtered by status
//
//	GET /api/experiments?status=running
func (h *Handlers) ListExperiments(w http.ResponseWriter, r *http.Request) {
	exps := h.experiments.List(r.Context(), r.URL.Query().Get("status"))
	respondJSON(w, http.StatusOK, map[string]interface{}{"experiments": exps, "count": len(exps)})
}

// GetExperiment returns one experiment by id
//
//	GET /api/experiments/{id}
func (h *Handlers) GetExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := h.experiments.Get(r.Context(), chi.URLParam(r, "id"))
	if err == experiments.ErrNotFound {
		respondError(w, http.StatusNotFound, "experiment not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, exp)
}

// ExperimentSignificance runs the z-test on the experiment's first two variants
//
//	GET /api/experiments/{id}/significance
func (h *Handlers) ExperimentSignificance(w http.ResponseWriter, r *http.Request) {
	exp, err := h.experiments.Get(r.Context(), chi.URLParam(r, "id"))
	if err == experiments.ErrNotFound {
		respondError(w, http.StatusNotFound, "experiment not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(exp.Variants) < 2 {
		respondError(w, http.StatusUnprocessableEntity, "experiment needs two variants for significance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"experiment_id": exp.ID,
		"control":       exp.Variants[0].Name,
		"variant":       exp.Variants[1].Name,
		"confidence":    experiments.Significance(exp.Variants[0], exp.Variants[1]),
	})
}

// TopAds returns the best active ads by ROAS
//
//	GET /api/ads/top?limit=5
func (h *Handlers) TopAds(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 5)
	top, err := h.executor.TopPerformers(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if top == nil {
		top = []ads.Ad{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ads": top, "count": len(top)})
}

// UnderperformingAds returns active ads breaching the performance floor
//
//	GET /api/ads/underperforming?limit=5
func (h *Handlers) UnderperformingAds(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 5)
	under, err := h.executor.Underperformers(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if under == nil {
		under = []ads.Underperformer{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ads": under, "count": len(under)})
}

func parseLimit(r *http.Request, fallback int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
