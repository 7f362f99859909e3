// Package experiments owns the A/B test lifecycle: creation, simulated
// progress tracking, a simplified confidence score, and winner promotion.
package experiments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Experiment status values. Transitions only move forward:
// scheduled → running → completed.
const (
	StatusScheduled = "scheduled"
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// ErrNotFound is returned for unknown experiment ids
var ErrNotFound = errors.New("experiment not found")

// VariantMetrics is the simulated performance of one experiment arm
type VariantMetrics struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	Conversions int64   `json:"conversions"`
	Spend       float64 `json:"spend"`
}

// Variant is one arm of an A/B test
type Variant struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Audience  string         `json:"audience,omitempty"`
	Metrics   VariantMetrics `json:"metrics"`
	IsWinning bool           `json:"is_winning"`
	IsWinner  bool           `json:"is_winner"`
}

// Experiment is a full A/B test record
type Experiment struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Hypothesis   string    `json:"hypothesis"`
	Status       string    `json:"status"`
	StartDate    time.Time `json:"start_date"`
	DurationDays int       `json:"duration_days"`
	Budget       float64   `json:"budget,omitempty"`
	Progress     float64   `json:"progress"`   // 0..100
	Confidence   float64   `json:"confidence"` // 0..95
	TargetMetric string    `json:"target_metric"`
	Variants     []Variant `json:"variants"`
	Winner       string    `json:"winner,omitempty"`
	Result       string    `json:"result,omitempty"`
}

// CreateInput carries the fields for experiment creation. DurationDays nil
// means the 7-day default; an explicit zero is honored (the experiment
// concludes on its first check).
type CreateInput struct {
	Name          string
	Hypothesis    string
	Variants      []Variant
	TargetMetrics []string
	Budget        float64
	DurationDays  *int
}

// PromotionCandidate pairs an experiment with the check verdict
type PromotionCandidate struct {
	Experiment *Experiment
	Reason     string
}

// Manager tracks experiments in memory. Clock and randomness are injected so
// progress and the simulated drift are reproducible in tests.
type Manager struct {
	mu          sync.RWMutex
	experiments map[string]*Experiment
	rng         *rand.Rand
	now         func() time.Time
}

// NewManager creates a manager with a seeded random source
func NewManager(seed int64) *Manager {
	return &Manager{
		experiments: make(map[string]*Experiment),
		rng:         rand.New(rand.NewSource(seed)),
		now:         time.Now,
	}
}

// SetClock overrides the time source (tests only)
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Create registers a new experiment in scheduled state. Defaults: target
// metrics CTR then ROAS (CTR is the primary), duration 7 days.
func (m *Manager) Create(ctx context.Context, input CreateInput) (*Experiment, error) {
	if len(input.Variants) < 2 {
		return nil, fmt.Errorf("experiment needs at least two variants, got %d", len(input.Variants))
	}

	targets := input.TargetMetrics
	if len(targets) == 0 {
		targets = []string{"CTR", "ROAS"}
	}
	duration := 7
	if input.DurationDays != nil {
		duration = *input.DurationDays
	}

	exp := &Experiment{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Hypothesis:   input.Hypothesis,
		Status:       StatusScheduled,
		StartDate:    m.now(),
		DurationDays: duration,
		Budget:       input.Budget,
		TargetMetric: targets[0],
	}

	for _, v := range input.Variants {
		v.ID = uuid.NewString()
		exp.Variants = append(exp.Variants, v)
	}

	m.mu.Lock()
	m.experiments[exp.ID] = exp
	m.mu.Unlock()

	log.Printf("[Experiments] created %q (%s), %d variants, %dd duration", exp.Name, exp.ID, len(exp.Variants), duration)
	return exp, nil
}

// Get returns an experiment by id
func (m *Manager) Get(ctx context.Context, id string) (*Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exp, ok := m.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *exp
	copied.Variants = append([]Variant(nil), exp.Variants...)
	return &copied, nil
}

// List returns experiments filtered by status ("" for all)
func (m *Manager) List(ctx context.Context, status string) []Experiment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Experiment, 0, len(m.experiments))
	for _, exp := range m.experiments {
		if status != "" && exp.Status != status {
			continue
		}
		copied := *exp
		copied.Variants = append([]Variant(nil), exp.Variants...)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

// CheckAll advances every non-completed experiment: scheduled experiments
// whose start date has arrived begin running; running experiments get a
// progress update, a simulated metrics drift, and a confidence recompute.
// It returns the experiments ready for winner promotion (confidence >= 95 or
// progress >= 100).
func (m *Manager) CheckAll(ctx context.Context) []PromotionCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var ready []PromotionCandidate

	for _, exp := range m.experiments {
		if exp.Status == StatusScheduled && !now.Before(exp.StartDate) {
			exp.Status = StatusRunning
			log.Printf("[Experiments] %q is now running", exp.Name)
		}
		if exp.Status != StatusRunning {
			continue
		}

		exp.Progress = m.progressOf(exp, now)
		m.simulateDrift(exp)
		exp.Confidence = m.confidenceOf(exp)
		m.markLeading(exp)

		if exp.Confidence >= 95 || exp.Progress >= 100 {
			reason := fmt.Sprintf("confidence %.0f, progress %.0f%%", exp.Confidence, exp.Progress)
			ready = append(ready, PromotionCandidate{Experiment: exp, Reason: reason})
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		return ready[i].Experiment.StartDate.Before(ready[j].Experiment.StartDate)
	})
	return ready
}

// progressOf computes elapsed time over duration as a percentage, capped at 100
func (m *Manager) progressOf(exp *Experiment, now time.Time) float64 {
	if exp.DurationDays <= 0 {
		return 100
	}
	elapsed := now.Sub(exp.StartDate)
	total := time.Duration(exp.DurationDays) * 24 * time.Hour
	p := float64(elapsed) / float64(total) * 100
	return math.Min(100, math.Max(0, p))
}

// simulateDrift adds a round of traffic to every variant, tilted toward
// variant index 1 so demo experiments converge on a winner
func (m *Manager) simulateDrift(exp *Experiment) {
	for i := range exp.Variants {
		v := &exp.Variants[i]

		impressions := int64(400 + m.rng.Intn(600))
		ctr := 0.010 + m.rng.Float64()*0.010
		if i == 1 {
			ctr += 0.006
		}
		clicks := int64(float64(impressions) * ctr)
		conversions := int64(float64(clicks) * 0.05)

		v.Metrics.Impressions += impressions
		v.Metrics.Clicks += clicks
		v.Metrics.Conversions += conversions
		v.Metrics.Spend += float64(impressions) * 0.01
		if v.Metrics.Impressions > 0 {
			v.Metrics.CTR = float64(v.Metrics.Clicks) / float64(v.Metrics.Impressions) * 100
		}
	}
}

// confidenceOf applies the simplified confidence proxy:
// min(95, minImpressions/1000*20 + ctrDifference*10). The value never
// decreases across checks.
func (m *Manager) confidenceOf(exp *Experiment) float64 {
	if len(exp.Variants) < 2 {
		return exp.Confidence
	}

	minImpressions := exp.Variants[0].Metrics.Impressions
	for _, v := range exp.Variants[1:] {
		if v.Metrics.Impressions < minImpressions {
			minImpressions = v.Metrics.Impressions
		}
	}

	minCTR, maxCTR := exp.Variants[0].Metrics.CTR, exp.Variants[0].Metrics.CTR
	for _, v := range exp.Variants[1:] {
		minCTR = math.Min(minCTR, v.Metrics.CTR)
		maxCTR = math.Max(maxCTR, v.Metrics.CTR)
	}

	confidence := math.Min(95, float64(minImpressions)/1000*20+(maxCTR-minCTR)*10)
	return math.Max(exp.Confidence, confidence)
}

// markLeading flags the variant currently ahead on the target metric
func (m *Manager) markLeading(exp *Experiment) {
	best := m.bestVariantIndex(exp)
	for i := range exp.Variants {
		exp.Variants[i].IsWinning = i == best
	}
}

func (m *Manager) bestVariantIndex(exp *Experiment) int {
	best := 0
	for i := range exp.Variants {
		if m.metricValue(exp.Variants[i], exp.TargetMetric) > m.metricValue(exp.Variants[best], exp.TargetMetric) {
			best = i
		}
	}
	return best
}

func (m *Manager) metricValue(v Variant, metric string) float64 {
	switch metric {
	case "ROAS":
		if v.Metrics.Spend == 0 {
			return 0
		}
		// Simulated revenue proxy: conversions at a fixed order value
		return float64(v.Metrics.Conversions) * 40 / v.Metrics.Spend
	case "CONVERSIONS":
		return float64(v.Metrics.Conversions)
	default: // CTR
		return v.Metrics.CTR
	}
}

// PromoteWinner concludes an experiment: the best variant by target metric is
// marked the winner, losers are marked accordingly, and the experiment moves
// to completed. Repeated calls on a completed experiment are no-ops that
// return the recorded result. Returns the improvement percentage of the
// winner over the runner-up.
func (m *Manager) PromoteWinner(ctx context.Context, id string) (*Experiment, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.experiments[id]
	if !ok {
		return nil, 0, ErrNotFound
	}

	if exp.Status == StatusCompleted {
		copied := *exp
		return &copied, 0, nil
	}

	best := m.bestVariantIndex(exp)
	winner := &exp.Variants[best]

	var runnerUp *Variant
	for i := range exp.Variants {
		if i == best {
			continue
		}
		if runnerUp == nil || m.metricValue(exp.Variants[i], exp.TargetMetric) > m.metricValue(*runnerUp, exp.TargetMetric) {
			runnerUp = &exp.Variants[i]
		}
	}

	improvement := 0.0
	if runnerUp != nil {
		loserValue := m.metricValue(*runnerUp, exp.TargetMetric)
		if loserValue > 0 {
			improvement = (m.metricValue(*winner, exp.TargetMetric) - loserValue) / loserValue * 100
		}
	}

	for i := range exp.Variants {
		exp.Variants[i].IsWinner = i == best
		exp.Variants[i].IsWinning = i == best
	}
	exp.Status = StatusCompleted
	exp.Winner = winner.Name
	exp.Result = fmt.Sprintf("%s won on %s with %.1f%% improvement", winner.Name, exp.TargetMetric, improvement)

	log.Printf("[Experiments] promoted winner %q for %q (+%.1f%% %s)", winner.Name, exp.Name, improvement, exp.TargetMetric)

	copied := *exp
	copied.Variants = append([]Variant(nil), exp.Variants...)
	return &copied, improvement, nil
}

// Significance runs a pooled two-proportion z-test on clicks/impressions for
// two variants and returns an approximate confidence level. Exposed for the
// API surface; the pipeline's promotion gate uses the simplified proxy above.
func Significance(control, variant Variant) float64 {
	if control.Metrics.Impressions < 30 || variant.Metrics.Impressions < 30 {
		return 0
	}

	p1 := float64(control.Metrics.Clicks) / float64(control.Metrics.Impressions)
	p2 := float64(variant.Metrics.Clicks) / float64(variant.Metrics.Impressions)

	pooled := float64(control.Metrics.Clicks+variant.Metrics.Clicks) /
		float64(control.Metrics.Impressions+variant.Metrics.Impressions)

	se := math.Sqrt(pooled * (1 - pooled) *
		(1/float64(control.Metrics.Impressions) + 1/float64(variant.Metrics.Impressions)))
	if se == 0 {
		return 0
	}

	z := math.Abs(p2-p1) / se
	switch {
	case z >= 2.576:
		return 0.99
	case z >= 1.96:
		return 0.95
	case z >= 1.645:
		return 0.90
	case z >= 1.28:
		return 0.80
	default:
		return z / 1.28 * 0.80
	}
}
