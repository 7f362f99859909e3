package experiments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func twoVariants() []Variant {
	return []Variant{
		{Name: "Variant A", Audience: "interest_stack"},
		{Name: "Variant B", Audience: "lookalike_1pct"},
	}
}

func TestCreateDefaults(t *testing.T) {
	m := NewManager(1)

	exp, err := m.Create(context.Background(), CreateInput{
		Name:       "Interest vs Lookalike",
		Hypothesis: "Lookalike wins",
		Variants:   twoVariants(),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, exp.Status)
	assert.Equal(t, 7, exp.DurationDays)
	assert.Equal(t, "CTR", exp.TargetMetric)
	require.Len(t, exp.Variants, 2)
	assert.NotEmpty(t, exp.Variants[0].ID)
}

func TestCreateRecordsBudget(t *testing.T) {
	m := NewManager(1)

	exp, err := m.Create(context.Background(), CreateInput{
		Name:     "Budgeted",
		Variants: twoVariants(),
		Budget:   100,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, exp.Budget)
}

func TestCreateRequiresTwoVariants(t *testing.T) {
	m := NewManager(1)
	_, err := m.Create(context.Background(), CreateInput{
		Name:     "Solo",
		Variants: []Variant{{Name: "Only"}},
	})
	assert.Error(t, err)
}

func TestCheckAllStartsScheduledExperiments(t *testing.T) {
	m := NewManager(1)
	exp, err := m.Create(context.Background(), CreateInput{Name: "T", Variants: twoVariants()})
	require.NoError(t, err)

	m.CheckAll(context.Background())

	got, err := m.Get(context.Background(), exp.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Greater(t, got.Variants[0].Metrics.Impressions, int64(0), "drift applied on first check")
}

func TestProgressReflectsElapsedTime(t *testing.T) {
	m := NewManager(1)

	created := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return created })

	exp, err := m.Create(context.Background(), CreateInput{
		Name: "T", Variants: twoVariants(), DurationDays: intPtr(10),
	})
	require.NoError(t, err)

	// Halfway through the 10-day window
	m.SetClock(func() time.Time { return created.AddDate(0, 0, 5) })
	m.CheckAll(context.Background())

	got, _ := m.Get(context.Background(), exp.ID)
	assert.InDelta(t, 50.0, got.Progress, 0.01)

	// Well past the end: capped at 100
	m.SetClock(func() time.Time { return created.AddDate(0, 0, 30) })
	m.CheckAll(context.Background())

	got, _ = m.Get(context.Background(), exp.ID)
	assert.Equal(t, 100.0, got.Progress)
}

func TestConfidenceMonotoneAndClamped(t *testing.T) {
	m := NewManager(7)
	exp, err := m.Create(context.Background(), CreateInput{Name: "T", Variants: twoVariants()})
	require.NoError(t, err)

	prev := 0.0
	for i := 0; i < 50; i++ {
		m.CheckAll(context.Background())
		got, _ := m.Get(context.Background(), exp.ID)

		assert.GreaterOrEqual(t, got.Confidence, prev, "confidence must never decrease")
		assert.LessOrEqual(t, got.Confidence, 95.0, "confidence is clamped to 95")
		prev = got.Confidence
	}
}

func TestDriftFavorsSecondVariant(t *testing.T) {
	m := NewManager(3)
	exp, err := m.Create(context.Background(), CreateInput{Name: "T", Variants: twoVariants()})
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		m.CheckAll(context.Background())
	}

	got, _ := m.Get(context.Background(), exp.ID)
	assert.Greater(t, got.Variants[1].Metrics.CTR, got.Variants[0].Metrics.CTR,
		"simulated drift tilts toward variant index 1")
	assert.True(t, got.Variants[1].IsWinning)
	assert.False(t, got.Variants[0].IsWinning)
}

func TestZeroDurationPromotableOnFirstCheck(t *testing.T) {
	m := NewManager(1)
	exp, err := m.Create(context.Background(), CreateInput{
		Name: "Instant", Variants: twoVariants(), DurationDays: intPtr(0),
	})
	require.NoError(t, err)

	ready := m.CheckAll(context.Background())

	require.Len(t, ready, 1)
	assert.Equal(t, exp.ID, ready[0].Experiment.ID)
	assert.Equal(t, 100.0, ready[0].Experiment.Progress)
}

func TestPromoteWinner(t *testing.T) {
	m := NewManager(3)
	exp, err := m.Create(context.Background(), CreateInput{
		Name: "T", Variants: twoVariants(), DurationDays: intPtr(0),
	})
	require.NoError(t, err)
	m.CheckAll(context.Background())

	promoted, improvement, err := m.PromoteWinner(context.Background(), exp.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, promoted.Status)
	assert.NotEmpty(t, promoted.Winner)
	assert.GreaterOrEqual(t, improvement, 0.0)

	winners := 0
	for _, v := range promoted.Variants {
		if v.IsWinner {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one variant carries IsWinner")

	// Idempotent on completed experiments
	again, _, err := m.PromoteWinner(context.Background(), exp.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, again.Status)
	assert.Equal(t, promoted.Winner, again.Winner)
}

func TestPromoteWinnerNotFound(t *testing.T) {
	m := NewManager(1)
	_, _, err := m.PromoteWinner(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusNeverMovesBackward(t *testing.T) {
	m := NewManager(1)
	exp, err := m.Create(context.Background(), CreateInput{
		Name: "T", Variants: twoVariants(), DurationDays: intPtr(0),
	})
	require.NoError(t, err)

	m.CheckAll(context.Background())
	_, _, err = m.PromoteWinner(context.Background(), exp.ID)
	require.NoError(t, err)

	// Subsequent checks must not resurrect a completed experiment
	m.CheckAll(context.Background())
	got, _ := m.Get(context.Background(), exp.ID)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestSignificance(t *testing.T) {
	control := Variant{Metrics: VariantMetrics{Impressions: 10000, Clicks: 100}}
	clearWin := Variant{Metrics: VariantMetrics{Impressions: 10000, Clicks: 200}}
	noDiff := Variant{Metrics: VariantMetrics{Impressions: 10000, Clicks: 101}}
	tiny := Variant{Metrics: VariantMetrics{Impressions: 10, Clicks: 1}}

	assert.GreaterOrEqual(t, Significance(control, clearWin), 0.95)
	assert.Less(t, Significance(control, noDiff), 0.80)
	assert.Equal(t, 0.0, Significance(control, tiny), "insufficient sample returns 0")
}
