package ads

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAd(t *testing.T, repo *MemoryRepo, id string, status string, ctr, roas float64) {
	t.Helper()
	err := repo.Upsert(context.Background(), &Ad{
		ID:     id,
		Name:   id,
		Status: status,
		Metrics: Metrics{
			Spend: 100, Impressions: 10000, Clicks: int64(100 * ctr),
			CTR: ctr, ROAS: roas,
		},
	})
	require.NoError(t, err)
}

func TestCreateAdDefaultsCTA(t *testing.T) {
	exec := NewExecutor(NewMemoryRepo(), nil)

	ad, err := exec.CreateAd(context.Background(), CreateAdInput{
		Name:       "Creative Refresh",
		CampaignID: "camp_1",
		AdSetID:    "adset_1",
		Creative:   Creative{AssetURL: "https://cdn.example.com/a.png", Headline: "Hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusActive, ad.Status)
	assert.Equal(t, "Learn More", ad.Creative.CTA)
	assert.NotEmpty(t, ad.ID)
}

func TestPauseAd(t *testing.T) {
	repo := NewMemoryRepo()
	exec := NewExecutor(repo, nil)
	seedAd(t, repo, "ad_1", StatusActive, 2.0, 3.0)

	require.NoError(t, exec.PauseAd(context.Background(), "ad_1"))

	ad, err := repo.Get(context.Background(), "ad_1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, ad.Status)
}

func TestPauseAdNotFound(t *testing.T) {
	exec := NewExecutor(NewMemoryRepo(), nil)
	assert.ErrorIs(t, exec.PauseAd(context.Background(), "missing"), ErrNotFound)
}

func TestPromoteAdBoostsSpend(t *testing.T) {
	repo := NewMemoryRepo()
	exec := NewExecutor(repo, nil)
	seedAd(t, repo, "ad_1", StatusActive, 3.0, 6.0)

	require.NoError(t, exec.PromoteAd(context.Background(), "ad_1"))

	ad, err := repo.Get(context.Background(), "ad_1")
	require.NoError(t, err)
	assert.Equal(t, StatusPromoted, ad.Status)
	assert.InDelta(t, 150.0, ad.Metrics.Spend, 1e-9, "demo boost multiplies spend by 1.5 exactly once")
}

func TestReallocateBudgetRecordsTransfer(t *testing.T) {
	repo := NewMemoryRepo()
	exec := NewExecutor(repo, nil)
	seedAd(t, repo, "ad_from", StatusActive, 1.0, 1.0)
	seedAd(t, repo, "ad_to", StatusActive, 3.0, 6.0)

	require.NoError(t, exec.ReallocateBudget(context.Background(), "ad_from", "ad_to", 50))

	transfers := exec.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, "ad_from", transfers[0].FromAdID)
	assert.Equal(t, "ad_to", transfers[0].ToAdID)
	assert.Equal(t, 50.0, transfers[0].Amount)
}

func TestLaunchVariantTagsAd(t *testing.T) {
	repo := NewMemoryRepo()
	exec := NewExecutor(repo, nil)

	ad, err := exec.LaunchVariant(context.Background(), VariantInput{
		ExperimentID: "exp_1",
		VariantName:  "Variant B",
		CampaignID:   "camp_1",
		AdSetID:      "adset_1",
		Creative:     Creative{Headline: "B side"},
	})
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), ad.ID)
	require.NoError(t, err)
	assert.Equal(t, "exp_1", stored.ExperimentID)
	assert.Equal(t, "Variant B", stored.VariantName)
	assert.Equal(t, StatusActive, stored.Status)
}

func TestTopPerformersSortedByROAS(t *testing.T) {
	repo := NewMemoryRepo()
	exec := NewExecutor(repo, nil)
	seedAd(t, repo, "a", StatusActive, 2.0, 1.5)
	seedAd(t, repo, "b", StatusActive, 2.0, 6.0)
	seedAd(t, repo, "c", StatusActive, 2.0, 3.5)
	seedAd(t, repo, "d", StatusPaused, 2.0, 9.0) // paused, excluded

	top, err := exec.TopPerformers(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].ID)
	assert.Equal(t, "c", top[1].ID)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Metrics.ROAS, top[i].Metrics.ROAS)
	}
}

func TestUnderperformersThresholds(t *testing.T) {
	repo := NewMemoryRepo()
	exec := NewExecutor(repo, nil)
	seedAd(t, repo, "healthy", StatusActive, 2.0, 3.0)
	seedAd(t, repo, "low_ctr", StatusActive, 0.8, 3.0)
	seedAd(t, repo, "low_roas", StatusActive, 2.0, 1.2)
	seedAd(t, repo, "paused", StatusPaused, 0.1, 0.1)

	under, err := exec.Underperformers(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, under, 2)

	// Never an ad with both CTR>=1.5 and ROAS>=2
	for _, u := range under {
		ok := u.Ad.Metrics.CTR < 1.5 || u.Ad.Metrics.ROAS < 2.0
		assert.True(t, ok, "ad %s should not be listed", u.Ad.ID)
	}

	// Sorted ascending by ROAS
	assert.Equal(t, "low_roas", under[0].Ad.ID)
	assert.Equal(t, "low_ctr", under[1].Ad.ID)

	byID := map[string]Underperformer{}
	for _, u := range under {
		byID[u.Ad.ID] = u
	}
	assert.Equal(t, "Refresh creative", byID["low_ctr"].Recommendation)
	assert.Equal(t, "Review targeting", byID["low_roas"].Recommendation)
}

func TestUnderperformersLimit(t *testing.T) {
	repo := NewMemoryRepo()
	exec := NewExecutor(repo, nil)
	for _, id := range []string{"u1", "u2", "u3"} {
		seedAd(t, repo, id, StatusActive, 0.5, 0.5)
	}

	under, err := exec.Underperformers(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, under, 2)
}
