package metrics

import (
	"fmt"
	"math/rand"
	"time"
)

// SyntheticGenerator produces demo datasets with realistic performance shapes.
// The random source is injected so tests get reproducible data.
type SyntheticGenerator struct {
	rng *rand.Rand
}

// NewSyntheticGenerator creates a generator from a seed
func NewSyntheticGenerator(seed int64) *SyntheticGenerator {
	return &SyntheticGenerator{rng: rand.New(rand.NewSource(seed))}
}

// Generate builds a three-campaign account with per-day metrics across the range
func (g *SyntheticGenerator) Generate(dateRange DateRange) []Campaign {
	campaignNames := []string{"Lead Gen - Prospecting", "Retargeting - Warm Audiences", "Conversions - Lookalike"}

	campaigns := make([]Campaign, 0, len(campaignNames))
	for ci, name := range campaignNames {
		campaign := Campaign{
			ID:     fmt.Sprintf("camp_%d", ci+1),
			Name:   name,
			Status: StatusActive,
		}

		adSetCount := 2 + g.rng.Intn(2)
		for si := 0; si < adSetCount; si++ {
			adSet := AdSet{
				ID:     fmt.Sprintf("adset_%d_%d", ci+1, si+1),
				Name:   fmt.Sprintf("%s - Set %d", name, si+1),
				Status: StatusActive,
			}

			adCount := 2 + g.rng.Intn(3)
			for ai := 0; ai < adCount; ai++ {
				ad := Ad{
					ID:         fmt.Sprintf("ad_%d_%d_%d", ci+1, si+1, ai+1),
					Name:       fmt.Sprintf("Ad %d.%d.%d", ci+1, si+1, ai+1),
					Status:     StatusActive,
					CreativeID: fmt.Sprintf("creative_%d_%d_%d", ci+1, si+1, ai+1),
					Metrics:    g.dailyMetrics(dateRange),
				}
				adSet.Ads = append(adSet.Ads, ad)
			}

			adSet.Metrics = g.dailyMetrics(dateRange)
			campaign.AdSets = append(campaign.AdSets, adSet)
		}

		campaigns = append(campaigns, campaign)
	}

	return campaigns
}

// dailyMetrics synthesizes one row per day. Base fields (spend, impressions,
// clicks, conversions) are random; every derived field is computed from them
// so the dataset satisfies the same invariants live data does.
func (g *SyntheticGenerator) dailyMetrics(dateRange DateRange) []DailyMetric {
	days := dateRange.Days()
	rows := make([]DailyMetric, 0, days)

	for d := 0; d < days; d++ {
		date := dateRange.Since.AddDate(0, 0, d)

		spend := 20 + g.rng.Float64()*180
		impressions := int64(2000 + g.rng.Intn(18000))
		clicks := int64(float64(impressions) * (0.005 + g.rng.Float64()*0.03))
		conversions := int64(float64(clicks) * (0.02 + g.rng.Float64()*0.10))
		revenue := float64(conversions) * (25 + g.rng.Float64()*75)

		rows = append(rows, NewDailyMetric(date.Format("2006-01-02"), spend, impressions, clicks, conversions, revenue))
	}

	return rows
}

// NewDailyMetric computes every derived field from the base fields
func NewDailyMetric(date string, spend float64, impressions, clicks, conversions int64, revenue float64) DailyMetric {
	m := DailyMetric{
		Date:        date,
		Spend:       spend,
		Impressions: impressions,
		Clicks:      clicks,
		Conversions: conversions,
		Revenue:     revenue,
	}
	if impressions > 0 {
		m.CTR = float64(clicks) / float64(impressions) * 100
		m.CPM = spend / float64(impressions) * 1000
	}
	if clicks > 0 {
		m.CPC = spend / float64(clicks)
		m.ConversionRate = float64(conversions) / float64(clicks) * 100
	}
	if spend > 0 {
		m.ROAS = revenue / spend
	}
	return m
}

// DefaultDateRange returns the trailing n-day window ending today
func DefaultDateRange(days int) DateRange {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	return DateRange{
		Since: now.AddDate(0, 0, -(days - 1)),
		Until: now,
	}
}
