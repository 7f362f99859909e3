// Package metrics ingests ad-performance data for the optimization pipeline.
// It normalizes the Meta Marketing API insights hierarchy (campaign → ad set
// → ad → daily metrics) into a Snapshot, or synthesizes an equivalent dataset
// in demo mode.
package metrics

import "time"

// Status values for campaigns, ad sets and ads
const (
	StatusActive = "ACTIVE"
	StatusPaused = "PAUSED"
)

// DateRange bounds an insights query
type DateRange struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// Days returns the inclusive number of days covered by the range
func (r DateRange) Days() int {
	d := int(r.Until.Sub(r.Since).Hours()/24) + 1
	if d < 1 {
		return 1
	}
	return d
}

// DailyMetric holds one day of performance for an ad or ad set. Derived
// fields are always computed from the base fields: ctr = clicks/impressions*100,
// cpc = spend/clicks, cpm = spend/impressions*1000, roas = revenue/spend.
type DailyMetric struct {
	Date           string  `json:"date"`
	Spend          float64 `json:"spend"`
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	CTR            float64 `json:"ctr"`
	CPC            float64 `json:"cpc"`
	CPM            float64 `json:"cpm"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
	Revenue        float64 `json:"revenue"`
	ROAS           float64 `json:"roas"`
}

// Ad is a single ad within an ad set
type Ad struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	CreativeID string        `json:"creative_id"`
	Metrics    []DailyMetric `json:"metrics"`
}

// AvgCTR returns the ad's click-through rate across its daily metrics
func (a Ad) AvgCTR() float64 {
	var impressions, clicks int64
	for _, m := range a.Metrics {
		impressions += m.Impressions
		clicks += m.Clicks
	}
	if impressions == 0 {
		return 0
	}
	return float64(clicks) / float64(impressions) * 100
}

// AdSet groups ads under a campaign
type AdSet struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Status  string        `json:"status"`
	Ads     []Ad          `json:"ads"`
	Metrics []DailyMetric `json:"metrics"`
}

// Campaign is the top of the insights hierarchy
type Campaign struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Status string  `json:"status"`
	AdSets []AdSet `json:"ad_sets"`
}

// Aggregate holds account-wide totals and derived averages. Values are
// recomputed from the full dataset on every ingest, never updated
// incrementally.
type Aggregate struct {
	TotalSpend       float64 `json:"total_spend"`
	TotalImpressions int64   `json:"total_impressions"`
	TotalClicks      int64   `json:"total_clicks"`
	TotalConversions int64   `json:"total_conversions"`
	TotalRevenue     float64 `json:"total_revenue"`
	AvgCTR           float64 `json:"avg_ctr"`
	AvgCPC           float64 `json:"avg_cpc"`
	AvgCPM           float64 `json:"avg_cpm"`
	ConversionRate   float64 `json:"conversion_rate"`
	ROAS             float64 `json:"roas"`
}

// Snapshot is the normalized performance dataset for one ingest call
type Snapshot struct {
	CampaignsCount int        `json:"campaigns_count"`
	AdSetsCount    int        `json:"ad_sets_count"`
	AdsCount       int        `json:"ads_count"`
	DateRange      DateRange  `json:"date_range"`
	Campaigns      []Campaign `json:"campaigns"`
	Aggregated     Aggregate  `json:"aggregated"`
}

// AllAds returns every ad in the snapshot in hierarchy order
func (s *Snapshot) AllAds() []Ad {
	var ads []Ad
	for _, c := range s.Campaigns {
		for _, as := range c.AdSets {
			ads = append(ads, as.Ads...)
		}
	}
	return ads
}
