package metrics

import (
	"context"
	"log"
)

// Source fetches the campaign hierarchy from a live ads API
type Source interface {
	FetchCampaigns(ctx context.Context, dateRange DateRange) ([]Campaign, error)
}

// Ingester produces a normalized performance Snapshot per call. When a live
// source is configured it is tried first; a fetch failure downgrades to the
// synthetic generator rather than failing the run.
type Ingester struct {
	source    Source
	generator *SyntheticGenerator
}

// NewIngester creates an ingester. source may be nil for pure demo mode.
func NewIngester(source Source, generator *SyntheticGenerator) *Ingester {
	return &Ingester{source: source, generator: generator}
}

// Ingest builds a fresh Snapshot for the date range. Aggregates are always
// recomputed from the full dataset.
func (i *Ingester) Ingest(ctx context.Context, dateRange DateRange) (*Snapshot, error) {
	var campaigns []Campaign

	if i.source != nil {
		fetched, err := i.source.FetchCampaigns(ctx, dateRange)
		if err != nil {
			log.Printf("[Ingester] live fetch failed, falling back to synthetic data: %v", err)
		} else {
			campaigns = fetched
		}
	}

	if campaigns == nil {
		campaigns = i.generator.Generate(dateRange)
	}

	snapshot := &Snapshot{
		DateRange: dateRange,
		Campaigns: campaigns,
	}

	for _, c := range campaigns {
		snapshot.CampaignsCount++
		for _, as := range c.AdSets {
			snapshot.AdSetsCount++
			snapshot.AdsCount += len(as.Ads)
		}
	}

	snapshot.Aggregated = ComputeAggregate(campaigns)

	return snapshot, nil
}

// ComputeAggregate sums ad-set daily metrics across the account and derives averages
func ComputeAggregate(campaigns []Campaign) Aggregate {
	var agg Aggregate

	for _, c := range campaigns {
		for _, as := range c.AdSets {
			for _, m := range as.Metrics {
				agg.TotalSpend += m.Spend
				agg.TotalImpressions += m.Impressions
				agg.TotalClicks += m.Clicks
				agg.TotalConversions += m.Conversions
				agg.TotalRevenue += m.Revenue
			}
		}
	}

	if agg.TotalImpressions > 0 {
		agg.AvgCTR = float64(agg.TotalClicks) / float64(agg.TotalImpressions) * 100
		agg.AvgCPM = agg.TotalSpend / float64(agg.TotalImpressions) * 1000
	}
	if agg.TotalClicks > 0 {
		agg.AvgCPC = agg.TotalSpend / float64(agg.TotalClicks)
		agg.ConversionRate = float64(agg.TotalConversions) / float64(agg.TotalClicks) * 100
	}
	if agg.TotalSpend > 0 {
		agg.ROAS = agg.TotalRevenue / agg.TotalSpend
	}

	return agg
}
