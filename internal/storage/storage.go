// Package storage persists generated creative assets and pipeline run
// reports. The Store interface keeps backends swappable: in-memory for demo
// and tests, S3 or Redis for durable deployments.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/ads-pilot/internal/ads"
	"github.com/ignite/ads-pilot/internal/experiments"
	"github.com/ignite/ads-pilot/internal/metrics"
	"github.com/ignite/ads-pilot/internal/validation"
)

// ErrNotFound is returned when an asset or report id is unknown
var ErrNotFound = errors.New("not found")

// AssetMetadata describes a stored creative
type AssetMetadata struct {
	CampaignID string    `json:"campaign_id,omitempty"`
	Type       string    `json:"type"`
	Prompt     string    `json:"prompt"`
	UploadedAt time.Time `json:"uploaded_at"`
	Size       int64     `json:"size"`
	Dimensions string    `json:"dimensions"`
	Format     string    `json:"format"`
}

// Asset is a persisted creative
type Asset struct {
	ID       string        `json:"id"`
	URL      string        `json:"url"`
	Metadata AssetMetadata `json:"metadata"`
}

// AssetFilter narrows ListCreatives
type AssetFilter struct {
	CampaignID string
	Type       string
}

// LogEntry is one line of a pipeline run log
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Report is the immutable record of one pipeline run
type Report struct {
	ID              string                   `json:"id"`
	Timestamp       time.Time                `json:"timestamp"`
	Period          string                   `json:"period"`
	Summary         metrics.Aggregate        `json:"summary"`
	TopPerformers   []ads.Ad                 `json:"top_performers"`
	Underperformers []ads.Underperformer     `json:"underperformers"`
	Experiments     []experiments.Experiment `json:"experiments"`
	Recommendations []string                 `json:"recommendations"`
	Logs            []LogEntry               `json:"logs"`
}

// Store is the persistence sink for assets and reports
type Store interface {
	// UploadCreative persists the image and returns the stored asset
	UploadCreative(ctx context.Context, image validation.Image, campaignID string) (*Asset, error)
	// ListCreatives returns assets matching the filter
	ListCreatives(ctx context.Context, filter AssetFilter) ([]Asset, error)
	// SaveReport persists a run report
	SaveReport(ctx context.Context, report *Report) error
	// GetReports returns reports for a period ("" for all), newest first
	GetReports(ctx context.Context, period string) ([]Report, error)
	// Cleanup deletes assets and reports older than the cutoff and returns
	// how many were removed
	Cleanup(ctx context.Context, olderThanDays int) (int, error)
}
