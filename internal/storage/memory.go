package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ads-pilot/internal/validation"
)

// MemoryStore is the in-memory Store used in demo mode and tests
type MemoryStore struct {
	mu      sync.RWMutex
	assets  map[string]Asset
	reports map[string]Report
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:  make(map[string]Asset),
		reports: make(map[string]Report),
		now:     time.Now,
	}
}

// SetClock overrides the time source (tests only)
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func (s *MemoryStore) UploadCreative(ctx context.Context, image validation.Image, campaignID string) (*Asset, error) {
	asset := Asset{
		ID:  uuid.NewString(),
		URL: image.URL,
		Metadata: AssetMetadata{
			CampaignID: campaignID,
			Type:       "generated_creative",
			Prompt:     image.Prompt,
			UploadedAt: s.now(),
			Size:       image.Bytes,
			Dimensions: fmt.Sprintf("%dx%d", image.Width, image.Height),
			Format:     "png",
		},
	}

	s.mu.Lock()
	s.assets[asset.ID] = asset
	s.mu.Unlock()

	return &asset, nil
}

func (s *MemoryStore) ListCreatives(ctx context.Context, filter AssetFilter) ([]Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Asset
	for _, a := range s.assets {
		if filter.CampaignID != "" && a.Metadata.CampaignID != filter.CampaignID {
			continue
		}
		if filter.Type != "" && a.Metadata.Type != filter.Type {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.UploadedAt.After(out[j].Metadata.UploadedAt)
	})
	return out, nil
}

func (s *MemoryStore) SaveReport(ctx context.Context, report *Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.reports[report.ID] = *report
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) GetReports(ctx context.Context, period string) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Report
	for _, r := range s.reports {
		if period != "" && r.Period != period {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := s.now().AddDate(0, 0, -olderThanDays)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, a := range s.assets {
		if a.Metadata.UploadedAt.Before(cutoff) {
			delete(s.assets, id)
			removed++
		}
	}
	for id, r := range s.reports {
		if r.Timestamp.Before(cutoff) {
			delete(s.reports, id)
			removed++
		}
	}
	return removed, nil
}
