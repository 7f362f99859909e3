package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/ads-pilot/internal/validation"
)

const (
	assetKeyPrefix  = "adspilot:asset:"
	reportKeyPrefix = "adspilot:report:"
	assetIndexKey   = "adspilot:assets"
	reportIndexKey  = "adspilot:reports"
)

// RedisStore keeps assets and reports as JSON values with set indexes so
// listing does not need a KEYS scan.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, now: time.Now}, nil
}

// NewRedisStoreWithClient wraps an existing client (tests)
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// SetClock overrides the time source (tests only)
func (s *RedisStore) SetClock(now func() time.Time) { s.now = now }

func (s *RedisStore) UploadCreative(ctx context.Context, image validation.Image, campaignID string) (*Asset, error) {
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

	data, err := json.Marshal(asset)
	if err != nil {
		return nil, fmt.Errorf("marshaling asset: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, assetKeyPrefix+asset.ID, data, 0)
	pipe.SAdd(ctx, assetIndexKey, asset.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("storing asset: %w", err)
	}

	return &asset, nil
}

func (s *RedisStore) ListCreatives(ctx context.Context, filter AssetFilter) ([]Asset, error) {
	ids, err := s.client.SMembers(ctx, assetIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	var out []Asset
	for _, id := range ids {
		data, err := s.client.Get(ctx, assetKeyPrefix+id).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading asset %s: %w", id, err)
		}
		var a Asset
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("parsing asset %s: %w", id, err)
		}
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

func (s *RedisStore) SaveReport(ctx context.Context, report *Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, reportKeyPrefix+report.ID, data, 0)
	pipe.SAdd(ctx, reportIndexKey, report.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing report: %w", err)
	}
	return nil
}

func (s *RedisStore) GetReports(ctx context.Context, period string) ([]Report, error) {
	ids, err := s.client.SMembers(ctx, reportIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	var out []Report
	for _, id := range ids {
		data, err := s.client.Get(ctx, reportKeyPrefix+id).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading report %s: %w", id, err)
		}
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parsing report %s: %w", id, err)
		}
		if period != "" && r.Period != period {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *RedisStore) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	removed := 0

	assets, err := s.ListCreatives(ctx, AssetFilter{})
	if err != nil {
		return 0, err
	}
	for _, a := range assets {
		if a.Metadata.UploadedAt.Before(cutoff) {
			pipe := s.client.TxPipeline()
			pipe.Del(ctx, assetKeyPrefix+a.ID)
			pipe.SRem(ctx, assetIndexKey, a.ID)
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("deleting asset %s: %w", a.ID, err)
			}
			removed++
		}
	}

	reports, err := s.GetReports(ctx, "")
	if err != nil {
		return removed, err
	}
	for _, r := range reports {
		if r.Timestamp.Before(cutoff) {
			pipe := s.client.TxPipeline()
			pipe.Del(ctx, reportKeyPrefix+r.ID)
			pipe.SRem(ctx, reportIndexKey, r.ID)
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("deleting report %s: %w", r.ID, err)
			}
			removed++
		}
	}

	return removed, nil
}
