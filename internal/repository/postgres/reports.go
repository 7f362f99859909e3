// Package postgres implements the storage.Store interface against PostgreSQL.
// Assets live in a flat table; report bodies are stored as JSONB so the
// schema does not chase every report field.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/ignite/ads-pilot/internal/storage"
	"github.com/ignite/ads-pilot/internal/validation"
)

// Store implements storage.Store against PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db, now: time.Now} }

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewStore(db), nil
}

// SetClock overrides the time source (tests only).
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) UploadCreative(ctx context.Context, image validation.Image, campaignID string) (*storage.Asset, error) {
	asset := storage.Asset{
		ID:  uuid.New().String(),
		URL: image.URL,
		Metadata: storage.AssetMetadata{
			CampaignID: campaignID,
			Type:       "generated_creative",
			Prompt:     image.Prompt,
			UploadedAt: s.now(),
			Size:       image.Bytes,
			Dimensions: fmt.Sprintf("%dx%d", image.Width, image.Height),
			Format:     "png",
		},
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO creative_assets
			(id, url, campaign_id, asset_type, prompt, uploaded_at, size_bytes, dimensions, format)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, asset.ID, asset.URL, asset.Metadata.CampaignID, asset.Metadata.Type,
		asset.Metadata.Prompt, asset.Metadata.UploadedAt, asset.Metadata.Size,
		asset.Metadata.Dimensions, asset.Metadata.Format)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return &asset, nil
}

func (s *Store) ListCreatives(ctx context.Context, filter storage.AssetFilter) ([]storage.Asset, error) {
	q := `
		SELECT id, url, COALESCE(campaign_id,''), asset_type, prompt,
		       uploaded_at, size_bytes, dimensions, format
		FROM creative_assets
		WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filter.CampaignID != "" {
		q += fmt.Sprintf(" AND campaign_id = $%d", idx)
		args = append(args, filter.CampaignID)
		idx++
	}
	if filter.Type != "" {
		q += fmt.Sprintf(" AND asset_type = $%d", idx)
		args = append(args, filter.Type)
		idx++
	}
	q += " ORDER BY uploaded_at DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []storage.Asset
	for rows.Next() {
		var a storage.Asset
		if err := rows.Scan(
			&a.ID, &a.URL, &a.Metadata.CampaignID, &a.Metadata.Type, &a.Metadata.Prompt,
			&a.Metadata.UploadedAt, &a.Metadata.Size, &a.Metadata.Dimensions, &a.Metadata.Format,
		); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SaveReport(ctx context.Context, report *storage.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipeline_reports (id, created_at, period, payload)
		VALUES ($1, $2, $3, $4)
	`, report.ID, report.Timestamp, report.Period, payload)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *Store) GetReports(ctx context.Context, period string) ([]storage.Report, error) {
	q := `SELECT payload FROM pipeline_reports`
	args := []interface{}{}
	if period != "" {
		q += ` WHERE period = $1`
		args = append(args, period)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []storage.Report
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var r storage.Report
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("parse report payload: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := s.now().AddDate(0, 0, -olderThanDays)

	res, err := s.db.ExecContext(ctx, `DELETE FROM creative_assets WHERE uploaded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup assets: %w", err)
	}
	assets, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, `DELETE FROM pipeline_reports WHERE created_at < $1`, cutoff)
	if err != nil {
		return int(assets), fmt.Errorf("cleanup reports: %w", err)
	}
	reports, _ := res.RowsAffected()

	return int(assets + reports), nil
}
