// Package ads executes campaign mutations: creating, pausing, promoting and
// budgeting ads. State lives behind a small repository interface so the
// in-memory demo store can be swapped for a durable one without touching the
// orchestration logic.
package ads

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Status values for execution records
const (
	StatusActive   = "ACTIVE"
	StatusPaused   = "PAUSED"
	StatusPromoted = "PROMOTED"
)

// ErrNotFound is returned when an ad id has no record
var ErrNotFound = errors.New("ad not found")

// Metrics is the rolled-up performance attached to an execution record
type Metrics struct {
	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	Conversions int64   `json:"conversions"`
	ROAS        float64 `json:"roas"`
}

// Creative is the launched creative payload
type Creative struct {
	AssetURL    string `json:"asset_url"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
	CTA         string `json:"cta"`
}

// Ad is an execution record for a launched ad
type Ad struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	CampaignID   string    `json:"campaign_id"`
	AdSetID      string    `json:"ad_set_id"`
	Creative     Creative  `json:"creative"`
	Metrics      Metrics   `json:"metrics"`
	ExperimentID string    `json:"experiment_id,omitempty"`
	VariantName  string    `json:"variant_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Underperformer tags an ad with the issue that put it on the list
type Underperformer struct {
	Ad             Ad     `json:"ad"`
	Issue          string `json:"issue"`
	Recommendation string `json:"recommendation"`
}

// Transfer records a budget reallocation between two ads
type Transfer struct {
	ID       string    `json:"id"`
	FromAdID string    `json:"from_ad_id"`
	ToAdID   string    `json:"to_ad_id"`
	Amount   float64   `json:"amount"`
	At       time.Time `json:"at"`
}

// Repository is the capability set the executor needs from its store
type Repository interface {
	Get(ctx context.Context, id string) (*Ad, error)
	List(ctx context.Context) ([]Ad, error)
	Upsert(ctx context.Context, ad *Ad) error
	Delete(ctx context.Context, id string) error
}

// Mutator is the live ads API surface. nil in demo mode.
type Mutator interface {
	UpdateAdStatus(ctx context.Context, adID, status string) error
	UpdateBudget(ctx context.Context, adSetID string, dailyBudget float64) error
}

// Underperformer thresholds
const (
	underperformerCTR  = 1.5
	underperformerROAS = 2.0
)

// Executor performs campaign-mutating actions
type Executor struct {
	repo      Repository
	mutator   Mutator
	transfers []Transfer
	now       func() time.Time
}

// NewExecutor creates an executor. mutator may be nil (demo mode).
func NewExecutor(repo Repository, mutator Mutator) *Executor {
	return &Executor{repo: repo, mutator: mutator, now: time.Now}
}

// CreateAdInput carries the fields for ad creation
type CreateAdInput struct {
	Name       string
	CampaignID string
	AdSetID    string
	Creative   Creative
}

// CreateAd launches a new ad and returns its execution record
func (e *Executor) CreateAd(ctx context.Context, input CreateAdInput) (*Ad, error) {
	if input.Creative.CTA == "" {
		input.Creative.CTA = "Learn More"
	}

	ad := &Ad{
		ID:         uuid.NewString(),
		Name:       input.Name,
		Status:     StatusActive,
		CampaignID: input.CampaignID,
		AdSetID:    input.AdSetID,
		Creative:   input.Creative,
		CreatedAt:  e.now(),
	}

	if err := e.repo.Upsert(ctx, ad); err != nil {
		return nil, fmt.Errorf("saving ad: %w", err)
	}

	log.Printf("[AdsExecutor] created ad %s in ad set %s", ad.ID, ad.AdSetID)
	return ad, nil
}

// Seed upserts an execution record directly, without the creation defaults.
// The pipeline uses it to register snapshot ads before dispatching decisions.
func (e *Executor) Seed(ctx context.Context, ad *Ad) error {
	if err := e.repo.Upsert(ctx, ad); err != nil {
		return fmt.Errorf("seeding ad %s: %w", ad.ID, err)
	}
	return nil
}

// PauseAd stops delivery for an ad
func (e *Executor) PauseAd(ctx context.Context, adID string) error {
	ad, err := e.repo.Get(ctx, adID)
	if err != nil {
		return err
	}

	if e.mutator != nil {
		if err := e.mutator.UpdateAdStatus(ctx, adID, StatusPaused); err != nil {
			return fmt.Errorf("pausing ad %s upstream: %w", adID, err)
		}
	}

	ad.Status = StatusPaused
	if err := e.repo.Upsert(ctx, ad); err != nil {
		return fmt.Errorf("saving paused ad: %w", err)
	}

	log.Printf("[AdsExecutor] paused ad %s", adID)
	return nil
}

// PromoteAd boosts a winning ad. In demo mode the boost is made visible by
// multiplying recorded spend by 1.5.
func (e *Executor) PromoteAd(ctx context.Context, adID string) error {
	ad, err := e.repo.Get(ctx, adID)
	if err != nil {
		return err
	}

	if e.mutator != nil {
		if err := e.mutator.UpdateBudget(ctx, ad.AdSetID, ad.Metrics.Spend*1.5); err != nil {
			return fmt.Errorf("boosting ad %s upstream: %w", adID, err)
		}
	}

	ad.Status = StatusPromoted
	ad.Metrics.Spend *= 1.5
	if err := e.repo.Upsert(ctx, ad); err != nil {
		return fmt.Errorf("saving promoted ad: %w", err)
	}

	log.Printf("[AdsExecutor] promoted ad %s (spend boosted to %.2f)", adID, ad.Metrics.Spend)
	return nil
}

// ReallocateBudget moves budget from one ad to another. Demo mode records the
// transfer; live mode also adjusts the destination ad set's budget upstream.
func (e *Executor) ReallocateBudget(ctx context.Context, fromID, toID string, amount float64) error {
	to, err := e.repo.Get(ctx, toID)
	if err != nil {
		return fmt.Errorf("reallocation target: %w", err)
	}

	if e.mutator != nil {
		if err := e.mutator.UpdateBudget(ctx, to.AdSetID, amount); err != nil {
			return fmt.Errorf("reallocating budget upstream: %w", err)
		}
	}

	e.transfers = append(e.transfers, Transfer{
		ID:       uuid.NewString(),
		FromAdID: fromID,
		ToAdID:   toID,
		Amount:   amount,
		At:       e.now(),
	})

	log.Printf("[AdsExecutor] reallocated %.2f from ad %s to ad %s", amount, fromID, toID)
	return nil
}

// Transfers returns the recorded budget reallocations
func (e *Executor) Transfers() []Transfer {
	out := make([]Transfer, len(e.transfers))
	copy(out, e.transfers)
	return out
}

// VariantInput describes one experiment arm to launch
type VariantInput struct {
	ExperimentID string
	VariantName  string
	CampaignID   string
	AdSetID      string
	Creative     Creative
}

// LaunchVariant creates a live ad tagged with its experiment and variant
func (e *Executor) LaunchVariant(ctx context.Context, input VariantInput) (*Ad, error) {
	ad, err := e.CreateAd(ctx, CreateAdInput{
		Name:       fmt.Sprintf("%s - %s", input.ExperimentID, input.VariantName),
		CampaignID: input.CampaignID,
		AdSetID:    input.AdSetID,
		Creative:   input.Creative,
	})
	if err != nil {
		return nil, err
	}

	ad.ExperimentID = input.ExperimentID
	ad.VariantName = input.VariantName
	if err := e.repo.Upsert(ctx, ad); err != nil {
		return nil, fmt.Errorf("tagging variant ad: %w", err)
	}

	return ad, nil
}

// AdsForExperiment returns the live ads tagged with the experiment id
func (e *Executor) AdsForExperiment(ctx context.Context, experimentID string) ([]Ad, error) {
	all, err := e.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []Ad
	for _, ad := range all {
		if ad.ExperimentID == experimentID {
			out = append(out, ad)
		}
	}
	return out, nil
}

// TopPerformers returns up to limit active ads sorted descending by ROAS
func (e *Executor) TopPerformers(ctx context.Context, limit int) ([]Ad, error) {
	all, err := e.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	active := all[:0:0]
	for _, ad := range all {
		if ad.Status == StatusActive {
			active = append(active, ad)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].Metrics.ROAS > active[j].Metrics.ROAS
	})

	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

// Underperformers returns up to limit active ads with CTR below 1.5 or ROAS
// below 2, sorted ascending by ROAS, each tagged with its binding issue and a
// recommendation.
func (e *Executor) Underperformers(ctx context.Context, limit int) ([]Underperformer, error) {
	all, err := e.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []Underperformer
	for _, ad := range all {
		if ad.Status != StatusActive {
			continue
		}
		lowCTR := ad.Metrics.CTR < underperformerCTR
		lowROAS := ad.Metrics.ROAS < underperformerROAS
		if !lowCTR && !lowROAS {
			continue
		}

		u := Underperformer{Ad: ad}
		if lowCTR {
			u.Issue = fmt.Sprintf("CTR %.2f%% below %.1f%%", ad.Metrics.CTR, underperformerCTR)
			u.Recommendation = "Refresh creative"
		} else {
			u.Issue = fmt.Sprintf("ROAS %.2f below %.1f", ad.Metrics.ROAS, underperformerROAS)
			u.Recommendation = "Review targeting"
		}
		out = append(out, u)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Ad.Metrics.ROAS < out[j].Ad.Metrics.ROAS
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
