// Package creative turns a generate-creative decision into a launched ad:
// prompt rendering, image generation, validation with a bounded retry loop,
// asset upload, and ad creation.
package creative

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ignite/ads-pilot/internal/ads"
	"github.com/ignite/ads-pilot/internal/validation"
)

// ErrGenerationFailed is returned when the retry budget is exhausted without
// a valid creative. The pipeline treats it as fatal for the run.
var ErrGenerationFailed = errors.New("failed to generate valid creative after multiple attempts")

// MaxRetries is the default bound on the improve-regenerate-revalidate loop.
// The initial attempt validates before the counter is consulted, so a decision
// costs at most MaxRetries+1 generations and validations.
const MaxRetries = 3

// ImageProvider generates an image for a prompt
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string) (validation.Image, error)
}

// Validatory runs the creative checks
type Validatory interface {
	ValidateCreative(image validation.Image, vctx validation.Context) validation.Result
}

// Uploader persists the approved creative and returns its public URL
type Uploader interface {
	UploadCreative(ctx context.Context, image validation.Image, campaignID string) (string, error)
}

// AdLauncher creates the live ad
type AdLauncher interface {
	CreateAd(ctx context.Context, input ads.CreateAdInput) (*ads.Ad, error)
}

// Generator orchestrates the generate → validate → retry loop
type Generator struct {
	images     ImageProvider
	validator  Validatory
	uploader   Uploader
	launcher   AdLauncher
	maxRetries int
}

// NewGenerator wires the collaborators. A non-positive maxRetries falls back
// to MaxRetries.
func NewGenerator(images ImageProvider, validator Validatory, uploader Uploader, launcher AdLauncher, maxRetries int) *Generator {
	if maxRetries <= 0 {
		maxRetries = MaxRetries
	}
	return &Generator{images: images, validator: validator, uploader: uploader, launcher: launcher, maxRetries: maxRetries}
}

// Request carries the decision payload for creative generation
type Request struct {
	CampaignID string
	AdSetID    string
	Context    Context
}

// GenerateAndLaunch produces a validated creative and launches it as an ad.
// Validation feedback drives prompt revisions; once the retry budget is spent
// the run fails with ErrGenerationFailed.
func (g *Generator) GenerateAndLaunch(ctx context.Context, req Request) (*ads.Ad, error) {
	prompt, err := BuildPrompt(req.Context)
	if err != nil {
		return nil, err
	}

	vctx := validation.Context{
		Headline:    req.Context.Headline,
		Description: req.Context.Description,
		CTA:         req.Context.CTA,
	}

	image, err := g.images.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating image: %w", err)
	}
	result := g.validator.ValidateCreative(image, vctx)

	attempts := 0
	for !result.IsValid && attempts < g.maxRetries {
		attempts++
		log.Printf("[Creative] validation failed (score %.2f, attempt %d/%d): %v", result.Score, attempts, g.maxRetries, result.Issues)

		prompt = ImprovePrompt(prompt, result.Feedback)

		image, err = g.images.GenerateImage(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("regenerating image: %w", err)
		}
		result = g.validator.ValidateCreative(image, vctx)
	}

	if !result.IsValid {
		return nil, fmt.Errorf("%w (last score %.2f)", ErrGenerationFailed, result.Score)
	}

	assetURL, err := g.uploader.UploadCreative(ctx, image, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("uploading creative: %w", err)
	}

	cta := req.Context.CTA
	if cta == "" {
		cta = "Learn More"
	}

	ad, err := g.launcher.CreateAd(ctx, ads.CreateAdInput{
		Name:       fmt.Sprintf("Generated - %s", req.Context.Headline),
		CampaignID: req.CampaignID,
		AdSetID:    req.AdSetID,
		Creative: ads.Creative{
			AssetURL:    assetURL,
			Headline:    req.Context.Headline,
			Description: req.Context.Description,
			CTA:         cta,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("launching ad: %w", err)
	}

	log.Printf("[Creative] launched ad %s for campaign %s after %d attempt(s)", ad.ID, req.CampaignID, attempts+1)
	return ad, nil
}
