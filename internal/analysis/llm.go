package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/ads-pilot/internal/config"
	"github.com/ignite/ads-pilot/internal/metrics"
)

// LLMEngine asks a language model for decisions. Any call or parse failure
// silently downgrades to the fallback engine; an LLM error never reaches the
// caller.
type LLMEngine struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	fallback   Engine
	now        func() time.Time
}

// NewLLMEngine creates an LLM-backed engine with a rule-engine fallback
func NewLLMEngine(cfg config.OpenAIConfig, fallback Engine) *LLMEngine {
	return &LLMEngine{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    "https://api.openai.com/v1",
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		fallback:   fallback,
		now:        time.Now,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Analyze requests a JSON decision array from the model. On any failure it
// logs the downgrade and delegates to the fallback engine.
func (e *LLMEngine) Analyze(ctx context.Context, snapshot *metrics.Snapshot) ([]Decision, error) {
	decisions, err := e.analyzeWithModel(ctx, snapshot)
	if err != nil {
		log.Printf("[Analysis] LLM analysis failed, using rule engine: %v", err)
		return e.fallback.Analyze(ctx, snapshot)
	}
	return decisions, nil
}

func (e *LLMEngine) analyzeWithModel(ctx context.Context, snapshot *metrics.Snapshot) ([]Decision, error) {
	request := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildAnalysisPrompt(snapshot)},
		},
		Temperature: 0.2,
		MaxTokens:   2000,
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling OpenAI: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading OpenAI response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing OpenAI response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenAI response")
	}

	raw := extractJSONArray(parsed.Choices[0].Message.Content)

	var decisions []Decision
	if err := json.Unmarshal([]byte(raw), &decisions); err != nil {
		return nil, fmt.Errorf("parsing decision array: %w", err)
	}

	return ValidateDecisions(decisions, e.now()), nil
}

const systemPrompt = `You are an ad-performance analyst for Meta ad accounts.
You respond ONLY with a JSON array of decision objects. Each object has:
  "type": one of GENERATE_CREATIVE, PAUSE_UNDERPERFORMER, BUDGET_REALLOCATE, DUPLICATE_ADSET_FOR_TEST, PROMOTE_WINNER
  "priority": one of high, medium, low
  "reason": a one-sentence justification
  plus type-specific fields: target_id, campaign_id, ad_set_id, context, reallocation, experiment.
Emit at most 5 decisions. No prose, no markdown fences.`

// buildAnalysisPrompt embeds the aggregate KPIs and a bounded sample of the
// dataset so the prompt stays within context limits
func buildAnalysisPrompt(snapshot *metrics.Snapshot) string {
	var b strings.Builder
	agg := snapshot.Aggregated

	fmt.Fprintf(&b, "Account performance, %s to %s (%d campaigns, %d ad sets, %d ads):\n",
		snapshot.DateRange.Since.Format("2006-01-02"),
		snapshot.DateRange.Until.Format("2006-01-02"),
		snapshot.CampaignsCount, snapshot.AdSetsCount, snapshot.AdsCount)
	fmt.Fprintf(&b, "- Spend: $%.2f  Revenue: $%.2f  ROAS: %.2f\n", agg.TotalSpend, agg.TotalRevenue, agg.ROAS)
	fmt.Fprintf(&b, "- Impressions: %d  Clicks: %d  Avg CTR: %.2f%%\n", agg.TotalImpressions, agg.TotalClicks, agg.AvgCTR)
	fmt.Fprintf(&b, "- Conversions: %d  Conversion rate: %.2f%%  Avg CPC: $%.2f  Avg CPM: $%.2f\n",
		agg.TotalConversions, agg.ConversionRate, agg.AvgCPC, agg.AvgCPM)

	b.WriteString("\nAd sample (worst CTR first would be ideal, hierarchy order given):\n")
	ads := snapshot.AllAds()
	if len(ads) > 10 {
		ads = ads[:10]
	}
	for _, ad := range ads {
		fmt.Fprintf(&b, "- %s (%s): CTR %.2f%%, status %s\n", ad.Name, ad.ID, ad.AvgCTR(), ad.Status)
	}

	b.WriteString("\nReturn the decision array now.")
	return b.String()
}

// extractJSONArray tolerates models that wrap the array in markdown fences
// or lead-in text
func extractJSONArray(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}

// ValidateDecisions drops entries with unknown types, defaults missing
// priority to medium, stamps timestamps, and caps the list at MaxDecisions.
func ValidateDecisions(decisions []Decision, now time.Time) []Decision {
	out := make([]Decision, 0, len(decisions))
	for _, d := range decisions {
		if !KnownDecisionTypes[d.Type] {
			log.Printf("[Analysis] dropping decision with unknown type %q", d.Type)
			continue
		}
		if d.Priority == "" {
			d.Priority = PriorityMedium
		}
		if d.Timestamp.IsZero() {
			d.Timestamp = now
		}
		out = append(out, d)
		if len(out) == MaxDecisions {
			break
		}
	}
	return out
}
