package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ignite/ads-pilot/internal/config"
	"github.com/ignite/ads-pilot/internal/metrics"
)

// HTTPDoer is the interface for executing HTTP requests
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Meta Marketing API client
type Client struct {
	baseURL     string
	accessToken string
	adAccountID string
	httpClient  HTTPDoer
}

// NewClient creates a new Meta Marketing API client
func NewClient(cfg config.MetaConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		adAccountID: cfg.AdAccountID,
		httpClient:  &http.Client{Timeout: cfg.Timeout()},
	}
}

// doRequest makes an HTTP request to the Graph API
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.accessToken)

	var body io.Reader
	fullURL := c.baseURL + path
	if method == http.MethodGet {
		fullURL += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Err.Message != "" {
			return nil, fmt.Errorf("graph API error (code %d): %s", apiErr.Err.Code, apiErr.Err.Message)
		}
		return nil, fmt.Errorf("graph API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// FetchCampaigns pulls the campaign → ad set → ad hierarchy with daily
// insights for the date range and normalizes it into metrics types. It
// satisfies metrics.Source.
func (c *Client) FetchCampaigns(ctx context.Context, dateRange metrics.DateRange) ([]metrics.Campaign, error) {
	timeRange := fmt.Sprintf(`{"since":"%s","until":"%s"}`,
		dateRange.Since.Format("2006-01-02"), dateRange.Until.Format("2006-01-02"))

	params := url.Values{}
	params.Set("fields", "id,name,status,"+
		"adsets{id,name,status,insights.time_increment(1).time_range("+timeRange+"){date_start,spend,impressions,clicks,conversions,purchase_roas_value},"+
		"ads{id,name,status,creative,insights.time_increment(1).time_range("+timeRange+"){date_start,spend,impressions,clicks,conversions,purchase_roas_value}}}")
	params.Set("limit", "50")

	body, err := c.doRequest(ctx, http.MethodGet, "/"+c.adAccountID+"/campaigns", params)
	if err != nil {
		return nil, fmt.Errorf("fetching campaigns: %w", err)
	}

	var resp CampaignsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing campaigns response: %w", err)
	}

	return normalizeCampaigns(resp.Data), nil
}

// CreateAd creates an ad under the given ad set
func (c *Client) CreateAd(ctx context.Context, req CreateAdRequest) (*CreateAdResponse, error) {
	params := url.Values{}
	params.Set("name", req.Name)
	params.Set("adset_id", req.AdSetID)
	params.Set("status", "ACTIVE")

	creative, err := json.Marshal(map[string]interface{}{
		"title":          req.Headline,
		"body":           req.Description,
		"image_url":      req.CreativeURL,
		"call_to_action": map[string]string{"type": req.CTA},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding creative: %w", err)
	}
	params.Set("creative", string(creative))

	body, err := c.doRequest(ctx, http.MethodPost, "/"+c.adAccountID+"/ads", params)
	if err != nil {
		return nil, fmt.Errorf("creating ad: %w", err)
	}

	var resp CreateAdResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing create ad response: %w", err)
	}
	return &resp, nil
}

// UpdateAdStatus pauses or activates an ad
func (c *Client) UpdateAdStatus(ctx context.Context, adID, status string) error {
	params := url.Values{}
	params.Set("status", status)

	if _, err := c.doRequest(ctx, http.MethodPost, "/"+adID, params); err != nil {
		return fmt.Errorf("updating ad %s status: %w", adID, err)
	}
	return nil
}

// UpdateBudget sets the daily budget on an ad set (amount in account currency)
func (c *Client) UpdateBudget(ctx context.Context, adSetID string, dailyBudget float64) error {
	params := url.Values{}
	// Graph API takes budgets in minor units; round, don't truncate
	params.Set("daily_budget", strconv.FormatInt(int64(math.Round(dailyBudget*100)), 10))

	if _, err := c.doRequest(ctx, http.MethodPost, "/"+adSetID, params); err != nil {
		return fmt.Errorf("updating ad set %s budget: %w", adSetID, err)
	}
	return nil
}

// normalizeCampaigns converts Graph API nodes into the metrics hierarchy
func normalizeCampaigns(nodes []CampaignNode) []metrics.Campaign {
	campaigns := make([]metrics.Campaign, 0, len(nodes))

	for _, cn := range nodes {
		campaign := metrics.Campaign{
			ID:     cn.ID,
			Name:   cn.Name,
			Status: cn.Status,
		}

		for _, sn := range cn.AdSets.Data {
			adSet := metrics.AdSet{
				ID:      sn.ID,
				Name:    sn.Name,
				Status:  sn.Status,
				Metrics: normalizeInsights(sn.Insights.Data),
			}

			for _, an := range sn.Ads.Data {
				adSet.Ads = append(adSet.Ads, metrics.Ad{
					ID:         an.ID,
					Name:       an.Name,
					Status:     an.Status,
					CreativeID: an.Creative.ID,
					Metrics:    normalizeInsights(an.Insights.Data),
				})
			}

			campaign.AdSets = append(campaign.AdSets, adSet)
		}

		campaigns = append(campaigns, campaign)
	}

	return campaigns
}

func normalizeInsights(rows []InsightRow) []metrics.DailyMetric {
	out := make([]metrics.DailyMetric, 0, len(rows))
	for _, r := range rows {
		spend := parseFloat(r.Spend)
		impressions := parseInt(r.Impressions)
		clicks := parseInt(r.Clicks)
		conversions := parseInt(r.Conversions)
		revenue := parseFloat(r.Revenue)
		out = append(out, metrics.NewDailyMetric(r.DateStart, spend, impressions, clicks, conversions, revenue))
	}
	return out
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
