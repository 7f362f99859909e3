// Package meta is a thin client for the Meta Marketing (Graph) API. It covers
// the insights reads and the ad mutations the pipeline needs, nothing more.
package meta

// InsightRow is one row from the insights endpoint
type InsightRow struct {
	DateStart   string `json:"date_start"`
	DateStop    string `json:"date_stop"`
	Spend       string `json:"spend"`
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
	Conversions string `json:"conversions"`
	Revenue     string `json:"purchase_roas_value"`
}

// CampaignNode is a campaign object from the Graph API
type CampaignNode struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Status string      `json:"status"`
	AdSets AdSetEdge   `json:"adsets"`
}

// AdSetEdge wraps the adsets edge
type AdSetEdge struct {
	Data []AdSetNode `json:"data"`
}

// AdSetNode is an ad set object
type AdSetNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Status   string       `json:"status"`
	Ads      AdEdge       `json:"ads"`
	Insights InsightsEdge `json:"insights"`
}

// AdEdge wraps the ads edge
type AdEdge struct {
	Data []AdNode `json:"data"`
}

// AdNode is an ad object
type AdNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Status   string       `json:"status"`
	Creative struct {
		ID string `json:"id"`
	} `json:"creative"`
	Insights InsightsEdge `json:"insights"`
}

// InsightsEdge wraps the insights edge
type InsightsEdge struct {
	Data []InsightRow `json:"data"`
}

// CampaignsResponse is the paged campaigns listing
type CampaignsResponse struct {
	Data   []CampaignNode `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// CreateAdRequest carries the fields for ad creation
type CreateAdRequest struct {
	Name        string `json:"name"`
	AdSetID     string `json:"adset_id"`
	CreativeURL string `json:"creative_url"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
	CTA         string `json:"call_to_action"`
}

// CreateAdResponse is the Graph API reply to ad creation
type CreateAdResponse struct {
	ID string `json:"id"`
}

// APIError is the Graph API error envelope
type APIError struct {
	Err struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		TraceID   string `json:"fbtrace_id"`
	} `json:"error"`
}
