// Package validation scores generated creatives before launch. The demo
// validator simulates the review checks a human or vision model would run;
// the Meta policy gate is a separate, deterministic check.
package validation

import "math/rand"

// Check names used in results and feedback flags
const (
	FlagNotReadable = "not_readable"
	FlagOffBrand    = "off_brand"
	FlagLowContrast = "low_contrast"
	FlagProhibited  = "prohibited"
)

// Image is the creative under validation
type Image struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int64  `json:"bytes"`
}

// Context carries the copy the creative must work with
type Context struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	CTA         string `json:"cta"`
	BrandName   string `json:"brand_name,omitempty"`
}

// Checks records the outcome of each independent check
type Checks struct {
	TextReadability     bool `json:"text_readability"`
	BrandCompliance     bool `json:"brand_compliance"`
	ContrastSufficient  bool `json:"contrast_sufficient"`
	NoProhibitedContent bool `json:"no_prohibited_content"`
	CorrectDimensions   bool `json:"correct_dimensions"`
	FileSize            bool `json:"file_size"`
}

// Recommendation suggests a follow-up for a failed check
type Recommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Impact   string `json:"impact"`
}

// Result is the verdict for one validation attempt. It is ephemeral: produced
// and consumed within a single creative-generation attempt.
type Result struct {
	IsValid         bool             `json:"is_valid"`
	Score           float64          `json:"score"`
	Checks          Checks           `json:"checks"`
	Issues          []string         `json:"issues"`
	Feedback        map[string]bool  `json:"feedback"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Validator runs the creative checks. The random source is injected so the
// demo pass probabilities are reproducible in tests.
type Validator struct {
	rng *rand.Rand
}

// New creates a validator from a seed
func New(seed int64) *Validator {
	return &Validator{rng: rand.New(rand.NewSource(seed))}
}

// ValidateCreative runs the five independent checks. IsValid requires every
// check to pass; Score is the fraction passed. Demo pass probabilities:
// readability 80%, brand 90%, contrast 85%, prohibited content 95%,
// dimensions and file size always pass.
func (v *Validator) ValidateCreative(image Image, ctx Context) Result {
	checks := Checks{
		TextReadability:     v.rng.Float64() < 0.80,
		BrandCompliance:     v.rng.Float64() < 0.90,
		ContrastSufficient:  v.rng.Float64() < 0.85,
		NoProhibitedContent: v.rng.Float64() < 0.95,
		CorrectDimensions:   true,
		FileSize:            true,
	}

	result := Result{
		Checks:   checks,
		Feedback: map[string]bool{},
	}

	total, passed := 6, 0
	pass := func(ok bool) {
		if ok {
			passed++
		}
	}
	pass(checks.TextReadability)
	pass(checks.BrandCompliance)
	pass(checks.ContrastSufficient)
	pass(checks.NoProhibitedContent)
	pass(checks.CorrectDimensions)
	pass(checks.FileSize)

	if !checks.TextReadability {
		result.Issues = append(result.Issues, "Overlay text is hard to read at feed size")
		result.Feedback[FlagNotReadable] = true
		result.Recommendations = append(result.Recommendations, Recommendation{
			Type: "text", Priority: "high",
			Action: "Increase text size and move copy away from busy areas",
			Impact: "Readable copy lifts CTR on small screens",
		})
	}
	if !checks.BrandCompliance {
		result.Issues = append(result.Issues, "Creative drifts from brand palette and voice")
		result.Feedback[FlagOffBrand] = true
		result.Recommendations = append(result.Recommendations, Recommendation{
			Type: "brand", Priority: "medium",
			Action: "Apply brand colors and logo placement guidelines",
			Impact: "Consistent branding improves recall",
		})
	}
	if !checks.ContrastSufficient {
		result.Issues = append(result.Issues, "Foreground/background contrast below comfortable threshold")
		result.Feedback[FlagLowContrast] = true
		result.Recommendations = append(result.Recommendations, Recommendation{
			Type: "contrast", Priority: "medium",
			Action: "Darken background or add a contrast scrim behind text",
			Impact: "Higher contrast improves accessibility and stop rate",
		})
	}
	if !checks.NoProhibitedContent {
		result.Issues = append(result.Issues, "Possible prohibited content detected")
		result.Feedback[FlagProhibited] = true
		result.Recommendations = append(result.Recommendations, Recommendation{
			Type: "policy", Priority: "high",
			Action: "Remove flagged elements before resubmission",
			Impact: "Avoids ad rejection and account flags",
		})
	}

	result.Score = float64(passed) / float64(total)
	result.IsValid = passed == total

	return result
}

// MetaCompliance is the outcome of the ads-policy gate
type MetaCompliance struct {
	Compliant          bool     `json:"compliant"`
	TextCoverageRatio  float64  `json:"text_coverage_ratio"`
	CapitalizationRate float64  `json:"capitalization_rate"`
	Issues             []string `json:"issues"`
}

// Meta policy limits. Text coverage follows the legacy 20% guidance; ALL-CAPS
// copy over 30% reads as shouting and drags quality ranking.
const (
	maxTextCoverage   = 0.20
	maxCapitalization = 0.30
)

// CheckMetaCompliance evaluates the ads-policy ratios. This gate is separate
// from ValidateCreative and is not part of the generation retry loop.
func CheckMetaCompliance(image Image, ctx Context) MetaCompliance {
	coverage := estimateTextCoverage(image, ctx)
	caps := capitalizationRatio(ctx.Headline + " " + ctx.Description)

	result := MetaCompliance{
		TextCoverageRatio:  coverage,
		CapitalizationRate: caps,
		Compliant:          true,
	}

	if coverage > maxTextCoverage {
		result.Compliant = false
		result.Issues = append(result.Issues, "Text covers more than 20% of the image area")
	}
	if caps > maxCapitalization {
		result.Compliant = false
		result.Issues = append(result.Issues, "Excessive capitalization in ad copy")
	}

	return result
}

// estimateTextCoverage approximates how much of the image the overlay copy
// occupies, assuming feed-size rendering
func estimateTextCoverage(image Image, ctx Context) float64 {
	if image.Width == 0 || image.Height == 0 {
		return 0
	}
	chars := len(ctx.Headline) + len(ctx.Description) + len(ctx.CTA)
	// Rough glyph box at feed rendering size
	textArea := float64(chars) * 24 * 14
	return textArea / float64(image.Width*image.Height)
}

func capitalizationRatio(s string) float64 {
	letters, upper := 0, 0
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			letters++
		} else if r >= 'A' && r <= 'Z' {
			letters++
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}
