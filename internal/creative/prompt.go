package creative

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/ads-pilot/internal/validation"
)

// basePromptTemplate renders the image-generation prompt from the decision
// context. Rendering is deterministic: same context, same prompt.
const basePromptTemplate = `Professional advertising photograph for a Meta feed placement.
Headline: "{{ headline }}". Supporting copy: "{{ description }}".
Objective: {{ objective }}.{% if audience != "" %} Audience: {{ audience }}.{% endif %}
Style: clean composition, product-forward, {% if tone != "" %}{{ tone }}{% else %}modern and trustworthy{% endif %} tone.
Square 1080x1080, space reserved for a "{{ cta }}" button bottom-right.`

var promptEngine = liquid.NewEngine()

// Context is the creative brief a decision carries
type Context struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	CTA         string `json:"cta"`
	Objective   string `json:"objective"`
	Audience    string `json:"audience,omitempty"`
	Tone        string `json:"tone,omitempty"`
}

// BuildPrompt renders the image prompt from the brief
func BuildPrompt(ctx Context) (string, error) {
	if ctx.CTA == "" {
		ctx.CTA = "Learn More"
	}

	bindings := map[string]interface{}{
		"headline":    ctx.Headline,
		"description": ctx.Description,
		"cta":         ctx.CTA,
		"objective":   ctx.Objective,
		"audience":    ctx.Audience,
		"tone":        ctx.Tone,
	}

	out, err := promptEngine.ParseAndRenderString(basePromptTemplate, bindings)
	if err != nil {
		return "", fmt.Errorf("rendering prompt template: %w", err)
	}
	return out, nil
}

// remedies maps validator feedback flags to prompt amendments
var remedies = map[string]string{
	validation.FlagNotReadable: "Use large, bold, highly legible typography with generous padding.",
	validation.FlagOffBrand:    "Strictly follow the brand color palette and keep the logo prominent.",
	validation.FlagLowContrast: "Use strong contrast between text and background; add a dark scrim behind copy.",
	validation.FlagProhibited:  "Family-friendly imagery only; no restricted products, claims, or sensational content.",
}

// ImprovePrompt appends a remedy line for every feedback flag the validator
// raised. Unknown flags are ignored.
func ImprovePrompt(prompt string, feedback map[string]bool) string {
	var additions []string
	for _, flag := range []string{
		validation.FlagNotReadable,
		validation.FlagOffBrand,
		validation.FlagLowContrast,
		validation.FlagProhibited,
	} {
		if feedback[flag] {
			additions = append(additions, remedies[flag])
		}
	}

	if len(additions) == 0 {
		return prompt
	}
	return prompt + "\nRevision notes: " + strings.Join(additions, " ")
}
