package transform

import (
	"fmt"
)

// fullContentThreshold is the minimum body length for the full-content
// prompt path. Shorter items fall back to the title-only minimal prompt.
const fullContentThreshold = 280

const systemInstruction = `You are an editorial assistant for a news digest. ` +
	`Rewrite the supplied article into a concise, neutral piece for a general audience. ` +
	`Respond with a single JSON object and nothing else, using exactly these fields: ` +
	`title (string, 10-120 characters), summary (string, 50-500 characters), body (string), ` +
	`slug (lowercase words joined by hyphens), difficulty (one of: easy, medium, hard), ` +
	`importance (one of: low, normal, high, breaking), tags (array of 1-10 short strings), ` +
	`reading_time (integer minutes, at least 1).`

// Operation labels recorded in usage records.
const (
	opTransformFull  = "transform_full"
	opTransformTitle = "transform_title"
)

// buildPrompt selects the prompt strategy based on available body
// length and returns the prompt plus the operation label for usage
// tracking.
func buildPrompt(title, body, sourceURL string) (string, string) {
	if len(body) >= fullContentThreshold {
		prompt := fmt.Sprintf("Rewrite this article.\n\nHeadline: %s\n\nContent:\n%s", title, body)
		if sourceURL != "" {
			prompt += fmt.Sprintf("\n\nOriginal source: %s", sourceURL)
		}
		return prompt, opTransformFull
	}

	prompt := fmt.Sprintf("Write a short news piece based only on this headline: %s", title)
	if sourceURL != "" {
		prompt += fmt.Sprintf("\n\nOriginal source: %s", sourceURL)
	}
	return prompt, opTransformTitle
}
