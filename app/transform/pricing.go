package transform

// modelPrice holds USD prices per one million tokens.
type modelPrice struct {
	Prompt     float64
	Completion float64
}

// priceTable is the static per-model price list. Cost is always computed
// from token counts against this table, never stored pre-computed from a
// stale price.
var priceTable = map[string]modelPrice{
	"gpt-4o":        {Prompt: 2.50, Completion: 10.00},
	"gpt-4o-mini":   {Prompt: 0.15, Completion: 0.60},
	"gpt-4.1":       {Prompt: 2.00, Completion: 8.00},
	"gpt-4.1-mini":  {Prompt: 0.40, Completion: 1.60},
	"gpt-3.5-turbo": {Prompt: 0.50, Completion: 1.50},
}

// Cost computes the monetary cost of one provider call. Unknown models
// cost zero; the usage record still captures their token counts.
func Cost(model string, promptTokens, completionTokens int) float64 {
	price, ok := priceTable[model]
	if !ok {
		return 0
	}

	return float64(promptTokens)*price.Prompt/1_000_000 +
		float64(completionTokens)*price.Completion/1_000_000
}
