package domain

// CostPerToken is the flat illustrative rate ($0.03 per 1K tokens) used for
// the cost_usd figure attached to successful completions. It is deliberately
// independent of the per-model catalog pricing.
const CostPerToken = 0.00003

// AugmentCost derives usage.cost_usd from usage.total_tokens on a parsed
// completion response. Responses without a usage block, or without a
// total_tokens count, pass through unchanged.
func AugmentCost(response map[string]interface{}) map[string]interface{} {
	usage, ok := response["usage"].(map[string]interface{})
	if !ok {
		return response
	}

	// JSON numbers decode as float64.
	total, ok := usage["total_tokens"].(float64)
	if !ok {
		return response
	}

	usage["cost_usd"] = total * CostPerToken
	return response
}
