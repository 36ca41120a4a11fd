package constants

import (
	"maps"
	"slices"
)

// ModelPricing is USD per one million tokens.
type ModelPricing struct {
	Input       float64
	Output      float64
	Description string
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1-nano"

// USDToTHB converts the primary cost currency into the secondary one.
const USDToTHB = 33.0

var pricing = map[string]ModelPricing{
	"gpt-4.1-nano": {Input: 0.10, Output: 0.40, Description: "Fastest and cheapest model with 1M context"},
	"gpt-4.1-mini": {Input: 0.40, Output: 1.60, Description: "Balanced performance and cost with 1M context"},
	"gpt-4.1":      {Input: 3.00, Output: 12.00, Description: "Most capable model with 1M context"},
}

// PricingFor returns the rates for model, or false when the model is not in the table.
func PricingFor(model string) (ModelPricing, bool) {
	p, ok := pricing[model]
	return p, ok
}

// KnownModels lists the models present in the pricing table.
func KnownModels() []string {
	return slices.Sorted(maps.Keys(pricing))
}
