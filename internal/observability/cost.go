package observability

import (
	"strconv"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6

	defaultPricingModel = "gpt-4-32k"

	// GPT-4 32k pricing
	gpt432kInputPrice  = 0.06
	gpt432kOutputPrice = 0.12

	// GPT-4 pricing
	gpt4InputPrice  = 0.03
	gpt4OutputPrice = 0.06

	// Claude 3 Opus pricing
	claude3OpusInputPrice  = 0.015
	claude3OpusOutputPrice = 0.075

	// Gemini Pro pricing
	geminiProInputPrice  = 0.0005
	geminiProOutputPrice = 0.0015
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for the models each backend is configured with by default
var PricingTable = map[string]ModelPricing{
	"gpt-4-32k": {
		InputPricePer1K:  gpt432kInputPrice,
		OutputPricePer1K: gpt432kOutputPrice,
	},
	"gpt-4": {
		InputPricePer1K:  gpt4InputPrice,
		OutputPricePer1K: gpt4OutputPrice,
	},
	"claude-3-opus-20240229": {
		InputPricePer1K:  claude3OpusInputPrice,
		OutputPricePer1K: claude3OpusOutputPrice,
	},
	"gemini-pro": {
		InputPricePer1K:  geminiProInputPrice,
		OutputPricePer1K: geminiProOutputPrice,
	},
}

// CalculateCost estimates the cost in USD of one provider call
func CalculateCost(model string, inputTokens, outputTokens int64) float64 {
	pricing, exists := PricingTable[model]
	if !exists {
		// Unknown deployments are priced like the primary chat model
		pricing = PricingTable[defaultPricingModel]
	}

	inputCost := (float64(inputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(outputTokens) / tokensPerKilo) * pricing.OutputPricePer1K
	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
