package service

import "strings"

type GeminiCostEstimate struct {
	PricingSource    string
	EstimatedCostUSD float64
}

type geminiPrice struct {
	inputPer1M  float64
	outputPer1M float64
}

var geminiPricePer1MTokensUSD = map[string]geminiPrice{
	"gemini-2.0-flash":      {inputPer1M: 0.10, outputPer1M: 0.40},
	"gemini-2.0-flash-lite": {inputPer1M: 0.075, outputPer1M: 0.30},
	"gemini-1.5-flash":      {inputPer1M: 0.075, outputPer1M: 0.30},
	"gemini-2.5-flash":      {inputPer1M: 0.30, outputPer1M: 2.50},
}

// EstimateGeminiCostUSD prices a call from the static table. Unknown models
// cost zero and are marked so the usage log can tell them apart.
func EstimateGeminiCostUSD(model string, inputTokens, outputTokens int) GeminiCostEstimate {
	m := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(model)), "models/")
	p, ok := geminiPricePer1MTokensUSD[m]
	if !ok {
		return GeminiCostEstimate{PricingSource: "unknown"}
	}
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	cost := float64(inputTokens)/1_000_000.0*p.inputPer1M + float64(outputTokens)/1_000_000.0*p.outputPer1M
	return GeminiCostEstimate{PricingSource: "gemini_static", EstimatedCostUSD: cost}
}
