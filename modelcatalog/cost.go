package modelcatalog

import (
	"math"

	"github.com/stratahq/strata/schemas"
)

const tokensPerMillion = 1_000_000

// LookupTokenPrices returns the curated per-million-token rates for a model,
// or nil when no curated pricing exists.
func (c *Catalog) LookupTokenPrices(provider schemas.ModelProvider, modelID string) *schemas.TokenPrices {
	curated := c.FindCuratedModel(provider, modelID)
	if curated == nil || curated.TokenPrices == nil {
		return nil
	}
	prices := *curated.TokenPrices
	return &prices
}

// EstimateCost computes the USD cost of a call from token usage and curated
// pricing. It returns nil — never an error — when usage is absent, no pricing
// is curated, or both rates are zero; the caller leaves cost unset in that
// case rather than reporting a zero cost.
func (c *Catalog) EstimateCost(provider schemas.ModelProvider, modelID string, usage *schemas.Usage) *schemas.CostBreakdown {
	if usage == nil || (usage.InputTokens == nil && usage.OutputTokens == nil) {
		return nil
	}
	pricing := c.LookupTokenPrices(provider, modelID)
	if pricing == nil {
		return nil
	}

	var inputRate, outputRate float64
	if pricing.Input != nil {
		inputRate = *pricing.Input
	}
	if pricing.Output != nil {
		outputRate = *pricing.Output
	}
	if inputRate == 0 && outputRate == 0 {
		return nil
	}

	var inputTokens, outputTokens int
	if usage.InputTokens != nil {
		inputTokens = *usage.InputTokens
	}
	if usage.OutputTokens != nil {
		outputTokens = *usage.OutputTokens
	}

	inputCost := float64(inputTokens) * inputRate / tokensPerMillion
	outputCost := float64(outputTokens) * outputRate / tokensPerMillion
	return &schemas.CostBreakdown{
		InputCostUSD:      roundUSD(inputCost),
		OutputCostUSD:     roundUSD(outputCost),
		TotalCostUSD:      roundUSD(inputCost + outputCost),
		PricingPerMillion: pricing,
	}
}

// EstimateTranscribeCost computes the USD cost of a transcription from its
// audio duration at the curated per-minute rate. Returns nil when the
// duration is unknown or no per-minute rate is curated.
func (c *Catalog) EstimateTranscribeCost(provider schemas.ModelProvider, modelID string, durationSeconds *float64) *schemas.CostBreakdown {
	if durationSeconds == nil || *durationSeconds < 0 {
		return nil
	}
	curated := c.FindCuratedModel(provider, modelID)
	if curated == nil || curated.AudioPrices == nil || curated.AudioPrices.PerMinute == nil {
		return nil
	}
	rate := *curated.AudioPrices.PerMinute
	if rate <= 0 {
		return nil
	}
	total := roundUSD(*durationSeconds / 60.0 * rate)
	return &schemas.CostBreakdown{TotalCostUSD: total}
}

func roundUSD(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
