// Package pricing maps token usage to USD cost for sub-agent runs.
package pricing

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"
)

// ModelPricing holds per-model token prices in USD per million tokens.
type ModelPricing struct {
	InputPerMTok      decimal.Decimal
	OutputPerMTok     decimal.Decimal
	CacheWritePerMTok decimal.Decimal
	CacheReadPerMTok  decimal.Decimal
}

var million = decimal.NewFromInt(1_000_000)

// Usage holds token counts for a single API call.
type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheReadInputTokens     int64
	CacheCreationInputTokens int64
}

// Total returns the blended token count across all categories.
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
}

// Cost returns the USD cost of the usage at this pricing.
func (p ModelPricing) Cost(u Usage) decimal.Decimal {
	cost := decimal.NewFromInt(u.InputTokens).Mul(p.InputPerMTok).Div(million)
	cost = cost.Add(decimal.NewFromInt(u.CacheReadInputTokens).Mul(p.CacheReadPerMTok).Div(million))
	cost = cost.Add(decimal.NewFromInt(u.CacheCreationInputTokens).Mul(p.CacheWritePerMTok).Div(million))
	cost = cost.Add(decimal.NewFromInt(u.OutputTokens).Mul(p.OutputPerMTok).Div(million))
	return cost
}

// CostFor prices usage for the given model. Unknown models cost zero; tokens
// are still counted by the caller.
func CostFor(model anthropic.Model, u Usage) decimal.Decimal {
	p, ok := Default[model]
	if !ok {
		return decimal.Zero
	}
	return p.Cost(u)
}

// Default contains built-in pricing for Claude models (USD per million tokens).
var Default = map[anthropic.Model]ModelPricing{
	anthropic.ModelClaudeOpus4_6: {
		InputPerMTok:      decimal.NewFromFloat(5),
		OutputPerMTok:     decimal.NewFromFloat(25),
		CacheWritePerMTok: decimal.NewFromFloat(6.25),
		CacheReadPerMTok:  decimal.NewFromFloat(0.5),
	},
	anthropic.ModelClaudeSonnet4_5: {
		InputPerMTok:      decimal.NewFromFloat(3),
		OutputPerMTok:     decimal.NewFromFloat(15),
		CacheWritePerMTok: decimal.NewFromFloat(3.75),
		CacheReadPerMTok:  decimal.NewFromFloat(0.3),
	},
	anthropic.ModelClaudeHaiku4_5: {
		InputPerMTok:      decimal.NewFromFloat(1),
		OutputPerMTok:     decimal.NewFromFloat(5),
		CacheWritePerMTok: decimal.NewFromFloat(1.25),
		CacheReadPerMTok:  decimal.NewFromFloat(0.1),
	},
}
