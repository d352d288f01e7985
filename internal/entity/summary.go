package entity

import (
	"github.com/shopspring/decimal"
)

// Amount is one key of a totals map, used where ordering matters.
type Amount struct {
	Key   string          `json:"key"`
	Value decimal.Decimal `json:"value"`
}

// BatchStats counts what happened to a batch of documents.
type BatchStats struct {
	Documents int `json:"documents"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Items     int `json:"items"`
	RuleHits  int `json:"rule_hits"`
	AICalls   int `json:"ai_calls"`
}

// ExpenseSummary is the finalized result of one batch.
type ExpenseSummary struct {
	MonthlyTotals  map[string]decimal.Decimal `json:"monthly_totals"`
	CategoryTotals map[string]decimal.Decimal `json:"category_totals"`
	ProviderTotals map[string]decimal.Decimal `json:"provider_totals"`
	Stats          BatchStats                 `json:"stats"`
}
