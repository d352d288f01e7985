package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document is one unit of raw input handed to the pipeline.
type Document struct {
	ID      string `json:"id"`
	Path    string `json:"path,omitempty"`
	RawText string `json:"-"`
}

// LineItem is one purchased product extracted from a receipt.
// Category is empty until the classifier assigns it.
type LineItem struct {
	Number      string          `json:"number"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	LinePrice   decimal.Decimal `json:"line_price"`
	ItemPrice   decimal.Decimal `json:"item_price"`
	Category    string          `json:"category,omitempty"`
}

// Invoice represents one processed receipt document.
type Invoice struct {
	ID       string          `json:"id"`
	Provider string          `json:"provider,omitempty"`
	Date     time.Time       `json:"date"`
	Total    decimal.Decimal `json:"total"`
	RawText  string          `json:"-"`
	Items    []LineItem      `json:"items"`
}

// MonthKey returns the yyyy-MM bucket the invoice contributes to.
func (i Invoice) MonthKey() string {
	return i.Date.Format("2006-01")
}
