// Package extract pulls structured line items and header fields out of raw receipt text.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-analyzer/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

// reLineItem matches one printed product row:
//
//	<num:3 digits> <desc> <qty> und <unit> <disc> <tax> <line> <item>
//
// Every amount carries exactly two decimals; the description is lazy so it
// stops at the first token that can start the quantity.
var reLineItem = regexp.MustCompile(`(?i)` +
	`(\d{3})` +
	`([A-Z0-9 \-/]+?)` +
	`(\d+\.\d{2})` +
	`\s*und` +
	`\s*(\d+\.\d{2})` +
	`\s*(\d+\.\d{2})` +
	`\s*(\d+\.\d{2})` +
	`\s*(\d+\.\d{2})` +
	`\s*(\d+\.\d{2})`)

// ExtractItems returns the line items found in raw, in document order.
// Text with no recognizable rows yields an empty slice.
func ExtractItems(raw string) []entity.LineItem {
	clean := ocr.Flatten(raw)
	matches := reLineItem.FindAllStringSubmatch(clean, -1)

	items := make([]entity.LineItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, entity.LineItem{
			Number:      m[1],
			Description: strings.TrimSpace(m[2]),
			Quantity:    mustAmount(m[3]),
			UnitPrice:   mustAmount(m[4]),
			Discount:    mustAmount(m[5]),
			Tax:         mustAmount(m[6]),
			LinePrice:   mustAmount(m[7]),
			ItemPrice:   mustAmount(m[8]),
		})
	}
	return items
}

// mustAmount parses a token the regexp already constrained to \d+\.\d{2}.
func mustAmount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
