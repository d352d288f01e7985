package ocr

import (
	"regexp"
	"strings"
)

var (
	reConfDate   = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b|\b20\d{2}-\d{2}-\d{2}\b`)
	reConfCurr   = regexp.MustCompile(`(?i)\b(usd|total|subtotal|iva)\b|\$`)
	reConfAmount = regexp.MustCompile(`\b\d{1,3}(,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`)
)

// LowConfidence is the score below which extracted text probably is not a receipt.
const LowConfidence = 0.5

// Confidence scores how much text looks like a receipt, from 0 to 1.
// It looks for a date, a currency or total marker, two-decimal amounts and
// enough content.
func Confidence(text string) float32 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	score := float32(0.2)
	if reConfDate.MatchString(text) {
		score += 0.2
	}
	if reConfCurr.MatchString(text) {
		score += 0.15
	}
	switch n := len(reConfAmount.FindAllStringIndex(text, 3)); {
	case n >= 3:
		score += 0.3
	case n > 0:
		score += 0.15
	}
	if len(text) > 120 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
