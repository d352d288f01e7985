package extract

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

// ProviderRule maps any of its markers (case-insensitive substring) to a provider label.
type ProviderRule struct {
	Label   string
	Markers []string
}

// DefaultProviders is evaluated in order; first hit wins.
var DefaultProviders = []ProviderRule{
	{Label: "Super 99", Markers: []string{"Super 99", "IMPORTADORA RICAMAR"}},
	{Label: "XTRA", Markers: []string{"SUPERMERCADOS XTRA"}},
}

var (
	reDate  = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	reTotal = regexp.MustCompile(`Total\s*\$?(\d+(\.\d+)?)`)
)

// dateLayouts are tried in order against the first date-looking token.
var dateLayouts = []string{"02/01/2006", "01/02/2006"}

// DetectProvider returns the provider label, or "" when none of the rules match.
func DetectProvider(text string, rules []ProviderRule) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, m := range r.Markers {
			if strings.Contains(lower, strings.ToLower(m)) {
				return r.Label
			}
		}
	}
	return ""
}

// DetectDate returns the first dd/mm/yyyy date in text, or the zero time.
func DetectDate(text string) time.Time {
	tok := reDate.FindString(text)
	if tok == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, tok); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DetectTotal returns the amount after the first "Total" label, or zero.
func DetectTotal(text string) decimal.Decimal {
	m := reTotal.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero
	}
	return d
}

// InvoiceID derives the identifier from a file name: the part after the last '_'.
// invoice_18c2f.pdf -> 18c2f
func InvoiceID(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndex(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Parser builds invoices from raw text.
type Parser struct {
	providers []ProviderRule
}

func NewParser(providers []ProviderRule) *Parser {
	if len(providers) == 0 {
		providers = DefaultProviders
	}
	return &Parser{providers: providers}
}

// Parse fills the header fields and line items for one document.
// Categories are left empty.
func (p *Parser) Parse(doc entity.Document) entity.Invoice {
	id := doc.ID
	if id == "" && doc.Path != "" {
		id = InvoiceID(doc.Path)
	}
	return entity.Invoice{
		ID:       id,
		Provider: DetectProvider(doc.RawText, p.providers),
		Date:     DetectDate(doc.RawText),
		Total:    DetectTotal(doc.RawText),
		RawText:  doc.RawText,
		Items:    ExtractItems(doc.RawText),
	}
}
