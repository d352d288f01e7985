// Package aggregate accumulates spending totals by month, category and provider.
package aggregate

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

// Totals holds the three keyed sums. All methods are safe for concurrent use.
// Sums only ever grow by addition, so the result is independent of contribution order.
type Totals struct {
	mu         sync.Mutex
	monthly    map[string]decimal.Decimal
	categories map[string]decimal.Decimal
	providers  map[string]decimal.Decimal
}

func NewTotals() *Totals {
	return &Totals{
		monthly:    map[string]decimal.Decimal{},
		categories: map[string]decimal.Decimal{},
		providers:  map[string]decimal.Decimal{},
	}
}

func (t *Totals) ContributeMonth(key string, amount decimal.Decimal) {
	t.contribute(t.monthly, key, amount)
}

func (t *Totals) ContributeCategory(key string, amount decimal.Decimal) {
	if key == "" {
		key = constants.Uncategorized
	}
	t.contribute(t.categories, key, amount)
}

func (t *Totals) ContributeProvider(key string, amount decimal.Decimal) {
	if key == "" {
		key = constants.UnknownProvider
	}
	t.contribute(t.providers, key, amount)
}

func (t *Totals) contribute(m map[string]decimal.Decimal, key string, amount decimal.Decimal) {
	t.mu.Lock()
	m[key] = m[key].Add(amount)
	t.mu.Unlock()
}

// AddInvoice records one fully classified invoice: its header total goes to the
// month and provider buckets, each item's final price to its category.
func (t *Totals) AddInvoice(inv entity.Invoice) {
	t.ContributeMonth(inv.MonthKey(), inv.Total)
	t.ContributeProvider(inv.Provider, inv.Total)
	for _, it := range inv.Items {
		t.ContributeCategory(it.Category, it.ItemPrice)
	}
}

// Merge folds other into t. other must no longer be written to.
func (t *Totals) Merge(other *Totals) {
	if other == nil || other == t {
		return
	}
	other.mu.Lock()
	defer other.mu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	mergeInto(t.monthly, other.monthly)
	mergeInto(t.categories, other.categories)
	mergeInto(t.providers, other.providers)
}

func mergeInto(dst, src map[string]decimal.Decimal) {
	for k, v := range src {
		dst[k] = dst[k].Add(v)
	}
}

// Snapshot copies the current sums. Call it only after every contributor is done.
func (t *Totals) Snapshot() entity.ExpenseSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return entity.ExpenseSummary{
		MonthlyTotals:  copyMap(t.monthly),
		CategoryTotals: copyMap(t.categories),
		ProviderTotals: copyMap(t.providers),
	}
}

func copyMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Sorted returns m as a slice ordered by key.
func Sorted(m map[string]decimal.Decimal) []entity.Amount {
	out := make([]entity.Amount, 0, len(m))
	for k, v := range m {
		out = append(out, entity.Amount{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Ranked returns m ordered by value descending, ties broken by key. n <= 0 keeps all.
func Ranked(m map[string]decimal.Decimal, n int) []entity.Amount {
	out := Sorted(m)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value.GreaterThan(out[j].Value) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
