// Package summary turns finalized totals into the narrative handed to report sinks.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
	"github.com/joseph-ayodele/invoice-analyzer/internal/llm"
)

// ErrorNarrativePrefix starts the narrative whenever the narrator fails.
const ErrorNarrativePrefix = "ERROR: AI request failed: "

// Output is what the sinks receive.
type Output struct {
	Summary   entity.ExpenseSummary
	Narrative string
	// NarrativeErr is set when Narrative holds the error string.
	NarrativeErr error
	GeneratedAt  time.Time
}

type Builder struct {
	narrator llm.Narrator
	logger   *slog.Logger
	now      func() time.Time
}

func NewBuilder(narrator llm.Narrator, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{narrator: narrator, logger: logger, now: time.Now}
}

// Build serializes the totals and asks the narrator for one summary.
// A narrator failure never fails Build.
func (b *Builder) Build(ctx context.Context, s entity.ExpenseSummary) Output {
	out := Output{Summary: s, GeneratedAt: b.now()}

	req, err := Serialize(s)
	if err != nil {
		out.NarrativeErr = errors.Join(common.ErrNarrative, err)
		out.Narrative = ErrorNarrativePrefix + err.Error()
		return out
	}
	if b.narrator == nil {
		err := errors.New("no narrator configured")
		out.NarrativeErr = errors.Join(common.ErrNarrative, err)
		out.Narrative = ErrorNarrativePrefix + err.Error()
		return out
	}

	start := time.Now()
	text, err := b.narrator.Summarize(ctx, req)
	if err != nil {
		b.logger.Error("summary.narrative.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		out.NarrativeErr = errors.Join(common.ErrNarrative, err)
		out.Narrative = ErrorNarrativePrefix + err.Error()
		return out
	}
	b.logger.Info("summary.narrative.ok", "chars", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	out.Narrative = text
	return out
}

// Serialize renders the three maps as indented JSON objects with keys in
// ascending order and amounts as plain two-decimal numbers.
func Serialize(s entity.ExpenseSummary) (llm.SummaryRequest, error) {
	monthly, err := marshalTotals(s.MonthlyTotals)
	if err != nil {
		return llm.SummaryRequest{}, fmt.Errorf("monthly totals: %w", err)
	}
	categories, err := marshalTotals(s.CategoryTotals)
	if err != nil {
		return llm.SummaryRequest{}, fmt.Errorf("category totals: %w", err)
	}
	providers, err := marshalTotals(s.ProviderTotals)
	if err != nil {
		return llm.SummaryRequest{}, fmt.Errorf("provider totals: %w", err)
	}
	return llm.SummaryRequest{MonthlyJSON: monthly, CategoryJSON: categories, ProviderJSON: providers}, nil
}

// encoding/json writes map keys sorted, which gives the ordering for free.
func marshalTotals(m map[string]decimal.Decimal) (string, error) {
	view := make(map[string]json.Number, len(m))
	for k, v := range m {
		view[k] = json.Number(v.StringFixed(2))
	}
	b, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
