package async

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/classify"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/extract"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

type mapReader struct {
	text map[string]string
	errs map[string]error
}

func (r *mapReader) Read(_ context.Context, path string) (string, error) {
	if err, ok := r.errs[path]; ok {
		return "", err
	}
	return r.text[path], nil
}

// slowAI records the highest number of overlapping CategorizeAI calls.
type slowAI struct {
	delay    time.Duration
	answer   string
	inflight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (s *slowAI) Match(desc string) (string, bool) {
	cat, ok := classify.MatchRules(classify.DefaultRules, strings.ToLower(desc))
	return string(cat), ok
}

func (s *slowAI) CategorizeAI(ctx context.Context, _ string) string {
	s.calls.Add(1)
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	return s.answer
}

type panicParser struct{ on string }

func (p panicParser) Parse(doc entity.Document) entity.Invoice {
	if doc.ID == p.on {
		panic("boom")
	}
	return extract.NewParser(nil).Parse(doc)
}

// header keeps a time after the date so the year cannot start an item row.
func header(provider, date string) string {
	return fmt.Sprintf("%s Fecha %s 09:30\n", provider, date)
}

func row(n int, desc, price string) string {
	return fmt.Sprintf("%03d %s 1.00 und %s 0.00 0.00 %s %s\n", n, desc, price, price, price)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRun_AIConcurrencyNeverExceeded(t *testing.T) {
	var docs []entity.Document
	for d := 0; d < 12; d++ {
		text := header("SUPERMERCADOS XTRA", "10/01/2024")
		for i := 0; i < 4; i++ {
			text += row(i+1, fmt.Sprintf("GATORADE SABOR %c", 'A'+i), "1.25")
		}
		docs = append(docs, entity.Document{ID: fmt.Sprintf("d%02d", d), RawText: text + "Total $5.00"})
	}
	ai := &slowAI{delay: 5 * time.Millisecond, answer: "Drinks"}
	c := NewCoordinator(nil, extract.NewParser(nil), ai, nil, WithWorkers(5), WithAIConcurrency(3))

	res, err := c.Run(context.Background(), docs)

	require.NoError(t, err)
	assert.LessOrEqual(t, ai.peak.Load(), int32(3))
	assert.Equal(t, int32(48), ai.calls.Load())
	assert.Equal(t, 48, res.Summary.Stats.AICalls)
	assert.Equal(t, 12, res.Summary.Stats.Processed)
	assert.True(t, res.Summary.CategoryTotals["Drinks"].Equal(dec("60.00")))
	assert.True(t, res.Summary.ProviderTotals["XTRA"].Equal(dec("60.00")))
	assert.True(t, res.Summary.MonthlyTotals["2024-01"].Equal(dec("60.00")))
}

func TestRun_SumsAcrossDocuments(t *testing.T) {
	docs := []entity.Document{
		{ID: "a", RawText: header("Super 99", "03/02/2024") + row(1, "LECHE ENTERA 1L", "3.50") + "Total $3.50"},
		{ID: "b", RawText: header("Super 99", "17/02/2024") + row(1, "QUESO BLANCO", "2.25") + "Total $2.25"},
	}
	ai := &slowAI{answer: "Other"}
	c := NewCoordinator(nil, extract.NewParser(nil), ai, nil)

	res, err := c.Run(context.Background(), docs)

	require.NoError(t, err)
	assert.True(t, res.Summary.CategoryTotals["Dairy"].Equal(dec("5.75")))
	assert.True(t, res.Summary.MonthlyTotals["2024-02"].Equal(dec("5.75")))
	assert.True(t, res.Summary.ProviderTotals["Super 99"].Equal(dec("5.75")))
	assert.Equal(t, int32(0), ai.calls.Load())
	assert.Equal(t, 2, res.Summary.Stats.RuleHits)
	require.Len(t, res.Invoices(), 2)
	assert.Equal(t, "Dairy", res.Invoices()[0].Items[0].Category)
}

func TestRun_FailingDocumentIsIsolated(t *testing.T) {
	reader := &mapReader{
		text: map[string]string{
			"ok.pdf": header("Super 99", "01/05/2024") + row(1, "PAN PULLMAN", "2.00") + "Total $2.00",
		},
		errs: map[string]error{"bad.pdf": fmt.Errorf("%w: corrupt", common.ErrExtraction)},
	}
	docs := []entity.Document{
		{ID: "bad", Path: "bad.pdf"},
		{ID: "ok", Path: "ok.pdf"},
		{ID: "panics", RawText: row(1, "PAN", "9.99")},
	}
	c := NewCoordinator(reader, panicParser{on: "panics"}, &slowAI{}, nil)

	res, err := c.Run(context.Background(), docs)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Stats.Processed)
	assert.Equal(t, 2, res.Summary.Stats.Failed)
	assert.True(t, res.Summary.CategoryTotals["Bakery"].Equal(dec("2.00")))
	assert.Len(t, res.Summary.CategoryTotals, 1)

	fails := res.Failures()
	require.Len(t, fails, 2)
	assert.Equal(t, "bad", fails[0].DocID)
	assert.ErrorIs(t, fails[0].Err, common.ErrDocumentProcessing)
	assert.ErrorIs(t, fails[0].Err, common.ErrExtraction)
	assert.Equal(t, "panics", fails[1].DocID)
	assert.Contains(t, fails[1].Err.Error(), "boom")
	assert.Equal(t, constants.DocumentStatusProcessed, res.Outcomes[1].Status)
}

func TestRun_EmptyDocumentStillCountsHeader(t *testing.T) {
	docs := []entity.Document{{ID: "e", RawText: "SUPERMERCADOS XTRA 02/03/2024\nTotal $7.10"}}
	c := NewCoordinator(nil, extract.NewParser(nil), &slowAI{}, nil)

	res, err := c.Run(context.Background(), docs)

	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusEmpty, res.Outcomes[0].Status)
	assert.True(t, res.Summary.ProviderTotals["XTRA"].Equal(dec("7.10")))
	assert.Empty(t, res.Summary.CategoryTotals)
}

func TestRun_Cancellation(t *testing.T) {
	var docs []entity.Document
	for d := 0; d < 20; d++ {
		docs = append(docs, entity.Document{ID: fmt.Sprintf("c%02d", d), RawText: row(1, "GATORADE AZUL", "1.00")})
	}
	ai := &slowAI{delay: time.Second, answer: "Drinks"}
	c := NewCoordinator(nil, extract.NewParser(nil), ai, nil, WithWorkers(2), WithAIConcurrency(1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	res, err := c.Run(ctx, docs)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
	require.NotNil(t, res)
	assert.Len(t, res.Outcomes, len(docs))
	assert.Greater(t, res.Summary.Stats.Failed, 0)
}

func TestRun_NoDocuments(t *testing.T) {
	c := NewCoordinator(nil, extract.NewParser(nil), &slowAI{}, nil)

	res, err := c.Run(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, res.Summary.MonthlyTotals)
	assert.Equal(t, 0, res.Summary.Stats.Documents)
}

func TestRun_PermitWaitDoesNotCountAgainstProcessTimeout(t *testing.T) {
	var docs []entity.Document
	for d := 0; d < 4; d++ {
		text := header("SUPERMERCADOS XTRA", "10/01/2024")
		for i := 0; i < 3; i++ {
			text += row(i+1, fmt.Sprintf("GATORADE SABOR %c", 'A'+i), "1.00")
		}
		docs = append(docs, entity.Document{ID: fmt.Sprintf("q%02d", d), RawText: text + "Total $3.00"})
	}
	// 12 serialized calls of 20ms take far longer than the 100ms process timeout.
	ai := &slowAI{delay: 20 * time.Millisecond, answer: "Drinks"}
	c := NewCoordinator(nil, extract.NewParser(nil), ai, nil,
		WithWorkers(4), WithAIConcurrency(1), WithProcessTimeout(100*time.Millisecond))

	res, err := c.Run(context.Background(), docs)

	require.NoError(t, err)
	assert.Equal(t, 4, res.Summary.Stats.Processed)
	assert.Equal(t, 0, res.Summary.Stats.Failed)
	assert.Equal(t, 12, res.Summary.Stats.AICalls)
	assert.True(t, res.Summary.CategoryTotals["Drinks"].Equal(dec("12.00")))
	assert.True(t, res.Summary.ProviderTotals["XTRA"].Equal(dec("12.00")))
}

// stuckCategorizer never answers before its context ends.
type stuckCategorizer struct{ calls atomic.Int32 }

func (s *stuckCategorizer) Categorize(ctx context.Context, _ string, _ []string) (string, error) {
	s.calls.Add(1)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRun_AICallTimeoutResolvesToOther(t *testing.T) {
	text := header("SUPERMERCADOS XTRA", "10/01/2024") +
		row(1, "GATORADE AZUL", "1.25") +
		row(2, "GATORADE ROJO", "2.00") + "Total $3.25"
	ai := &stuckCategorizer{}
	c := NewCoordinator(nil, extract.NewParser(nil), classify.NewClassifier(nil, ai, nil), nil,
		WithAIConcurrency(1), WithAICallTimeout(20*time.Millisecond))

	res, err := c.Run(context.Background(), []entity.Document{{ID: "t1", RawText: text}})

	require.NoError(t, err)
	assert.Equal(t, int32(2), ai.calls.Load())
	assert.Equal(t, 1, res.Summary.Stats.Processed)
	assert.True(t, res.Summary.CategoryTotals[string(constants.Other)].Equal(dec("3.25")))
	require.Len(t, res.Outcomes[0].Invoice.Items, 2)
	assert.Equal(t, string(constants.Other), res.Outcomes[0].Invoice.Items[1].Category)
}

type blockingReader struct{}

func (blockingReader) Read(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRun_ReadTimeoutFailsOnlyThatDocument(t *testing.T) {
	c := NewCoordinator(blockingReader{}, extract.NewParser(nil), &slowAI{}, nil, WithProcessTimeout(20*time.Millisecond))

	res, err := c.Run(context.Background(), []entity.Document{
		{ID: "slow", Path: "/tmp/invoice_slow.pdf"},
		{ID: "ok", RawText: header("SUPERMERCADOS XTRA", "10/01/2024") + row(1, "LECHE ENTERA 1L", "3.50") + "Total $3.50"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Stats.Failed)
	assert.Equal(t, 1, res.Summary.Stats.Processed)
	assert.ErrorIs(t, res.Outcomes[0].Err, context.DeadlineExceeded)
}
