// Package async runs the per-document pipeline under two bounds: documents in
// flight and AI categorization calls in flight.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/aggregate"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

// DocumentReader turns a document path into raw text.
type DocumentReader interface {
	Read(ctx context.Context, path string) (string, error)
}

// InvoiceParser extracts header fields and line items from raw text.
type InvoiceParser interface {
	Parse(doc entity.Document) entity.Invoice
}

// ItemClassifier splits classification into the free rule path and the throttled AI path.
type ItemClassifier interface {
	Match(description string) (string, bool)
	CategorizeAI(ctx context.Context, description string) string
}

type Coordinator struct {
	reader     DocumentReader
	parser     InvoiceParser
	classifier ItemClassifier
	logger     *slog.Logger

	workers       int
	aiConcurrency int
	timeout       time.Duration // text extraction of one document
	aiTimeout     time.Duration // one categorizer call, counted after the permit is held
}

type Option func(*Coordinator)

func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithAIConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.aiConcurrency = n
		}
	}
}

// WithProcessTimeout bounds reading one document. Waiting for AI permits is
// not counted: that wait depends on the whole batch.
func WithProcessTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAICallTimeout bounds a single categorizer call. A call that runs out of
// time resolves to Other like any other AI failure.
func WithAICallTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.aiTimeout = d
		}
	}
}

func NewCoordinator(reader DocumentReader, parser InvoiceParser, classifier ItemClassifier, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		reader:        reader,
		parser:        parser,
		classifier:    classifier,
		logger:        logger,
		workers:       5,
		aiConcurrency: 3,
		timeout:       3 * time.Minute,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// DocumentOutcome is what happened to one input document.
type DocumentOutcome struct {
	DocID    string
	Path     string
	Status   constants.DocumentStatus
	Invoice  entity.Invoice
	RuleHits int
	AICalls  int
	Duration time.Duration
	Err      error

	totals *aggregate.Totals
}

// Result of one batch. Outcomes follow input order.
type Result struct {
	Summary  entity.ExpenseSummary
	Outcomes []DocumentOutcome
}

// Invoices returns the invoices that contributed to the totals.
func (r *Result) Invoices() []entity.Invoice {
	out := make([]entity.Invoice, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Status != constants.DocumentStatusFailed {
			out = append(out, o.Invoice)
		}
	}
	return out
}

// Failures returns the documents that were excluded from the totals.
func (r *Result) Failures() []DocumentOutcome {
	var out []DocumentOutcome
	for _, o := range r.Outcomes {
		if o.Status == constants.DocumentStatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Run processes docs and returns the merged totals. A failing document is
// logged and excluded; it never aborts the batch. If ctx is cancelled, no new
// documents are started, pending permit waits abort, and the partial result
// is returned together with ctx.Err().
func (c *Coordinator) Run(ctx context.Context, docs []entity.Document) (*Result, error) {
	start := time.Now()
	sem := semaphore.NewWeighted(int64(c.aiConcurrency))
	outcomes := make([]DocumentOutcome, len(docs))

	c.logger.Info("coordinator.batch.start",
		"run_id", common.RunIDFromContext(ctx),
		"documents", len(docs),
		"workers", c.workers,
		"ai_concurrency", c.aiConcurrency,
	)

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, doc := range docs {
		if ctx.Err() != nil {
			for j := i; j < len(docs); j++ {
				outcomes[j] = failed(docs[j], fmt.Errorf("%w: not started: %w", common.ErrDocumentProcessing, ctx.Err()))
			}
			break
		}
		g.Go(func() error {
			outcomes[i] = c.process(ctx, sem, doc)
			return nil
		})
	}
	_ = g.Wait()

	// Join barrier passed: every partial is final, reduce single-threaded.
	totals := aggregate.NewTotals()
	var stats entity.BatchStats
	stats.Documents = len(docs)
	for i := range outcomes {
		o := &outcomes[i]
		if o.Status == constants.DocumentStatusFailed {
			stats.Failed++
			c.logger.Error("coordinator.document.failed", "doc_id", o.DocID, "path", o.Path, "error", o.Err)
			continue
		}
		totals.Merge(o.totals)
		o.totals = nil
		stats.Processed++
		stats.Items += len(o.Invoice.Items)
		stats.RuleHits += o.RuleHits
		stats.AICalls += o.AICalls
	}

	summary := totals.Snapshot()
	summary.Stats = stats
	res := &Result{Summary: summary, Outcomes: outcomes}

	c.logger.Info("coordinator.batch.done",
		"run_id", common.RunIDFromContext(ctx),
		"processed", stats.Processed,
		"failed", stats.Failed,
		"items", stats.Items,
		"rule_hits", stats.RuleHits,
		"ai_calls", stats.AICalls,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Coordinator) process(ctx context.Context, sem *semaphore.Weighted, doc entity.Document) (out DocumentOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = failed(doc, fmt.Errorf("%w: panic: %v", common.ErrDocumentProcessing, r))
		}
		out.Duration = time.Since(start)
	}()

	ctx = common.WithDocID(ctx, doc.ID)

	if doc.RawText == "" && doc.Path != "" {
		if c.reader == nil {
			return failed(doc, fmt.Errorf("%w: no document reader configured", common.ErrDocumentProcessing))
		}
		text, err := c.read(ctx, doc.Path)
		if err != nil {
			return failed(doc, common.DocumentError(doc.ID, err))
		}
		doc.RawText = text
	}

	inv := c.parser.Parse(doc)
	out = DocumentOutcome{DocID: doc.ID, Path: doc.Path, Status: constants.DocumentStatusProcessed}
	if len(inv.Items) == 0 {
		out.Status = constants.DocumentStatusEmpty
		c.logger.Warn("coordinator.document.no_items",
			"doc_id", doc.ID,
			"error", common.ErrExtraction,
			"total", inv.Total.String(),
		)
	}

	for i := range inv.Items {
		it := &inv.Items[i]
		if cat, ok := c.classifier.Match(it.Description); ok {
			it.Category = cat
			out.RuleHits++
			continue
		}
		cat, err := c.categorizeWithPermit(ctx, sem, it.Description)
		if err != nil {
			return failed(doc, fmt.Errorf("%w: item %s: %w", common.ErrDocumentProcessing, it.Number, err))
		}
		it.Category = cat
		out.AICalls++
	}

	out.Invoice = inv
	out.totals = aggregate.NewTotals()
	out.totals.AddInvoice(inv)

	c.logger.Debug("coordinator.document.ok",
		"doc_id", doc.ID,
		"provider", inv.Provider,
		"items", len(inv.Items),
		"ai_calls", out.AICalls,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (c *Coordinator) read(ctx context.Context, path string) (string, error) {
	ctx, cancel := common.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.reader.Read(ctx, path)
}

// categorizeWithPermit holds one of the shared AI permits for exactly one call.
// Only cancellation of the batch context is an error; the call's own deadline
// resolves inside the classifier.
func (c *Coordinator) categorizeWithPermit(ctx context.Context, sem *semaphore.Weighted, desc string) (string, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire ai permit: %w", err)
	}
	defer sem.Release(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	callCtx, cancel := common.WithTimeout(ctx, c.aiTimeout)
	defer cancel()
	return c.classifier.CategorizeAI(callCtx, desc), nil
}

func failed(doc entity.Document, err error) DocumentOutcome {
	if !errors.Is(err, common.ErrDocumentProcessing) {
		err = common.DocumentError(doc.ID, err)
	}
	return DocumentOutcome{
		DocID:  doc.ID,
		Path:   doc.Path,
		Status: constants.DocumentStatusFailed,
		Err:    err,
	}
}
