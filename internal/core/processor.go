// Package core wires the batch stages together: optional mailbox download,
// folder listing, concurrent extraction and classification, narrative,
// report sinks and run persistence.
package core

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/async"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/summary"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
	"github.com/joseph-ayodele/invoice-analyzer/internal/ingest"
	"github.com/joseph-ayodele/invoice-analyzer/internal/llm"
	"github.com/joseph-ayodele/invoice-analyzer/internal/report"
	"github.com/joseph-ayodele/invoice-analyzer/internal/repository"
)

// Downloader pulls new documents into the working folder.
type Downloader interface {
	Download(ctx context.Context, query string) (ingest.DownloadStats, error)
}

// BatchRunner processes a set of documents into totals.
type BatchRunner interface {
	Run(ctx context.Context, docs []entity.Document) (*async.Result, error)
}

// SummaryBuilder turns totals into the sink input.
type SummaryBuilder interface {
	Build(ctx context.Context, s entity.ExpenseSummary) summary.Output
}

// Processor runs one analysis end to end.
type Processor struct {
	logger     *slog.Logger
	folder     string
	health     llm.HealthChecker
	downloader Downloader
	query      string
	batch      BatchRunner
	builder    SummaryBuilder
	sink       report.Sink
	runs       repository.RunRepository
	newID      func() string
}

type ProcessorOption func(*Processor)

// WithHealthChecker enables Preflight.
func WithHealthChecker(h llm.HealthChecker) ProcessorOption {
	return func(p *Processor) { p.health = h }
}

// WithDownloader makes Run fetch new documents matching query first.
func WithDownloader(d Downloader, query string) ProcessorOption {
	return func(p *Processor) {
		p.downloader = d
		p.query = query
	}
}

// WithSink sets where the finished report goes.
func WithSink(s report.Sink) ProcessorOption {
	return func(p *Processor) { p.sink = s }
}

// WithRunRepository persists each run.
func WithRunRepository(r repository.RunRepository) ProcessorOption {
	return func(p *Processor) { p.runs = r }
}

func NewProcessor(folder string, batch BatchRunner, builder SummaryBuilder, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:  logger,
		folder:  folder,
		batch:   batch,
		builder: builder,
		newID:   func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RunReport is what one Run produced.
type RunReport struct {
	RunID          string
	Download       *ingest.DownloadStats
	Output         summary.Output
	Outcomes       []async.DocumentOutcome
	Invoices       []entity.Invoice
	ReportLocation string
	Duration       time.Duration
}

// Preflight checks that the AI service is reachable and has the model.
func (p *Processor) Preflight(ctx context.Context) error {
	return Preflight(ctx, p.health, p.logger)
}

// Preflight runs the health check without a Processor, so callers can fail
// before building mailbox or storage clients. A nil checker passes.
func Preflight(ctx context.Context, health llm.HealthChecker, logger *slog.Logger) error {
	if health == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if !health.IsRunning(ctx) {
		logger.Error("processor.preflight.not_running")
		return common.NewAppError("AI_UNAVAILABLE", "ai service is not running", common.ErrServiceUnavailable)
	}
	ok, err := health.ModelExists(ctx)
	if err != nil {
		logger.Error("processor.preflight.model_check_failed", "error", err)
		return common.NewAppError("AI_UNAVAILABLE", "model check failed", errors.Join(common.ErrServiceUnavailable, err))
	}
	if !ok {
		logger.Error("processor.preflight.model_missing")
		return common.NewAppError("AI_UNAVAILABLE", "model is not installed", common.ErrServiceUnavailable)
	}
	logger.Info("processor.preflight.ok")
	return nil
}

// Fetch runs only the download step.
func (p *Processor) Fetch(ctx context.Context) (ingest.DownloadStats, error) {
	if p.downloader == nil {
		return ingest.DownloadStats{}, errors.New("no downloader configured")
	}
	if err := ingest.EnsureFolder(p.folder); err != nil {
		return ingest.DownloadStats{}, err
	}
	return p.downloader.Download(ctx, p.query)
}

// Run executes the whole pipeline once. Download failures are logged and the
// run continues with what is already on disk. A failing sink is reported after
// the run is persisted.
func (p *Processor) Run(ctx context.Context) (*RunReport, error) {
	return p.run(ctx, p.downloader != nil)
}

func (p *Processor) run(ctx context.Context, download bool) (*RunReport, error) {
	start := time.Now()
	rep := &RunReport{RunID: p.newID()}
	ctx = common.WithRunID(ctx, rep.RunID)
	log := p.logger.With("run_id", rep.RunID)

	if err := ingest.EnsureFolder(p.folder); err != nil {
		return rep, err
	}

	if download && p.downloader != nil {
		stats, err := p.downloader.Download(ctx, p.query)
		if err != nil {
			log.Error("processor.download.failed", "error", err)
		} else {
			rep.Download = &stats
		}
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
	}

	docs, err := ingest.ListDocuments(p.folder)
	if err != nil {
		return rep, err
	}
	if len(docs) == 0 {
		log.Warn("processor.no_documents", "folder", p.folder)
		return rep, common.ErrNoDocuments
	}
	log.Info("processor.run.start", "folder", p.folder, "documents", len(docs))

	persist := p.runs != nil
	if persist {
		if err := p.runs.StartRun(ctx, rep.RunID, start); err != nil {
			log.Error("processor.persist.start_failed", "error", err)
			persist = false
		}
	}

	res, runErr := p.batch.Run(ctx, docs)
	if res != nil {
		rep.Outcomes = res.Outcomes
		rep.Invoices = res.Invoices()
	}
	if runErr != nil {
		log.Error("processor.batch.aborted", "error", runErr)
		if persist {
			p.finish(log, rep, constants.RunStatusFailed, res, runErr)
		}
		rep.Duration = time.Since(start)
		return rep, runErr
	}

	rep.Output = p.builder.Build(ctx, res.Summary)

	var sinkErr error
	if p.sink != nil {
		loc, err := p.sink.Write(ctx, report.Input{RunID: rep.RunID, Output: rep.Output, Invoices: rep.Invoices})
		rep.ReportLocation = loc
		if err != nil {
			sinkErr = common.WrapError(err, "write report")
		}
	}

	if persist {
		status := constants.RunStatusSucceeded
		if sinkErr != nil {
			status = constants.RunStatusFailed
		}
		p.finish(log, rep, status, res, sinkErr)
	}

	rep.Duration = time.Since(start)
	st := rep.Output.Summary.Stats
	log.Info("processor.run.done",
		"documents", st.Documents,
		"processed", st.Processed,
		"failed", st.Failed,
		"items", st.Items,
		"ai_calls", st.AICalls,
		"report", rep.ReportLocation,
		"elapsed_ms", rep.Duration.Milliseconds(),
	)
	return rep, sinkErr
}

func (p *Processor) finish(log *slog.Logger, rep *RunReport, status constants.RunStatus, res *async.Result, runErr error) {
	out := repository.RunResult{
		Status:         status,
		Invoices:       rep.Invoices,
		Narrative:      rep.Output.Narrative,
		ReportLocation: rep.ReportLocation,
		Err:            runErr,
	}
	if res != nil {
		out.Summary = res.Summary
	}
	// the run context may already be cancelled; the record should still land.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.runs.FinishRun(ctx, rep.RunID, out); err != nil {
		log.Error("processor.persist.finish_failed", "error", err)
	}
}

// Watch runs once, then again every time new PDFs settle in the working folder.
// Re-runs do not download. It returns when ctx is done.
func (p *Processor) Watch(ctx context.Context, debounce time.Duration, onRun func(*RunReport, error)) error {
	if onRun == nil {
		onRun = func(*RunReport, error) {}
	}
	onRun(p.Run(ctx))

	batches, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{Root: p.folder, Debounce: debounce, Logger: p.logger})
	if err != nil {
		return err
	}
	p.logger.Info("processor.watch.start", "folder", p.folder, "debounce", debounce.String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths, ok := <-batches:
			if !ok {
				return nil
			}
			names := make([]string, 0, len(paths))
			for _, path := range paths {
				names = append(names, filepath.Base(path))
			}
			p.logger.Info("processor.watch.changed", "files", names)
			onRun(p.run(ctx, false))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.logger.Warn("processor.watch.error", "error", err)
		}
	}
}
