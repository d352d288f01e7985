package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/async"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/classify"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/extract"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core/summary"
	"github.com/joseph-ayodele/invoice-analyzer/internal/ingest"
	"github.com/joseph-ayodele/invoice-analyzer/internal/llm"
	"github.com/joseph-ayodele/invoice-analyzer/internal/llm/ollama"
	"github.com/joseph-ayodele/invoice-analyzer/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-analyzer/internal/mailbox/gmail"
	"github.com/joseph-ayodele/invoice-analyzer/internal/report"
	"github.com/joseph-ayodele/invoice-analyzer/internal/repository"
)

func newAIClient(c *common.Config, logger *slog.Logger) (llm.Client, error) {
	switch c.AI.Provider {
	case common.AIProviderOpenAI:
		base := c.AI.BaseURL
		// the shared default points at a local Ollama
		if base == ollama.DefaultBaseURL {
			base = ""
		}
		return openai.NewClient(openai.Config{
			APIKey:      c.AI.APIKey,
			BaseURL:     base,
			Model:       c.AI.Model,
			Temperature: c.AI.Temperature,
			Timeout:     c.AI.Timeout,
		}, logger)
	case common.AIProviderOllama, "":
		// ai.temperature defaults to 0 and is always sent
		temp := c.AI.Temperature
		return ollama.NewClient(ollama.Config{
			BaseURL:     c.AI.BaseURL,
			Model:       c.AI.Model,
			Temperature: &temp,
			Timeout:     c.AI.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
}

func newDownloader(ctx context.Context, c *common.Config, in io.Reader, out io.Writer, logger *slog.Logger) (*ingest.Downloader, error) {
	ts, err := gmail.TokenSource(ctx, c.Gmail.CredentialsFile, c.Gmail.TokenFile, in, out)
	if err != nil {
		return nil, err
	}
	store, err := gmail.NewStore(ctx, ts, gmail.Config{
		User:              c.Gmail.User,
		RequestsPerSecond: c.Gmail.RequestsPerSecond,
		Burst:             c.Gmail.Burst,
	}, logger)
	if err != nil {
		return nil, err
	}
	return ingest.NewDownloader(store, c.Pipeline.WorkingFolder, logger), nil
}

func newSink(ctx context.Context, c *common.Config, logger *slog.Logger) (report.Sink, error) {
	var sinks []report.Sink
	html := report.Sink(report.NewHTMLSink(c.Report.Dir, c.Report.Name, logger))
	var xlsx report.Sink
	if c.Report.XLSX {
		xlsx = report.NewXLSXSink(c.Report.Dir, xlsxName(c.Report.Name), logger)
	}

	if c.Report.S3Bucket != "" {
		s3cfg := report.S3Config{
			Bucket:    c.Report.S3Bucket,
			Prefix:    c.Report.S3Prefix,
			Region:    c.Report.S3Region,
			Endpoint:  c.Report.S3Endpoint,
			AccessKey: c.Report.S3Access,
			SecretKey: c.Report.S3Secret,
		}
		up, err := report.NewS3Uploader(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, report.NewS3Sink(html, up, s3cfg, logger))
		if xlsx != nil {
			sinks = append(sinks, report.NewS3Sink(xlsx, up, s3cfg, logger))
		}
	} else {
		sinks = append(sinks, html)
		if xlsx != nil {
			sinks = append(sinks, xlsx)
		}
	}
	return report.NewMulti(logger, sinks...), nil
}

func xlsxName(htmlName string) string {
	if i := strings.LastIndex(htmlName, "."); i > 0 {
		return htmlName[:i] + ".xlsx"
	}
	return htmlName + ".xlsx"
}

func newRunRepository(ctx context.Context, c *common.Config, logger *slog.Logger) (repository.RunRepository, func(), error) {
	if c.Database.DSN == "" {
		return nil, func() {}, nil
	}
	db, err := repository.Open(ctx, repository.Config{
		DSN:             c.Database.DSN,
		MaxConns:        c.Database.MaxOpenConns,
		MinConns:        c.Database.MinConns,
		MaxConnLifetime: c.Database.MaxConnLifetime,
		MaxConnIdleTime: c.Database.MaxConnIdleTime,
		DialTimeout:     c.Database.DialTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRunRepository(db), func() { repository.Close(db, logger) }, nil
}

type app struct {
	processor *core.Processor
	ai        llm.Client
	close     func()
}

type appOptions struct {
	download  bool
	preflight bool // checked before the mailbox and database are touched
	in        io.Reader
	out       io.Writer
}

func buildApp(ctx context.Context, c *common.Config, logger *slog.Logger, o appOptions) (*app, error) {
	ai, err := newAIClient(c, logger)
	if err != nil {
		return nil, err
	}
	if o.preflight {
		if err := core.Preflight(ctx, ai, logger); err != nil {
			return nil, err
		}
	}

	reader := ocr.NewPDFReader(ocr.Config{
		Pdftotext:     c.OCR.Pdftotext,
		TesseractLang: c.OCR.Lang,
		ScanFallback:  c.OCR.ScanFallback,
	}, logger)
	if err := reader.Available(); err != nil {
		logger.Warn("ocr.tools.missing", "error", err)
	}
	classifier := classify.NewClassifier(nil, ai, logger)
	coordinator := async.NewCoordinator(reader, extract.NewParser(extract.DefaultProviders), classifier, logger,
		async.WithWorkers(c.Pipeline.Workers),
		async.WithAIConcurrency(c.Pipeline.AIConcurrency),
		async.WithProcessTimeout(c.Pipeline.ProcessTimeout),
		async.WithAICallTimeout(c.AI.Timeout),
	)

	sink, err := newSink(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	opts := []core.ProcessorOption{
		core.WithHealthChecker(ai),
		core.WithSink(sink),
	}
	if o.download && c.Pipeline.DownloadInvoices {
		d, err := newDownloader(ctx, c, o.in, o.out, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithDownloader(d, c.Gmail.Query))
	}

	runs, closeDB, err := newRunRepository(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	if runs != nil {
		opts = append(opts, core.WithRunRepository(runs))
	}

	p := core.NewProcessor(c.Pipeline.WorkingFolder, coordinator, summary.NewBuilder(ai, logger), logger, opts...)
	return &app{processor: p, ai: ai, close: closeDB}, nil
}

func openInBrowser(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	return cmd.Start()
}
