package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "spa+eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
	// ScanFallback rasterizes and OCRs the PDF when the text layer is empty.
	ScanFallback bool
}

type Result struct {
	Text   string
	Pages  int
	Method string // "pdf-text" | "pdf-ocr"
	// Confidence is the receipt-likeness of Text, see Confidence.
	Confidence float32
	Duration   time.Duration
	Warnings   []string
}

// PDFReader turns a PDF on disk into raw text.
type PDFReader struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPDFReader(cfg Config, logger *slog.Logger) *PDFReader {
	return NewPDFReaderWithRunner(cfg, execRunner{}, logger)
}

func NewPDFReaderWithRunner(cfg Config, runner Runner, logger *slog.Logger) *PDFReader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "spa+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &PDFReader{cfg: cfg, runner: runner, logger: logger}
}

// Read implements the pipeline's DocumentReader.
func (r *PDFReader) Read(ctx context.Context, path string) (string, error) {
	res, err := r.Extract(ctx, path)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Extract returns the text and some bookkeeping about how it was obtained.
func (r *PDFReader) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext != constants.PDFExt {
		r.logger.Error("unsupported document extension", "path", path, "extension", ext)
		return Result{}, fmt.Errorf("%w: unsupported extension %q", common.ErrExtraction, ext)
	}

	text, pages, warns, err := r.pdfToText(ctx, path)
	if err != nil {
		return Result{Warnings: warns}, fmt.Errorf("%w: pdftotext %s: %v", common.ErrExtraction, filepath.Base(path), err)
	}
	res := Result{Text: Normalize(text), Pages: pages, Method: "pdf-text", Warnings: warns}

	if strings.TrimSpace(res.Text) == "" && r.cfg.ScanFallback {
		r.logger.Info("pdf has no text layer, falling back to ocr", "path", path)
		text, pages, warns, err = r.pdfToOCR(ctx, path)
		res.Warnings = append(res.Warnings, warns...)
		if err != nil {
			return res, fmt.Errorf("%w: ocr %s: %v", common.ErrExtraction, filepath.Base(path), err)
		}
		res.Text, res.Pages, res.Method = Normalize(text), pages, "pdf-ocr"
	}

	res.Duration = time.Since(start)
	res.Confidence = Confidence(res.Text)
	if res.Text != "" && res.Confidence < LowConfidence {
		r.logger.Warn("extracted text does not look like a receipt", "path", path, "confidence", res.Confidence)
	}
	r.logger.Debug("document text extracted",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (r *PDFReader) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := r.runner.Run(ctx, r.cfg.Pdftotext, r.logger, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return text, pages, nil, nil
}

func (r *PDFReader) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "ia-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			r.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, r.logger, "-r", fmt.Sprintf("%d", r.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	for _, img := range matches {
		// tesseract <file> stdout -l <lang>
		out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, r.logger, img, "stdout", "-l", r.cfg.TesseractLang)
		if err != nil {
			warns = append(warns, fmt.Sprintf("tesseract %s: %v: %s", filepath.Base(img), err, truncate(string(errb), 512)))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(reBoxNoise.ReplaceAllString(string(out), ""))
	}
	return b.String(), len(matches), warns, nil
}
