package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls []call
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return f.fn(name, args)
}

func TestPDFReader_ReadUsesPdftotext(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return []byte("Super 99\r\n\tTotal   $3.50\f"), nil, nil
	}}
	r := NewPDFReaderWithRunner(Config{Pdftotext: "/usr/bin/pdftotext"}, runner, nil)

	text, err := r.Read(context.Background(), "invoices/invoice_1.pdf")

	require.NoError(t, err)
	assert.Equal(t, "Super 99\n Total $3.50", text)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/usr/bin/pdftotext", runner.calls[0].name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "invoices/invoice_1.pdf", "-"}, runner.calls[0].args)
}

func TestPDFReader_ExtractCountsPages(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return []byte("page one\fpage two\f"), nil, nil
	}}
	r := NewPDFReaderWithRunner(Config{}, runner, nil)

	res, err := r.Extract(context.Background(), "a.pdf")

	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "pdf-text", res.Method)
}

func TestPDFReader_RejectsNonPDF(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) { return nil, nil, nil }}
	r := NewPDFReaderWithRunner(Config{}, runner, nil)

	_, err := r.Read(context.Background(), "scan.png")

	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.Empty(t, runner.calls)
}

func TestPDFReader_RunnerFailure(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error: Couldn't find trailer dictionary"), errors.New("exit status 1")
	}}
	r := NewPDFReaderWithRunner(Config{}, runner, nil)

	_, err := r.Read(context.Background(), "broken.pdf")

	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestPDFReader_ScanFallback(t *testing.T) {
	runner := &fakeRunner{}
	runner.fn = func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("  \f"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			require.NoError(t, os.WriteFile(prefix+"-1.png", []byte("png"), 0o600))
			return nil, nil, nil
		case "tesseract":
			return []byte("-----\n001 PAN 1.00 und 1.10 0.00 0.00 1.10 1.10\n"), nil, nil
		}
		return nil, nil, errors.New("unexpected " + name)
	}
	r := NewPDFReaderWithRunner(Config{ScanFallback: true}, runner, nil)

	res, err := r.Extract(context.Background(), "scanned.pdf")

	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "001 PAN 1.00 und 1.10 0.00 0.00 1.10 1.10", res.Text)
	require.Len(t, runner.calls, 3)
	assert.Equal(t, "spa+eng", runner.calls[2].args[len(runner.calls[2].args)-1])
}

func TestPDFReader_NoFallbackLeavesEmptyText(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) { return []byte("\f"), nil, nil }}
	r := NewPDFReaderWithRunner(Config{}, runner, nil)

	text, err := r.Read(context.Background(), filepath.Join("x", "empty.pdf"))

	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Len(t, runner.calls, 1)
}

func TestNormalizeAndFlatten(t *testing.T) {
	assert.Equal(t, "a b\n\nc", Normalize("a\t\tb  \r\n\n\n\nc"))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "a b c", Flatten("  a\n\tb   c \f"))
}

func TestConfidence(t *testing.T) {
	receipt := "SUPERMERCADO XTRA\nFecha: 05/02/2024 14:03\n1 LECHE ENTERA 1 3.50 0.00 0.00 3.50 3.50\n" +
		"2 QUESO FRESCO 1 2.25 0.00 0.00 2.25 2.25\nSUBTOTAL 5.75\nTOTAL $5.75\n"

	assert.Zero(t, Confidence("   "))
	assert.Less(t, Confidence("hello world"), float32(LowConfidence))
	assert.GreaterOrEqual(t, Confidence(receipt), float32(0.9))
	assert.LessOrEqual(t, Confidence(receipt), float32(1))
}
