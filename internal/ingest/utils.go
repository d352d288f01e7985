package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
)

// AllowedExt checks if a file extension is in the allowed set (pdf only).
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// InvoiceFileName is the on-disk name for the attachment of message id.
func InvoiceFileName(id string) string {
	return constants.InvoiceFilePrefix + id + "." + constants.PDFExt
}
