package constants

import "strings"

// PDFExt is the only document extension the pipeline reads.
const PDFExt = "pdf"

// InvoiceFilePrefix prefixes downloaded attachments: invoice_<messageID>.pdf.
const InvoiceFilePrefix = "invoice_"

// AllowedExtensions holds the file extensions picked up from the working folder.
var AllowedExtensions = map[string]struct{}{
	PDFExt: {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
