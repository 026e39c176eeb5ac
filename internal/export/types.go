// Package export renders a VAL as a print-ready letter in HTML, PDF or DOCX.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat maps a query value to a Format. Empty means PDF.
func ParseFormat(v string) (Format, bool) {
	switch Format(v) {
	case "", FormatPDF:
		return FormatPDF, true
	case FormatHTML, FormatDOCX:
		return Format(v), true
	default:
		return "", false
	}
}

// Request contains parameters for an export operation
type Request struct {
	ValID           string
	Format          Format
	IncludeComments bool
	// Archive stores the rendered PDF in object storage when an archiver is configured.
	Archive bool
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	// ArchiveKey is the object key of the archived copy, if one was written.
	ArchiveKey string
	RenderedAt time.Time
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
	// ErrUnsupportedFormat is returned for formats other than html, pdf and docx.
	ErrUnsupportedFormat = errors.New("export format not supported")
)
