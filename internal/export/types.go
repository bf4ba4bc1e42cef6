// Package export renders a user's bookmark sheet and converts it to PDF.
package export

import (
	"errors"
	"time"
)

// Sheet is the printable view of one user's bookmarks.
type Sheet struct {
	Owner       string
	GeneratedAt time.Time
	Categories  []SheetCategory
}

// SheetCategory is one category and its links in display order.
type SheetCategory struct {
	Name  string
	Links []SheetLink
}

type SheetLink struct {
	Name string
	URL  string
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
