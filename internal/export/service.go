package export

import (
	"fmt"
	"time"
)

// Service renders bookmark sheets and converts them to PDF.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// ExportPDF renders the sheet and returns it as a PDF.
func (s *Service) ExportPDF(sheet Sheet) (*Result, error) {
	if sheet.GeneratedAt.IsZero() {
		sheet.GeneratedAt = time.Now()
	}

	html, err := RenderSheetHTML(sheet)
	if err != nil {
		return nil, fmt.Errorf("render sheet template: %w", err)
	}

	title := "bookmarks"
	if sheet.Owner != "" {
		title = sheet.Owner + " bookmarks"
	}
	return exportPDF(html, title)
}
