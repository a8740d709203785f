package pdftext

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages keeps prompts short; title pages and the first body pages
// carry what classification and metadata extraction need.
const DefaultMaxPages = 5

type Extractor struct {
	maxPages int
}

func NewExtractor(maxPages int) *Extractor {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Extractor{maxPages: maxPages}
}

// Convert returns the plain text of the first pages of the document. The
// PDF reader panics on some malformed files; that is reported as an error.
func (e *Extractor) Convert(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	pages := min(reader.NumPage(), e.maxPages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}
