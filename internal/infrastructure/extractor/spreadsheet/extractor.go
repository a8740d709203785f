package spreadsheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Extractor flattens every sheet of an XLSX workbook into text, one line
// per row with cells separated by " | ".
type Extractor struct {
	maxRows int
}

func NewExtractor(maxRows int) *Extractor {
	if maxRows <= 0 {
		maxRows = 500
	}
	return &Extractor{maxRows: maxRows}
}

func (e *Extractor) Convert(ctx context.Context, path string) (string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	var b strings.Builder
	for _, sheet := range book.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		fmt.Fprintf(&b, "## %s\n", sheet)
		for i, row := range rows {
			if i == e.maxRows {
				break
			}
			line := strings.TrimSpace(strings.Join(row, " | "))
			if strings.Trim(line, " |") == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}
