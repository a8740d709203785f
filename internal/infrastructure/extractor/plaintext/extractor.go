package plaintext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

// Extractor reads UTF-8 text files (.txt, .md) as they are.
type Extractor struct {
	maxBytes int64
}

func NewExtractor(maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}
	return &Extractor{maxBytes: maxBytes}
}

func (e *Extractor) Convert(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat source document: %w", err)
	}
	if info.Size() > e.maxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "read source document",
			fmt.Errorf("%s is larger than %d bytes", info.Name(), e.maxBytes))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "read source document",
			errors.New("not valid UTF-8 text"))
	}
	return strings.TrimSpace(string(raw)), nil
}
