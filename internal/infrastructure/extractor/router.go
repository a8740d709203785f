// Package extractor picks the text converter for a document by its file
// extension.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/core/ports"
)

type Router struct {
	converters map[string]ports.DocumentConverter
}

func NewRouter() *Router {
	return &Router{converters: make(map[string]ports.DocumentConverter)}
}

// Register binds converter to one or more extensions such as ".pdf".
func (r *Router) Register(converter ports.DocumentConverter, extensions ...string) *Router {
	for _, ext := range extensions {
		r.converters[normalizeExt(ext)] = converter
	}
	return r
}

func (r *Router) Supports(ext string) bool {
	_, ok := r.converters[normalizeExt(ext)]
	return ok
}

func (r *Router) Extensions() []string {
	out := make([]string, 0, len(r.converters))
	for ext := range r.converters {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Router) Convert(ctx context.Context, path string) (string, error) {
	ext := normalizeExt(filepath.Ext(path))
	converter, ok := r.converters[ext]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "convert document",
			fmt.Errorf("no converter for %q files", ext))
	}
	return converter.Convert(ctx, path)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
