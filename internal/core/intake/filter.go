package intake

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// SidecarExt is the extension of the classification record written next to
// each document. It can never be an input type.
const SidecarExt = ".json"

// Filter decides whether a discovered path is a supported document.
type Filter struct {
	extensions map[string]struct{}
	ignores    []glob.Glob
}

// NewFilter builds a filter from an extension allow-list (".pdf" or "pdf")
// and glob patterns matched against the base name, e.g. "~$*" for office
// lock files.
func NewFilter(extensions, ignorePatterns []string) (*Filter, error) {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ext == SidecarExt {
			return nil, fmt.Errorf("%s is reserved for sidecar records", SidecarExt)
		}
		exts[ext] = struct{}{}
	}
	if len(exts) == 0 {
		return nil, fmt.Errorf("extension allow-list is empty")
	}

	ignores := make([]glob.Glob, 0, len(ignorePatterns))
	for _, pattern := range ignorePatterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile ignore pattern %q: %w", pattern, err)
		}
		ignores = append(ignores, g)
	}

	return &Filter{extensions: exts, ignores: ignores}, nil
}

func (f *Filter) Allowed(path string) bool {
	if _, ok := f.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
		return false
	}
	base := filepath.Base(path)
	for _, g := range f.ignores {
		if g.Match(base) {
			return false
		}
	}
	return true
}

// Extensions returns the allow-list, mainly for startup logging.
func (f *Filter) Extensions() []string {
	out := make([]string, 0, len(f.extensions))
	for ext := range f.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
