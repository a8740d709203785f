package usecase

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/core/intake"
)

const maxNameRunes = 120

// DisplayName is the file name without directory and extension.
func DisplayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BuildDocumentName derives the filed name for a classified document:
// CAT[-FUND]_YEAR_Author_Subject, skipping empty parts. fallback is used when
// nothing usable is left after sanitizing.
func BuildDocumentName(cls domain.Classification, fallback string) string {
	code := string(cls.Category)
	if cls.Funding != nil {
		code += "-" + string(*cls.Funding)
	}

	parts := make([]string, 0, 4)
	for _, part := range []string{code, cls.Year, cls.Author, cls.Subject} {
		if clean := SanitizeName(part); clean != "" {
			parts = append(parts, clean)
		}
	}

	name := truncateRunes(strings.Join(parts, "_"), maxNameRunes)
	name = strings.TrimRight(name, ". ")
	if name == "" {
		if clean := SanitizeName(fallback); clean != "" {
			return clean
		}
		return "document"
	}
	return name
}

// SanitizeName strips characters that are illegal in file names on common
// filesystems and collapses whitespace. It is deterministic.
func SanitizeName(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			return -1
		case unicode.IsControl(r):
			return -1
		case unicode.IsSpace(r):
			return ' '
		default:
			return r
		}
	}, raw)
	collapsed := strings.Join(strings.Fields(mapped), " ")
	return strings.Trim(collapsed, ". ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// sidecarPath is where the sidecar of a document at path lives.
func sidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + intake.SidecarExt
}

// uniqueTarget picks dir/base+ext (and its sidecar) that does not clash with
// an existing file, appending " (2)", " (3)" and so on. current is allowed to
// match because renaming a file onto itself is a no-op.
func uniqueTarget(exists func(string) bool, dir, base, ext, current string) (string, error) {
	for i := 1; i <= 1000; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s (%d)", base, i)
		}
		candidate := filepath.Join(dir, name+ext)
		if candidate == current {
			return candidate, nil
		}
		if !exists(candidate) && !exists(sidecarPath(candidate)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", base+ext, dir)
}
