package usecase

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/core/ports"
)

// ScanDirectory offers every regular file directly under dir to intake, in
// directory listing order. It returns how many paths were queued.
func ScanDirectory(dir string, in ports.DocumentIntake, notifier ports.Notifier) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "resolve source folder", err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return 0, domain.WrapError(domain.ErrFilesystem, "list source folder", err)
	}

	queued := 0
	for _, entry := range entries {
		path := filepath.Join(absDir, entry.Name())
		if !isRegularFile(entry, path) {
			notifier.Publish(domain.LogEvent(domain.LevelDebug, path, fmt.Sprintf("%s not supported or is not a file.", path)))
			continue
		}
		if in.Offer(path, true) {
			queued++
		}
	}
	return queued, nil
}

func isRegularFile(entry os.DirEntry, path string) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
