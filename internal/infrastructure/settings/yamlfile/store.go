// Package yamlfile keeps the source and destination folders in a small YAML
// file so they survive restarts.
package yamlfile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

type Store struct {
	path   string
	cwd    func() (string, error)
	logger *slog.Logger

	mu sync.Mutex
}

func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, cwd: os.Getwd, logger: logger}
}

func (s *Store) Path() string { return s.path }

// Load returns the persisted folders. A missing file, or one that cannot be
// parsed, is replaced by defaults pointing both folders at the working
// directory.
func (s *Store) Load() (domain.Folders, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) SaveSource(path string) error {
	return s.update(func(f *domain.Folders, abs string) { f.SourcePath = abs }, path)
}

func (s *Store) SaveDestination(path string) error {
	return s.update(func(f *domain.Folders, abs string) { f.DestinationPath = abs }, path)
}

func (s *Store) update(apply func(*domain.Folders, string), path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "resolve folder", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folders, err := s.load()
	if err != nil {
		return err
	}
	apply(&folders, abs)
	return s.write(folders)
}

func (s *Store) load() (domain.Folders, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.reset("settings_created")
	}
	if err != nil {
		return domain.Folders{}, domain.WrapError(domain.ErrFilesystem, "read settings", err)
	}

	var folders domain.Folders
	if err := yaml.Unmarshal(raw, &folders); err != nil {
		s.logger.Warn("settings_corrupt", "path", s.path, "error", err)
		return s.reset("settings_reset")
	}

	defaults, err := s.defaults()
	if err != nil {
		return domain.Folders{}, err
	}
	if folders.SourcePath == "" {
		folders.SourcePath = defaults.SourcePath
	}
	if folders.DestinationPath == "" {
		folders.DestinationPath = defaults.DestinationPath
	}
	return folders, nil
}

func (s *Store) reset(event string) (domain.Folders, error) {
	folders, err := s.defaults()
	if err != nil {
		return domain.Folders{}, err
	}
	if err := s.write(folders); err != nil {
		return domain.Folders{}, err
	}
	s.logger.Info(event, "path", s.path, "source", folders.SourcePath, "destination", folders.DestinationPath)
	return folders, nil
}

func (s *Store) defaults() (domain.Folders, error) {
	cwd, err := s.cwd()
	if err != nil {
		return domain.Folders{}, domain.WrapError(domain.ErrFilesystem, "resolve working directory", err)
	}
	return domain.Folders{SourcePath: cwd, DestinationPath: cwd}, nil
}

func (s *Store) write(folders domain.Folders) error {
	data, err := yaml.Marshal(folders)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.WrapError(domain.ErrFilesystem, "create settings dir", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return domain.WrapError(domain.ErrFilesystem, "write settings", err)
	}
	return nil
}
