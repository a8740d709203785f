// Package watch turns fsnotify events on the source folder into discovered
// file paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kirillkom/docsorter/internal/core/ports"
)

const eventBuffer = 256

type Watcher struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{logger: logger}
}

// Subscribe starts watching dir (not recursively). Events that arrive before
// Run is called are held by the kernel and the watcher buffer.
func (w *Watcher) Subscribe(dir string) (ports.WatchStream, error) {
	fw, err := fsnotify.NewBufferedWatcher(eventBuffer)
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Stream{fw: fw, dir: dir, logger: w.logger}, nil
}

type Stream struct {
	fw     *fsnotify.Watcher
	dir    string
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Run delivers the path of every regular file created in or moved into the
// folder until ctx is done or the stream is closed.
func (s *Stream) Run(ctx context.Context, onFile func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				s.logger.Debug("watch_event_ignored", "path", event.Name, "op", event.Op.String())
				continue
			}
			if !isRegular(event.Name) {
				s.logger.Debug("watch_event_ignored", "path", event.Name, "op", event.Op.String())
				continue
			}
			onFile(event.Name)
		case err, ok := <-s.fw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.logger.Error("watch_event_overflow", "dir", s.dir, "error", err)
				continue
			}
			s.logger.Warn("watch_error", "dir", s.dir, "error", err)
		}
	}
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.fw.Close()
	})
	return s.closeErr
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
