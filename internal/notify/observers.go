package notify

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

// Terminal prints timestamped log lines and the queue panel to w.
type Terminal struct {
	w     io.Writer
	debug bool
}

func NewTerminal(w io.Writer, debug bool) *Terminal {
	return &Terminal{w: w, debug: debug}
}

func (t *Terminal) Observe(event domain.Event) {
	switch event.Kind {
	case domain.EventLog:
		if event.Level == domain.LevelDebug && !t.debug {
			return
		}
		fmt.Fprintf(t.w, "[%s] %s\n", event.Time.Format("15:04:05"), event.Message)
	case domain.EventQueue:
		if len(event.Snapshot) == 0 {
			return
		}
		fmt.Fprint(t.w, RenderQueue(event.Snapshot))
	}
}

// RenderQueue formats a snapshot the way the queue panel shows it: the next
// document marked with ">>", the rest numbered by position.
func RenderQueue(snapshot []string) string {
	var b strings.Builder
	b.WriteString("Queue:\n")
	for i, path := range snapshot {
		name := filepath.Base(path)
		if i == 0 {
			fmt.Fprintf(&b, "  >> %s\n", name)
			continue
		}
		fmt.Fprintf(&b, "  [%d] %s\n", i, name)
	}
	return b.String()
}

// Logger mirrors log events into structured logs.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Observe(event domain.Event) {
	switch event.Kind {
	case domain.EventLog:
		attrs := []any{"path", event.Path}
		switch event.Level {
		case domain.LevelDebug:
			l.logger.Debug(event.Message, attrs...)
		case domain.LevelError:
			l.logger.Error(event.Message, attrs...)
		default:
			l.logger.Info(event.Message, attrs...)
		}
	case domain.EventQueue:
		l.logger.Debug("queue_snapshot", "depth", len(event.Snapshot))
	}
}
