package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/core/intake"
	"github.com/kirillkom/docsorter/internal/core/ports"
)

const DefaultSuppressWindow = 30 * time.Second

// IngestUseCase admits discovered paths into the intake queue. Both the
// initial scan and the event stream go through Offer.
type IngestUseCase struct {
	queue    *intake.Queue
	filter   *intake.Filter
	notifier ports.Notifier
	metrics  ports.PipelineMetrics

	suppressWindow time.Duration
	now            func() time.Time

	mu         sync.Mutex
	suppressed map[string]time.Time
}

func NewIngestUseCase(
	queue *intake.Queue,
	filter *intake.Filter,
	notifier ports.Notifier,
	metrics ports.PipelineMetrics,
	suppressWindow time.Duration,
) *IngestUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if suppressWindow <= 0 {
		suppressWindow = DefaultSuppressWindow
	}
	return &IngestUseCase{
		queue:          queue,
		filter:         filter,
		notifier:       notifier,
		metrics:        metrics,
		suppressWindow: suppressWindow,
		now:            time.Now,
		suppressed:     make(map[string]time.Time),
	}
}

// Offer enqueues path if it is a supported document that is not already
// queued. initial marks paths found by the startup scan.
func (uc *IngestUseCase) Offer(path string, initial bool) bool {
	if !uc.filter.Allowed(path) {
		uc.notifier.Publish(domain.LogEvent(domain.LevelDebug, path, fmt.Sprintf("File not supported: %s.", path)))
		return false
	}
	if uc.isSuppressed(path) {
		uc.notifier.Publish(domain.LogEvent(domain.LevelDebug, path, fmt.Sprintf("Ignoring %s produced by the pipeline.", path)))
		return false
	}
	if !uc.queue.Enqueue(path) {
		uc.notifier.Publish(domain.LogEvent(domain.LevelDebug, path, fmt.Sprintf("%s already queued or in progress. Skipping.", path)))
		return false
	}

	origin := "New"
	if initial {
		origin = "Initial"
	}
	uc.notifier.Publish(domain.LogEvent(domain.LevelInfo, path, fmt.Sprintf("%s file detected: %s. Added to queue.", origin, DisplayName(path))))
	uc.metrics.SetQueueDepth(uc.queue.Len())
	uc.notifier.Publish(domain.QueueEvent(uc.queue.SnapshotOrdered()))
	return true
}

// Suppress keeps path out of the queue for the suppression window. The
// pipeline calls it before it creates a file inside the watched folder.
func (uc *IngestUseCase) Suppress(path string) {
	now := uc.now()

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if len(uc.suppressed) > 128 {
		for p, until := range uc.suppressed {
			if now.After(until) {
				delete(uc.suppressed, p)
			}
		}
	}
	uc.suppressed[path] = now.Add(uc.suppressWindow)
}

func (uc *IngestUseCase) isSuppressed(path string) bool {
	now := uc.now()

	uc.mu.Lock()
	defer uc.mu.Unlock()

	until, ok := uc.suppressed[path]
	if !ok {
		return false
	}
	if now.After(until) {
		delete(uc.suppressed, path)
		return false
	}
	return true
}
