package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/core/intake"
	"github.com/kirillkom/docsorter/internal/core/ports"
)

type MonitorOptions struct {
	PollInterval time.Duration
	ErrorPolicy  ErrorPolicy
}

// MonitorUseCase owns the run state: one producer goroutine dispatching
// watch events and one consumer goroutine running the pipeline.
type MonitorUseCase struct {
	queue     *intake.Queue
	ingest    *IngestUseCase
	watcher   ports.DirectoryWatcher
	processor ports.DocumentProcessor
	filer     ports.DocumentFiler
	notifier  ports.Notifier
	metrics   ports.PipelineMetrics
	logger    *slog.Logger
	opts      MonitorOptions

	monitoring atomic.Bool

	mu          sync.Mutex
	running     bool
	stream      ports.WatchStream
	cancelWatch context.CancelFunc
	producer    sync.WaitGroup
	runner      *PipelineRunner
	done        chan struct{}
}

func NewMonitorUseCase(
	queue *intake.Queue,
	ingest *IngestUseCase,
	watcher ports.DirectoryWatcher,
	processor ports.DocumentProcessor,
	filer ports.DocumentFiler,
	notifier ports.Notifier,
	metrics ports.PipelineMetrics,
	logger *slog.Logger,
	opts MonitorOptions,
) *MonitorUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &MonitorUseCase{
		queue:     queue,
		ingest:    ingest,
		watcher:   watcher,
		processor: processor,
		filer:     filer,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		opts:      opts,
	}
}

// Start subscribes to the source folder, scans it synchronously, then
// launches the event producer and the pipeline consumer. The subscription
// is opened before the scan so files created during the scan are not lost;
// their buffered events are dispatched afterwards and deduplicated by the
// queue.
func (m *MonitorUseCase) Start(ctx context.Context, folders domain.Folders) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return domain.ErrAlreadyRunning
	}

	source, err := resolveDir(folders.SourcePath)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "source folder", err)
	}
	if folders.DestinationPath == "" {
		return domain.WrapError(domain.ErrInvalidInput, "destination folder", fmt.Errorf("not configured"))
	}
	destination, err := filepath.Abs(folders.DestinationPath)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "destination folder", err)
	}
	if err := m.filer.EnsureDir(ctx, destination); err != nil {
		return domain.WrapError(domain.ErrFilesystem, "destination folder", err)
	}

	stream, err := m.watcher.Subscribe(source)
	if err != nil {
		return domain.WrapError(domain.ErrFilesystem, "watch source folder", err)
	}

	m.monitoring.Store(true)
	m.notifier.Publish(domain.LogEvent(domain.LevelInfo, "", "File monitoring starting."))

	queued, err := ScanDirectory(source, m.ingest, m.notifier)
	if err != nil {
		m.monitoring.Store(false)
		_ = stream.Close()
		return err
	}
	m.logger.Info("initial_scan_complete", "source", source, "queued", queued)

	watchCtx, cancel := context.WithCancel(ctx)
	m.producer.Add(1)
	go func() {
		defer m.producer.Done()
		err := stream.Run(watchCtx, func(path string) {
			if !m.monitoring.Load() {
				return
			}
			m.ingest.Offer(path, false)
		})
		if err != nil {
			m.logger.Error("watch_stream_failed", "source", source, "error", err)
		}
	}()

	runner := NewPipelineRunner(m.queue, m.processor, m.filer, m.notifier, m.metrics, &m.monitoring, RunnerOptions{
		DestinationRoot: destination,
		PollInterval:    m.opts.PollInterval,
		ErrorPolicy:     m.opts.ErrorPolicy,
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(ctx)
		m.monitoring.Store(false)
		cancel()
	}()

	m.running = true
	m.stream = stream
	m.cancelWatch = cancel
	m.runner = runner
	m.done = done
	m.logger.Info("monitoring_started", "source", source, "destination", destination)
	return nil
}

// Stop is cooperative: the watcher is cancelled and joined, the consumer
// finishes the document it holds and exits before its next dequeue. Entries
// still queued are discarded.
func (m *MonitorUseCase) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return domain.ErrNotRunning
	}

	if m.monitoring.Swap(false) {
		m.notifier.Publish(domain.LogEvent(domain.LevelInfo, "",
			"File monitoring stopped. File currently processed will continue processing."))
	}
	m.cancelWatch()
	m.producer.Wait()
	m.runner.Wake()
	<-m.done

	if err := m.stream.Close(); err != nil {
		m.logger.Warn("watch_stream_close_failed", "error", err)
	}
	// The next Start rescans the source folder, so pending entries go.
	discarded := m.queue.Clear()
	m.metrics.SetQueueDepth(0)
	m.running = false
	m.stream = nil
	m.runner = nil
	m.logger.Info("monitoring_stopped", "discarded", discarded)
	return nil
}

// Done is closed when the consumer exits, either after Stop or because the
// error policy switched monitoring off. It is nil before the first Start.
func (m *MonitorUseCase) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

func (m *MonitorUseCase) Monitoring() bool {
	return m.monitoring.Load()
}

func resolveDir(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("not configured")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}
