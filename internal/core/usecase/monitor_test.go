package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/core/intake"
	"github.com/kirillkom/docsorter/internal/core/ports"
)

type streamFake struct {
	events chan string

	mu     sync.Mutex
	closed int
}

func (s *streamFake) Run(ctx context.Context, onFile func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-s.events:
			onFile(path)
		}
	}
}

func (s *streamFake) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type watcherFake struct {
	stream *streamFake
	dirs   []string
	err    error
}

func (w *watcherFake) Subscribe(dir string) (ports.WatchStream, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.dirs = append(w.dirs, dir)
	return w.stream, nil
}

type monitorFixture struct {
	source    string
	queue     *intake.Queue
	filer     *filerFake
	processor *processorFake
	notifier  *notifierFake
	watcher   *watcherFake
	monitor   *MonitorUseCase
}

func newMonitorFixture(t *testing.T, policy ErrorPolicy, names ...string) *monitorFixture {
	t.Helper()
	source := t.TempDir()
	f := &monitorFixture{
		source:    source,
		filer:     newFilerFake(),
		processor: &processorFake{errOn: map[string]error{}},
		notifier:  &notifierFake{},
		watcher:   &watcherFake{stream: &streamFake{events: make(chan string, 8)}},
	}
	for _, name := range names {
		path := filepath.Join(source, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		f.filer.files[path] = true
	}

	filter, err := intake.NewFilter([]string{".pdf"}, nil)
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	queue := intake.NewQueue()
	f.queue = queue
	ingest := NewIngestUseCase(queue, filter, f.notifier, nil, 0)
	f.monitor = NewMonitorUseCase(queue, ingest, f.watcher, f.processor, f.filer, f.notifier, nil, nil, MonitorOptions{
		PollInterval: 10 * time.Millisecond,
		ErrorPolicy:  policy,
	})
	return f
}

func (f *monitorFixture) folders() domain.Folders {
	return domain.Folders{SourcePath: f.source, DestinationPath: "/dest"}
}

func TestMonitorProcessesScannedThenWatchedFiles(t *testing.T) {
	f := newMonitorFixture(t, ErrorPolicyContinue, "a.pdf", "b.pdf")

	if err := f.monitor.Start(context.Background(), f.folders()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, func() bool { return len(f.processor.processed()) == 2 })

	created := filepath.Join(f.source, "c.pdf")
	f.filer.mu.Lock()
	f.filer.files[created] = true
	f.filer.mu.Unlock()
	f.watcher.stream.events <- created
	waitFor(t, func() bool { return len(f.processor.processed()) == 3 })

	if err := f.monitor.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	got := f.processor.processed()
	want := []string{filepath.Join(f.source, "a.pdf"), filepath.Join(f.source, "b.pdf"), created}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected processing order: %v", got)
		}
	}
	if len(f.watcher.dirs) != 1 || f.watcher.dirs[0] != f.source {
		t.Fatalf("unexpected watched dirs: %v", f.watcher.dirs)
	}
	if f.watcher.stream.closed != 1 {
		t.Fatalf("expected the stream to be closed once, got %d", f.watcher.stream.closed)
	}
	if f.filer.dirs["/dest"] != 1 {
		t.Fatalf("destination root must be created on start")
	}
}

func TestMonitorStartTwiceFails(t *testing.T) {
	f := newMonitorFixture(t, ErrorPolicyContinue)

	if err := f.monitor.Start(context.Background(), f.folders()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.monitor.Stop()

	if err := f.monitor.Start(context.Background(), f.folders()); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestMonitorStopWithoutStartFails(t *testing.T) {
	f := newMonitorFixture(t, ErrorPolicyContinue)

	if err := f.monitor.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestMonitorStartValidatesFolders(t *testing.T) {
	f := newMonitorFixture(t, ErrorPolicyContinue)

	err := f.monitor.Start(context.Background(), domain.Folders{SourcePath: filepath.Join(f.source, "nope"), DestinationPath: "/dest"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid source, got %v", err)
	}
	err = f.monitor.Start(context.Background(), domain.Folders{SourcePath: f.source})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected missing destination, got %v", err)
	}

	f.watcher.err = errors.New("inotify limit reached")
	err = f.monitor.Start(context.Background(), f.folders())
	if !domain.IsKind(err, domain.ErrFilesystem) {
		t.Fatalf("expected watch failure, got %v", err)
	}
	if f.monitor.Monitoring() {
		t.Fatalf("failed start must leave monitoring off")
	}
}

func TestMonitorStopLetsCurrentDocumentFinish(t *testing.T) {
	f := newMonitorFixture(t, ErrorPolicyContinue, "a.pdf", "b.pdf")
	f.processor.started = make(chan string, 2)
	f.processor.release = make(chan struct{})

	if err := f.monitor.Start(context.Background(), f.folders()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-f.processor.started

	stopped := make(chan error, 1)
	go func() { stopped <- f.monitor.Stop() }()

	select {
	case <-stopped:
		t.Fatalf("Stop returned while a document was still in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(f.processor.release)

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return")
	}

	if got := f.processor.processed(); len(got) != 1 || got[0] != filepath.Join(f.source, "a.pdf") {
		t.Fatalf("expected only the in-flight document to complete, got %v", got)
	}
	if f.queue.Len() != 0 {
		t.Fatalf("stop must discard pending entries, still queued: %v", f.queue.SnapshotOrdered())
	}
	if n := f.notifier.countContaining(domain.LevelInfo, "File currently processed will continue processing."); n != 1 {
		t.Fatalf("expected stop notice, got %v", f.notifier.messages(domain.LevelInfo))
	}
}

func TestMonitorStopPolicyClosesDone(t *testing.T) {
	f := newMonitorFixture(t, ErrorPolicyStop, "bad.pdf")
	f.processor.errOn[filepath.Join(f.source, "bad.pdf")] = errors.New("boom")

	if err := f.monitor.Start(context.Background(), f.folders()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case <-f.monitor.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not exit after the failure")
	}
	if f.monitor.Monitoring() {
		t.Fatalf("monitoring must be off")
	}
	if err := f.monitor.Stop(); err != nil {
		t.Fatalf("Stop() after policy exit error = %v", err)
	}
	if err := f.monitor.Start(context.Background(), f.folders()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	_ = f.monitor.Stop()
}
