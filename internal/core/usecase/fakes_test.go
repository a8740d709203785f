package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

type notifierFake struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *notifierFake) Publish(event domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *notifierFake) messages(level domain.EventLevel) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.Kind == domain.EventLog && e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

func (f *notifierFake) countContaining(level domain.EventLevel, substr string) int {
	n := 0
	for _, msg := range f.messages(level) {
		if strings.Contains(msg, substr) {
			n++
		}
	}
	return n
}

type converterFake struct {
	text  string
	errOn map[string]error
	calls []string
}

func (f *converterFake) Convert(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	if err, ok := f.errOn[filepath.Base(path)]; ok {
		return "", err
	}
	return f.text, nil
}

type classifierFake struct {
	cls   domain.Classification
	err   error
	names []string
}

func (f *classifierFake) Classify(_ context.Context, _ string, displayName string) (domain.Classification, error) {
	f.names = append(f.names, displayName)
	if f.err != nil {
		return domain.Classification{}, f.err
	}
	return f.cls, nil
}

type extractorFake struct {
	meta  *domain.Metadata
	err   error
	calls int
}

func (f *extractorFake) ExtractMetadata(context.Context, string) (*domain.Metadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.meta, nil
}

// filerFake is an in-memory filesystem keyed by path.
type filerFake struct {
	mu       sync.Mutex
	files    map[string]bool
	sidecars map[string]domain.Result
	dirs     map[string]int

	ensureErr  error
	renameErr  map[string]error
	moveErr    map[string]error
	sidecarErr error
}

func newFilerFake(paths ...string) *filerFake {
	f := &filerFake{
		files:     make(map[string]bool),
		sidecars:  make(map[string]domain.Result),
		dirs:      make(map[string]int),
		renameErr: make(map[string]error),
		moveErr:   make(map[string]error),
	}
	for _, p := range paths {
		f.files[p] = true
	}
	return f
}

func (f *filerFake) WriteSidecar(_ context.Context, path string, result domain.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sidecarErr != nil {
		return f.sidecarErr
	}
	f.files[path] = true
	f.sidecars[path] = result
	return nil
}

func (f *filerFake) Rename(_ context.Context, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.renameErr[from]; ok {
		return err
	}
	return f.relocate(from, to)
}

func (f *filerFake) EnsureDir(_ context.Context, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.dirs[dir]++
	return nil
}

func (f *filerFake) Move(_ context.Context, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.moveErr[from]; ok {
		return err
	}
	if f.files[to] {
		return errors.New("destination exists")
	}
	return f.relocate(from, to)
}

func (f *filerFake) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	delete(f.sidecars, path)
	return nil
}

func (f *filerFake) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[path]
}

func (f *filerFake) relocate(from, to string) error {
	if !f.files[from] {
		return errors.New("no such file: " + from)
	}
	delete(f.files, from)
	f.files[to] = true
	if result, ok := f.sidecars[from]; ok {
		delete(f.sidecars, from)
		f.sidecars[to] = result
	}
	return nil
}

type metricsFake struct {
	mu       sync.Mutex
	started  int
	statuses []domain.DocumentStatus
	depth    int
}

func (f *metricsFake) StartDocument() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *metricsFake) FinishDocument(status domain.DocumentStatus, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func (f *metricsFake) ObserveQueueLag(time.Duration) {}

func (f *metricsFake) SetQueueDepth(depth int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depth = depth
}

type journalFake struct {
	nopJournal
	statuses []domain.DocumentStatus
	results  []domain.Result
	dests    [][2]string
}

func (f *journalFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, _ domain.Stage, _ string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *journalFake) SaveResult(_ context.Context, _ string, result domain.Result) error {
	f.results = append(f.results, result)
	return nil
}

func (f *journalFake) SaveDestination(_ context.Context, _ string, documentPath, sidecarPath string) error {
	f.dests = append(f.dests, [2]string{documentPath, sidecarPath})
	return nil
}

type suppressorFake struct {
	paths []string
}

func (f *suppressorFake) Suppress(path string) {
	f.paths = append(f.paths, path)
}

func strPtr(s string) *string { return &s }

func fundingPtr(f domain.Funding) *domain.Funding { return &f }
