package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/core/intake"
)

type processorFake struct {
	mu      sync.Mutex
	paths   []string
	dests   []string
	errOn   map[string]error
	panicOn map[string]bool
	started chan string
	release chan struct{}
}

func (f *processorFake) Process(_ context.Context, path, destinationRoot string) (*domain.Document, error) {
	if f.panicOn[path] {
		var broken map[string]int
		broken[path]++
	}
	if f.started != nil {
		f.started <- path
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	f.dests = append(f.dests, destinationRoot)
	if err, ok := f.errOn[path]; ok {
		return &domain.Document{SourcePath: path, Status: domain.StatusFailed}, err
	}
	return &domain.Document{SourcePath: path, Status: domain.StatusFiled}, nil
}

func (f *processorFake) processed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

type runnerFixture struct {
	queue      *intake.Queue
	processor  *processorFake
	filer      *filerFake
	notifier   *notifierFake
	monitoring *atomic.Bool
	runner     *PipelineRunner
}

func newRunnerFixture(policy ErrorPolicy, paths ...string) *runnerFixture {
	f := &runnerFixture{
		queue:      intake.NewQueue(),
		processor:  &processorFake{errOn: map[string]error{}},
		filer:      newFilerFake(paths...),
		notifier:   &notifierFake{},
		monitoring: &atomic.Bool{},
	}
	f.monitoring.Store(true)
	for _, p := range paths {
		f.queue.Enqueue(p)
	}
	f.runner = NewPipelineRunner(f.queue, f.processor, f.filer, f.notifier, &metricsFake{}, f.monitoring, RunnerOptions{
		DestinationRoot: "/dest",
		PollInterval:    10 * time.Millisecond,
		ErrorPolicy:     policy,
	})
	return f
}

func TestRunnerProcessesInArrivalOrder(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyContinue, "/in/a.pdf", "/in/b.pdf")

	for f.runner.Step(context.Background()) {
	}

	got := f.processor.processed()
	if len(got) != 2 || got[0] != "/in/a.pdf" || got[1] != "/in/b.pdf" {
		t.Fatalf("unexpected order: %v", got)
	}
	for _, dest := range f.processor.dests {
		if dest != "/dest" {
			t.Fatalf("unexpected destination root: %s", dest)
		}
	}
}

func TestRunnerAnnouncesEmptyQueueOncePerTransition(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyContinue)
	const notice = "Queue is empty, there are no files to process."

	for i := 0; i < 3; i++ {
		if f.runner.Step(context.Background()) {
			t.Fatalf("empty queue must not report progress")
		}
	}
	if n := f.notifier.countContaining(domain.LevelInfo, notice); n != 1 {
		t.Fatalf("expected one empty notice, got %d", n)
	}

	f.filer.files["/in/c.pdf"] = true
	f.queue.Enqueue("/in/c.pdf")
	f.runner.Step(context.Background())
	f.runner.Step(context.Background())
	f.runner.Step(context.Background())

	if n := f.notifier.countContaining(domain.LevelInfo, notice); n != 2 {
		t.Fatalf("expected a second notice after the queue drained again, got %d", n)
	}
}

func TestRunnerContinuesAfterDocumentFailure(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyContinue, "/in/corrupt.pdf", "/in/ok.pdf")
	f.processor.errOn["/in/corrupt.pdf"] = errors.New("parsing: malformed")

	f.runner.Step(context.Background())
	f.runner.Step(context.Background())

	got := f.processor.processed()
	if len(got) != 2 || got[1] != "/in/ok.pdf" {
		t.Fatalf("expected ok.pdf to be processed after the failure, got %v", got)
	}
	if !f.monitoring.Load() {
		t.Fatalf("continue policy must keep monitoring on")
	}
	errs := f.notifier.messages(domain.LevelError)
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "Error processing corrupt.pdf:") {
		t.Fatalf("unexpected error events: %v", errs)
	}
}

func TestRunnerSurvivesPanicInPipeline(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyContinue, "/in/broken.xlsx", "/in/ok.pdf")
	f.processor.panicOn = map[string]bool{"/in/broken.xlsx": true}

	if !f.runner.Step(context.Background()) {
		t.Fatalf("expected the entry to be consumed")
	}
	f.runner.Step(context.Background())

	if got := f.processor.processed(); len(got) != 1 || got[0] != "/in/ok.pdf" {
		t.Fatalf("expected ok.pdf to be processed after the panic, got %v", got)
	}
	errs := f.notifier.messages(domain.LevelError)
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "Error processing broken.xlsx:") || !strings.Contains(errs[0], "panic") {
		t.Fatalf("unexpected error events: %v", errs)
	}
	if !f.queue.Enqueue("/in/broken.xlsx") {
		t.Fatalf("panicking document must be released")
	}
}

func TestRunnerPanicHonoursStopPolicy(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyStop, "/in/broken.xlsx")
	f.processor.panicOn = map[string]bool{"/in/broken.xlsx": true}

	f.runner.Step(context.Background())

	if f.monitoring.Load() {
		t.Fatalf("stop policy must switch monitoring off after a panic")
	}
}

func TestRunnerReleasesPathAfterProcessing(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyContinue, "/in/corrupt.pdf")
	f.processor.errOn["/in/corrupt.pdf"] = errors.New("parsing: malformed")
	f.processor.started = make(chan string, 1)
	f.processor.release = make(chan struct{})

	stepped := make(chan struct{})
	go func() {
		defer close(stepped)
		f.runner.Step(context.Background())
	}()
	<-f.processor.started
	if f.queue.Enqueue("/in/corrupt.pdf") {
		t.Fatalf("document in progress must not be queued twice")
	}
	close(f.processor.release)
	<-stepped

	if !f.queue.Enqueue("/in/corrupt.pdf") {
		t.Fatalf("path must be accepted once processing has finished")
	}
}

func TestRunnerStopPolicyEndsRun(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyStop, "/in/bad.pdf", "/in/next.pdf")
	f.processor.errOn["/in/bad.pdf"] = errors.New("classifier unavailable")

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.runner.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop after the failure")
	}
	if f.monitoring.Load() {
		t.Fatalf("stop policy must switch monitoring off")
	}
	if got := f.processor.processed(); len(got) != 1 {
		t.Fatalf("expected only the failing document to be processed, got %v", got)
	}
	if !f.queue.Contains("/in/next.pdf") {
		t.Fatalf("pending document must stay queued")
	}
}

func TestRunnerSkipsVanishedFile(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyContinue)
	f.queue.Enqueue("/in/gone.pdf")

	if !f.runner.Step(context.Background()) {
		t.Fatalf("expected the entry to be consumed")
	}
	if len(f.processor.processed()) != 0 {
		t.Fatalf("vanished file must not be processed")
	}
	if n := f.notifier.countContaining(domain.LevelDebug, "no longer exists"); n != 1 {
		t.Fatalf("expected skip notice, got %v", f.notifier.messages(domain.LevelDebug))
	}
}

func TestRunnerRunReturnsOnContextCancel(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyContinue)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.runner.Run(ctx)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner ignored cancellation")
	}
}

func TestRunnerWakeInterruptsIdlePoll(t *testing.T) {
	f := newRunnerFixture(ErrorPolicyContinue)
	f.runner.opts.PollInterval = time.Hour

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.runner.Run(context.Background())
	}()

	waitFor(t, func() bool {
		return f.notifier.countContaining(domain.LevelInfo, "Queue is empty") == 1
	})
	f.monitoring.Store(false)
	f.runner.Wake()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("wake did not interrupt the poll")
	}
}

func TestParseErrorPolicy(t *testing.T) {
	if ParseErrorPolicy("stop") != ErrorPolicyStop {
		t.Fatalf("expected stop")
	}
	if ParseErrorPolicy("") != ErrorPolicyContinue || ParseErrorPolicy("bogus") != ErrorPolicyContinue {
		t.Fatalf("expected continue as the fallback")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
