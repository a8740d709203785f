package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/core/intake"
	"github.com/kirillkom/docsorter/internal/core/ports"
)

const DefaultPollInterval = 2 * time.Second

// ErrorPolicy decides what the runner does after a document fails.
type ErrorPolicy string

const (
	ErrorPolicyContinue ErrorPolicy = "continue"
	ErrorPolicyStop     ErrorPolicy = "stop"
)

func ParseErrorPolicy(raw string) ErrorPolicy {
	if ErrorPolicy(raw) == ErrorPolicyStop {
		return ErrorPolicyStop
	}
	return ErrorPolicyContinue
}

type RunnerOptions struct {
	DestinationRoot string
	PollInterval    time.Duration
	ErrorPolicy     ErrorPolicy
}

// PipelineRunner is the single consumer of the intake queue. It processes
// one document at a time until monitoring is switched off.
type PipelineRunner struct {
	queue     *intake.Queue
	processor ports.DocumentProcessor
	filer     ports.DocumentFiler
	notifier  ports.Notifier
	metrics   ports.PipelineMetrics
	opts      RunnerOptions

	monitoring *atomic.Bool
	wake       chan struct{}
	now        func() time.Time

	// Only the runner goroutine touches this.
	lastQueueEmpty bool
}

func NewPipelineRunner(
	queue *intake.Queue,
	processor ports.DocumentProcessor,
	filer ports.DocumentFiler,
	notifier ports.Notifier,
	metrics ports.PipelineMetrics,
	monitoring *atomic.Bool,
	opts RunnerOptions,
) *PipelineRunner {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ErrorPolicy == "" {
		opts.ErrorPolicy = ErrorPolicyContinue
	}
	return &PipelineRunner{
		queue:      queue,
		processor:  processor,
		filer:      filer,
		notifier:   notifier,
		metrics:    metrics,
		opts:       opts,
		monitoring: monitoring,
		wake:       make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Run drains the queue until monitoring is turned off or ctx is done. A
// document already dequeued is always finished; ctx cancellation never
// reaches the pipeline itself.
func (r *PipelineRunner) Run(ctx context.Context) {
	processCtx := context.WithoutCancel(ctx)
	for r.monitoring.Load() && ctx.Err() == nil {
		if !r.Step(processCtx) {
			r.wait(ctx)
		}
	}
}

// Wake interrupts an idle poll so a stop request is seen promptly.
func (r *PipelineRunner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Step performs one loop iteration and reports whether a queue entry was
// consumed. An empty queue produces the "queue is empty" notice once per
// transition into the empty state.
func (r *PipelineRunner) Step(ctx context.Context) bool {
	entry, ok := r.queue.DequeueNext()
	if !ok {
		if !r.lastQueueEmpty {
			r.lastQueueEmpty = true
			r.notifier.Publish(domain.LogEvent(domain.LevelInfo, "", "Queue is empty, there are no files to process."))
		}
		return false
	}
	r.lastQueueEmpty = false
	defer r.queue.Release(entry.Path)

	r.metrics.ObserveQueueLag(r.now().Sub(entry.DiscoveredAt))
	r.metrics.SetQueueDepth(r.queue.Len())
	r.notifier.Publish(domain.QueueEvent(r.queue.SnapshotOrdered()))

	if !r.filer.Exists(entry.Path) {
		r.notifier.Publish(domain.LogEvent(domain.LevelDebug, entry.Path,
			fmt.Sprintf("%s no longer exists. Skipping.", entry.Path)))
		return true
	}

	if err := r.process(ctx, entry.Path); err != nil {
		r.notifier.Publish(domain.LogEvent(domain.LevelError, entry.Path,
			fmt.Sprintf("Error processing %s: %v", filepath.Base(entry.Path), err)))
		if r.opts.ErrorPolicy == ErrorPolicyStop {
			r.monitoring.Store(false)
			r.notifier.Publish(domain.LogEvent(domain.LevelInfo, "", "File monitoring stopped after a processing error."))
		}
	}
	return true
}

// process runs one document and turns a panic inside the pipeline into a
// failure of that document.
func (r *PipelineRunner) process(ctx context.Context, path string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &domain.PipelineError{
				Path:  path,
				Stage: domain.StageFailed,
				Err:   domain.WrapError(domain.ErrCollaborator, "process document", fmt.Errorf("panic: %v", rec)),
			}
		}
	}()
	_, err = r.processor.Process(ctx, path, r.opts.DestinationRoot)
	return err
}

func (r *PipelineRunner) wait(ctx context.Context) {
	timer := time.NewTimer(r.opts.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-r.wake:
	case <-timer.C:
	}
}
