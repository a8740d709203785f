// Package notify relays pipeline progress to observers without ever blocking
// the goroutine that emits it.
package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

const DefaultBuffer = 256

// Observer consumes events on the observer goroutine. It may be slow; the
// channel absorbs or drops the backlog.
type Observer interface {
	Observe(event domain.Event)
}

type ObserverFunc func(event domain.Event)

func (f ObserverFunc) Observe(event domain.Event) { f(event) }

type Channel struct {
	events  chan domain.Event
	dropped atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool
}

func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Channel{events: make(chan domain.Event, buffer)}
}

// Publish enqueues event if there is room and drops it otherwise.
func (c *Channel) Publish(event domain.Event) {
	if c.closed.Load() {
		c.dropped.Add(1)
		return
	}
	defer func() {
		// Publish racing Close must not panic the emitter.
		if recover() != nil {
			c.dropped.Add(1)
		}
	}()
	select {
	case c.events <- event:
	default:
		c.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}

// Events exposes the receive side for callers that drive their own loop.
func (c *Channel) Events() <-chan domain.Event {
	return c.events
}

// Close stops accepting events. Run drains what is buffered and returns.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.events)
	})
}

// Run delivers events to every observer in order until the channel is closed
// or ctx is done.
func (c *Channel) Run(ctx context.Context, observers ...Observer) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.events:
			if !ok {
				return
			}
			for _, o := range observers {
				o.Observe(event)
			}
		}
	}
}
