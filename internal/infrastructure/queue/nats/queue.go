package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/infrastructure/resilience"
)

const DefaultSubject = "docsorter.events"

// Publisher mirrors pipeline events to NATS so remote consoles can follow a
// running watcher. Subjects are <subject>.log and <subject>.queue.
type Publisher struct {
	conn           *nats.Conn
	subject        string
	executor       *resilience.Executor
	logger         *slog.Logger
	publishTimeout time.Duration
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	PublishTimeout       time.Duration
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	publishTimeout := options.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = 2 * time.Second
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docsorter"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{
		conn:           conn,
		subject:        subject,
		executor:       options.ResilienceExecutor,
		logger:         logger,
		publishTimeout: publishTimeout,
	}, nil
}

func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Observe publishes event and logs failures. It runs on the observer
// goroutine, never on the pipeline.
func (p *Publisher) Observe(event domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, event); err != nil {
		p.logger.Warn("nats_publish_failed", "subject", subjectFor(p.subject, event.Kind), "error", err)
	}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := subjectFor(p.subject, event.Kind)

	call := func(_ context.Context) error {
		if err := p.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// Subscribe delivers events published by any watcher on the same subject
// until ctx is done. Undecodable messages are skipped.
func (p *Publisher) Subscribe(ctx context.Context, handler func(domain.Event)) error {
	sub, err := p.conn.Subscribe(p.subject+".>", func(msg *nats.Msg) {
		event, err := decodeEvent(msg.Data)
		if err != nil {
			p.logger.Debug("nats_event_skipped", "subject", msg.Subject, "error", err)
			return
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	return nil
}

func subjectFor(base string, kind domain.EventKind) string {
	return base + "." + string(kind)
}

func decodeEvent(data []byte) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.Kind != domain.EventLog && event.Kind != domain.EventQueue {
		return domain.Event{}, fmt.Errorf("decode event: unknown kind %q", event.Kind)
	}
	return event, nil
}
