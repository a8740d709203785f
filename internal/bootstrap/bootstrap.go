package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/docsorter/internal/config"
	"github.com/kirillkom/docsorter/internal/core/intake"
	"github.com/kirillkom/docsorter/internal/core/ports"
	"github.com/kirillkom/docsorter/internal/core/usecase"
	"github.com/kirillkom/docsorter/internal/infrastructure/extractor"
	"github.com/kirillkom/docsorter/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/docsorter/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/docsorter/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/docsorter/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/docsorter/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docsorter/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docsorter/internal/infrastructure/resilience"
	"github.com/kirillkom/docsorter/internal/infrastructure/settings/yamlfile"
	"github.com/kirillkom/docsorter/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docsorter/internal/infrastructure/watch"
	"github.com/kirillkom/docsorter/internal/notify"
	"github.com/kirillkom/docsorter/internal/observability/metrics"
)

// App is the wired watcher: everything the watch command needs to run the
// pipeline and relay its progress.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Settings ports.SettingsStore
	Monitor  ports.Monitor
	Channel  *notify.Channel
	Metrics  *metrics.PipelineMetrics

	observers []notify.Observer
	closeFn   func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	router := NewConverterRouter(cfg)
	for _, ext := range cfg.AllowedExtensions {
		if !router.Supports(ext) {
			return nil, fmt.Errorf("allowed extension %s has no converter (supported: %v)", ext, router.Extensions())
		}
	}
	filter, err := intake.NewFilter(cfg.AllowedExtensions, cfg.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("init intake filter: %w", err)
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var journal ports.DocumentJournal
	if cfg.PostgresDSN != "" {
		repo, db, err := OpenJournal(ctx, cfg)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		journal = repo
	}

	channel := notify.NewChannel(cfg.NotifyBuffer)
	observers := []notify.Observer{notify.NewLogger(logger)}
	if cfg.NATSURL != "" {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.Config{
				RetryMaxAttempts:    2,
				RetryInitialBackoff: 100 * time.Millisecond,
				BreakerEnabled:      true,
			}, logger),
			Logger: logger,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		closers = append(closers, publisher.Close)
		observers = append(observers, publisher)
	}

	pipelineMetrics := metrics.NewPipelineMetrics()
	pipelineMetrics.RegisterDroppedNotifications(channel.Dropped)

	llm := ollama.New(ollama.Config{
		BaseURL:        cfg.OllamaURL,
		Model:          cfg.OllamaGenModel,
		Timeout:        cfg.OllamaTimeout,
		MaxPromptChars: cfg.OllamaMaxPromptChars,
	}, resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.LLMRetryMaxAttempts,
		BreakerEnabled:   cfg.LLMBreakerEnabled,
		RatePerSecond:    cfg.OllamaRatePerSecond,
	}, logger))

	queue := intake.NewQueue()
	filer := localfs.New()
	ingest := usecase.NewIngestUseCase(queue, filter, channel, pipelineMetrics, cfg.SuppressWindow)
	processor := usecase.NewProcessDocumentUseCase(
		router,
		ollama.NewClassifier(llm),
		ollama.NewMetadataExtractor(llm),
		filer,
		journal,
		channel,
		pipelineMetrics,
		ingest,
	)
	monitor := usecase.NewMonitorUseCase(queue, ingest, watch.New(logger), processor, filer, channel, pipelineMetrics, logger, usecase.MonitorOptions{
		PollInterval: cfg.PollInterval,
		ErrorPolicy:  usecase.ParseErrorPolicy(cfg.OnError),
	})

	return &App{
		Config:    cfg,
		Logger:    logger,
		Settings:  yamlfile.New(cfg.SettingsPath, logger),
		Monitor:   monitor,
		Channel:   channel,
		Metrics:   pipelineMetrics,
		observers: observers,
		closeFn:   closeAll,
	}, nil
}

// Observers returns the observers wired from configuration. The caller adds
// its own terminal renderer.
func (a *App) Observers() []notify.Observer {
	return append([]notify.Observer(nil), a.observers...)
}

// MetricsServer returns nil when METRICS_PORT is not set.
func (a *App) MetricsServer() *http.Server {
	if a.Config.MetricsPort == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	return &http.Server{
		Addr:              ":" + a.Config.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func NewConverterRouter(cfg config.Config) *extractor.Router {
	return extractor.NewRouter().
		Register(pdftext.NewExtractor(cfg.PDFMaxPages), ".pdf").
		Register(spreadsheet.NewExtractor(0), ".xlsx").
		Register(plaintext.NewExtractor(0), ".txt", ".md")
}

// OpenJournal connects to postgres and makes sure the journal table exists.
func OpenJournal(ctx context.Context, cfg config.Config) (*postgres.DocumentRepository, *sql.DB, error) {
	if cfg.PostgresDSN == "" {
		return nil, nil, fmt.Errorf("POSTGRES_DSN is not set")
	}
	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, db, nil
}
