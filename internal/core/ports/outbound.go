package ports

import (
	"context"
	"time"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

// DirectoryWatcher subscribes to file arrivals in exactly one directory.
type DirectoryWatcher interface {
	Subscribe(dir string) (WatchStream, error)
}

// WatchStream dispatches arrivals until ctx is done. Events that arrive
// between Subscribe and Run are buffered, not lost.
type WatchStream interface {
	Run(ctx context.Context, onFile func(path string)) error
	Close() error
}

// DocumentConverter turns a document into normalized text.
type DocumentConverter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// DocumentClassifier classifies normalized text.
type DocumentClassifier interface {
	Classify(ctx context.Context, text, displayName string) (domain.Classification, error)
}

// MetadataExtractor extracts bibliographic metadata from research documents.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, text string) (*domain.Metadata, error)
}

// DocumentFiler performs the filesystem side of persisting and routing.
type DocumentFiler interface {
	WriteSidecar(ctx context.Context, path string, result domain.Result) error
	Rename(ctx context.Context, from, to string) error
	EnsureDir(ctx context.Context, dir string) error
	// Move relocates from to the exact path to, failing if to exists.
	Move(ctx context.Context, from, to string) error
	// Remove deletes path. A missing file is not an error.
	Remove(ctx context.Context, path string) error
	Exists(path string) bool
}

// SettingsStore persists the folder pair between runs.
type SettingsStore interface {
	Load() (domain.Folders, error)
	SaveSource(path string) error
	SaveDestination(path string) error
}

// Notifier relays progress events. Publish must never block.
type Notifier interface {
	Publish(event domain.Event)
}

// DocumentJournal keeps a history of processing runs.
type DocumentJournal interface {
	Create(ctx context.Context, doc *domain.Document) error
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, stage domain.Stage, errMessage string) error
	SaveResult(ctx context.Context, id string, result domain.Result) error
	SaveDestination(ctx context.Context, id, documentPath, sidecarPath string) error
	ListRecent(ctx context.Context, limit int) ([]domain.Document, error)
}

// PipelineMetrics records pipeline throughput and queue health.
type PipelineMetrics interface {
	StartDocument()
	FinishDocument(status domain.DocumentStatus, duration time.Duration)
	ObserveQueueLag(lag time.Duration)
	SetQueueDepth(depth int)
}
