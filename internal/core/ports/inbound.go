package ports

import (
	"context"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

// DocumentIntake is the inbound contract shared by the initial scan and the
// filesystem event stream.
type DocumentIntake interface {
	Offer(path string, initial bool) bool
}

// DocumentProcessor runs the per-document pipeline for one dequeued path.
type DocumentProcessor interface {
	Process(ctx context.Context, path, destinationRoot string) (*domain.Document, error)
}

// Monitor starts and stops folder monitoring.
type Monitor interface {
	Start(ctx context.Context, folders domain.Folders) error
	Stop() error
	Done() <-chan struct{}
}
