package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCollaborator     = errors.New("collaborator failure")
	ErrFilesystem       = errors.New("filesystem failure")
	ErrPartialRoute     = errors.New("partial route")
	ErrTemporary        = errors.New("temporary failure")
	ErrAlreadyRunning   = errors.New("monitoring already running")
	ErrNotRunning       = errors.New("monitoring not running")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// PipelineError ties a failure to the document and the stage it happened in.
type PipelineError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// PartialRouteError reports a document that reached its destination while its
// sidecar did not. Both paths are kept so an operator can reconcile by hand.
type PartialRouteError struct {
	DocumentPath string
	SidecarPath  string
	Err          error
}

func (e *PartialRouteError) Error() string {
	return fmt.Sprintf("document moved to %s but sidecar %s was not moved: %v", e.DocumentPath, e.SidecarPath, e.Err)
}

func (e *PartialRouteError) Unwrap() error { return e.Err }

func (e *PartialRouteError) Is(target error) bool {
	return target == ErrPartialRoute || target == ErrFilesystem
}
