package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/core/ports"
)

// PathSuppressor keeps paths created by the pipeline inside the watched
// folder from being admitted again as new arrivals.
type PathSuppressor interface {
	Suppress(path string)
}

type nopSuppressor struct{}

func (nopSuppressor) Suppress(string) {}

type ProcessDocumentUseCase struct {
	converter  ports.DocumentConverter
	classifier ports.DocumentClassifier
	extractor  ports.MetadataExtractor
	filer      ports.DocumentFiler
	journal    ports.DocumentJournal
	notifier   ports.Notifier
	metrics    ports.PipelineMetrics
	suppressor PathSuppressor

	now   func() time.Time
	newID func() string
}

func NewProcessDocumentUseCase(
	converter ports.DocumentConverter,
	classifier ports.DocumentClassifier,
	extractor ports.MetadataExtractor,
	filer ports.DocumentFiler,
	journal ports.DocumentJournal,
	notifier ports.Notifier,
	metrics ports.PipelineMetrics,
	suppressor PathSuppressor,
) *ProcessDocumentUseCase {
	if journal == nil {
		journal = nopJournal{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if suppressor == nil {
		suppressor = nopSuppressor{}
	}
	return &ProcessDocumentUseCase{
		converter:  converter,
		classifier: classifier,
		extractor:  extractor,
		filer:      filer,
		journal:    journal,
		notifier:   notifier,
		metrics:    metrics,
		suppressor: suppressor,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Process runs one document through parse, classify, optional metadata
// extraction, sidecar persistence, rename and routing. Any failure is
// returned as *domain.PipelineError naming the stage it happened in.
func (uc *ProcessDocumentUseCase) Process(ctx context.Context, path, destinationRoot string) (*domain.Document, error) {
	started := uc.now()
	doc := &domain.Document{
		ID:         uc.newID(),
		SourcePath: path,
		Filename:   filepath.Base(path),
		Status:     domain.StatusProcessing,
		Stage:      domain.StageQueued,
		CreatedAt:  started.UTC(),
		UpdatedAt:  started.UTC(),
	}

	uc.metrics.StartDocument()
	uc.record(doc, "create journal entry", uc.journal.Create(ctx, doc))

	err := uc.processPipeline(ctx, doc, destinationRoot)

	doc.Status = statusFor(err)
	doc.UpdatedAt = uc.now().UTC()
	if err != nil {
		doc.Error = err.Error()
	} else {
		doc.Stage = domain.StageDone
	}
	uc.metrics.FinishDocument(doc.Status, uc.now().Sub(started))
	uc.record(doc, "update journal status", uc.journal.UpdateStatus(ctx, doc.ID, doc.Status, doc.Stage, doc.Error))

	if err != nil {
		return doc, &domain.PipelineError{Path: path, Stage: doc.Stage, Err: err}
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, doc *domain.Document, destinationRoot string) error {
	name := DisplayName(doc.SourcePath)
	uc.info(doc, "Processing %s.", name)

	text, err := uc.parse(ctx, doc)
	if err != nil {
		return err
	}
	uc.info(doc, "%s successfully parsed.", name)

	cls, err := uc.classify(ctx, doc, text, name)
	if err != nil {
		return err
	}
	doc.Category = cls.Category
	uc.info(doc, "Document classified as %s.", cls.Category)

	result := domain.Result{Classification: cls}
	if cls.Category == domain.CategoryResearch {
		meta, err := uc.extractMetadata(ctx, doc, text)
		if err != nil {
			return err
		}
		result.Metadata = meta
		uc.info(doc, "Research metadata extracted for %s.", name)
	}

	sidecar, err := uc.persist(ctx, doc, result)
	if err != nil {
		return err
	}

	renamedDoc, renamedSidecar, err := uc.rename(ctx, doc, sidecar, cls)
	if err != nil {
		return err
	}
	if renamedDoc != doc.SourcePath {
		uc.info(doc, "%s has been renamed to %s.", doc.Filename, filepath.Base(renamedDoc))
	}

	destDoc, destSidecar, err := uc.route(ctx, doc, renamedDoc, renamedSidecar, cls.Category, destinationRoot)
	if err != nil {
		return err
	}
	doc.DestinationPath = destDoc
	doc.SidecarPath = destSidecar
	uc.record(doc, "save destination", uc.journal.SaveDestination(ctx, doc.ID, destDoc, destSidecar))

	uc.info(doc, "%s and its sidecar have been moved to %s.", filepath.Base(destDoc), filepath.Dir(destDoc))
	uc.info(doc, "%s is finished processing.", filepath.Base(destDoc))
	return nil
}

func (uc *ProcessDocumentUseCase) parse(ctx context.Context, doc *domain.Document) (string, error) {
	uc.enter(ctx, doc, domain.StageParsing)

	text, err := uc.converter.Convert(ctx, doc.SourcePath)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return "", fmt.Errorf("convert document: %w", err)
		}
		return "", wrapKind(domain.ErrCollaborator, "convert document", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "convert document", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) classify(ctx context.Context, doc *domain.Document, text, name string) (domain.Classification, error) {
	uc.enter(ctx, doc, domain.StageClassifying)

	cls, err := uc.classifier.Classify(ctx, text, name)
	if err != nil {
		return domain.Classification{}, wrapKind(domain.ErrCollaborator, "classify document", err)
	}
	return EnforceClassificationPolicy(cls)
}

func (uc *ProcessDocumentUseCase) extractMetadata(ctx context.Context, doc *domain.Document, text string) (*domain.Metadata, error) {
	uc.enter(ctx, doc, domain.StageExtractingMetadata)

	meta, err := uc.extractor.ExtractMetadata(ctx, text)
	if err != nil {
		return nil, wrapKind(domain.ErrCollaborator, "extract metadata", err)
	}
	if meta == nil {
		meta = &domain.Metadata{}
	}
	return NormalizeMetadata(*meta), nil
}

func (uc *ProcessDocumentUseCase) persist(ctx context.Context, doc *domain.Document, result domain.Result) (string, error) {
	uc.enter(ctx, doc, domain.StagePersisting)

	path := sidecarPath(doc.SourcePath)
	if err := uc.filer.WriteSidecar(ctx, path, result); err != nil {
		return "", wrapKind(domain.ErrFilesystem, "write sidecar", err)
	}
	uc.record(doc, "save result", uc.journal.SaveResult(ctx, doc.ID, result))
	return path, nil
}

func (uc *ProcessDocumentUseCase) rename(ctx context.Context, doc *domain.Document, sidecar string, cls domain.Classification) (string, string, error) {
	uc.enter(ctx, doc, domain.StageRenaming)

	base := BuildDocumentName(cls, DisplayName(doc.SourcePath))
	target, err := uniqueTarget(uc.filer.Exists, filepath.Dir(doc.SourcePath), base, filepath.Ext(doc.SourcePath), doc.SourcePath)
	if err != nil {
		return "", "", domain.WrapError(domain.ErrFilesystem, "pick document name", err)
	}
	if target == doc.SourcePath {
		return doc.SourcePath, sidecar, nil
	}
	targetSidecar := sidecarPath(target)

	uc.suppressor.Suppress(target)
	if err := uc.filer.Rename(ctx, doc.SourcePath, target); err != nil {
		uc.restore(ctx, doc, "", sidecar)
		return "", "", wrapKind(domain.ErrFilesystem, "rename document", err)
	}
	if err := uc.filer.Rename(ctx, sidecar, targetSidecar); err != nil {
		uc.restore(ctx, doc, target, sidecar)
		return "", "", wrapKind(domain.ErrFilesystem, "rename sidecar", err)
	}
	return target, targetSidecar, nil
}

func (uc *ProcessDocumentUseCase) route(
	ctx context.Context,
	doc *domain.Document,
	renamedDoc, renamedSidecar string,
	category domain.Category,
	destinationRoot string,
) (string, string, error) {
	uc.enter(ctx, doc, domain.StageRouting)

	if strings.TrimSpace(destinationRoot) == "" {
		uc.restore(ctx, doc, renamedDoc, renamedSidecar)
		return "", "", domain.WrapError(domain.ErrFilesystem, "route document", errors.New("destination folder is not configured"))
	}

	categoryDir := filepath.Join(destinationRoot, string(category))
	if err := uc.filer.EnsureDir(ctx, categoryDir); err != nil {
		uc.restore(ctx, doc, renamedDoc, renamedSidecar)
		return "", "", wrapKind(domain.ErrFilesystem, "create category folder", err)
	}

	destDoc, err := uniqueTarget(uc.filer.Exists, categoryDir, DisplayName(renamedDoc), filepath.Ext(renamedDoc), "")
	if err != nil {
		uc.restore(ctx, doc, renamedDoc, renamedSidecar)
		return "", "", domain.WrapError(domain.ErrFilesystem, "pick destination name", err)
	}
	if err := uc.filer.Move(ctx, renamedDoc, destDoc); err != nil {
		uc.restore(ctx, doc, renamedDoc, renamedSidecar)
		return "", "", wrapKind(domain.ErrFilesystem, "move document", err)
	}

	destSidecar := sidecarPath(destDoc)
	if err := uc.filer.Move(ctx, renamedSidecar, destSidecar); err != nil {
		doc.DestinationPath = destDoc
		doc.SidecarPath = renamedSidecar
		uc.record(doc, "save destination", uc.journal.SaveDestination(ctx, doc.ID, destDoc, renamedSidecar))
		return "", "", &domain.PartialRouteError{DocumentPath: destDoc, SidecarPath: renamedSidecar, Err: err}
	}
	return destDoc, destSidecar, nil
}

// restore undoes a rename so a failed document stays at its original path,
// and deletes the sidecar written for it so a later run can write it again.
// Empty renamedDoc means the document was never renamed.
func (uc *ProcessDocumentUseCase) restore(ctx context.Context, doc *domain.Document, renamedDoc, sidecar string) {
	if renamedDoc != "" && renamedDoc != doc.SourcePath {
		uc.suppressor.Suppress(doc.SourcePath)
		if err := uc.filer.Rename(ctx, renamedDoc, doc.SourcePath); err != nil {
			uc.notifier.Publish(domain.LogEvent(domain.LevelError, doc.SourcePath,
				fmt.Sprintf("Could not restore %s to %s: %v", renamedDoc, doc.SourcePath, err)))
		}
	}
	if sidecar != "" {
		if err := uc.filer.Remove(ctx, sidecar); err != nil {
			uc.notifier.Publish(domain.LogEvent(domain.LevelError, doc.SourcePath,
				fmt.Sprintf("Could not remove sidecar %s: %v", sidecar, err)))
		}
	}
}

func (uc *ProcessDocumentUseCase) enter(ctx context.Context, doc *domain.Document, stage domain.Stage) {
	doc.Stage = stage
	doc.UpdatedAt = uc.now().UTC()
	uc.record(doc, "update journal stage", uc.journal.UpdateStatus(ctx, doc.ID, domain.StatusProcessing, stage, ""))
}

func (uc *ProcessDocumentUseCase) info(doc *domain.Document, format string, args ...any) {
	uc.notifier.Publish(domain.LogEvent(domain.LevelInfo, doc.SourcePath, fmt.Sprintf(format, args...)))
}

// record reports journal failures without failing the document.
func (uc *ProcessDocumentUseCase) record(doc *domain.Document, operation string, err error) {
	if err == nil {
		return
	}
	uc.notifier.Publish(domain.LogEvent(domain.LevelDebug, doc.SourcePath, fmt.Sprintf("journal %s: %v", operation, err)))
}

// EnforceClassificationPolicy validates the category and keeps the funding
// tag only for research documents, where it is mandatory.
func EnforceClassificationPolicy(cls domain.Classification) (domain.Classification, error) {
	category, ok := domain.ParseCategory(string(cls.Category))
	if !ok {
		return domain.Classification{}, domain.WrapError(domain.ErrCollaborator, "validate classification",
			fmt.Errorf("unknown category %q", cls.Category))
	}
	cls.Category = category
	cls.Subject = nullToEmpty(cls.Subject)
	cls.Author = nullToEmpty(cls.Author)
	cls.Year = nullToEmpty(cls.Year)

	if category != domain.CategoryResearch {
		cls.Funding = nil
		return cls, nil
	}
	if cls.Funding == nil {
		return domain.Classification{}, domain.WrapError(domain.ErrCollaborator, "validate classification",
			errors.New("research document without funding tag"))
	}
	raw := string(*cls.Funding)
	funding := domain.ParseFunding(&raw)
	if funding == nil {
		return domain.Classification{}, domain.WrapError(domain.ErrCollaborator, "validate classification",
			fmt.Errorf("unknown funding tag %q", raw))
	}
	cls.Funding = funding
	return cls, nil
}

// NormalizeMetadata turns literal "null" answers into absent values.
func NormalizeMetadata(meta domain.Metadata) *domain.Metadata {
	return &domain.Metadata{
		Title:            nullToNil(meta.Title),
		Authors:          nonNullStrings(meta.Authors),
		PresentingAuthor: nullToNil(meta.PresentingAuthor),
		Venue:            nullToNil(meta.Venue),
		Date:             nullToNil(meta.Date),
		Location:         nullToNil(meta.Location),
		Abstract:         nullToNil(meta.Abstract),
		Keywords:         nonNullStrings(meta.Keywords),
	}
}

func isNullLiteral(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed == "" || strings.EqualFold(trimmed, "null")
}

func nullToNil(s *string) *string {
	if s == nil || isNullLiteral(*s) {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func nullToEmpty(s string) string {
	if isNullLiteral(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

func nonNullStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if isNullLiteral(s) {
			continue
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func wrapKind(kind error, operation string, err error) error {
	if domain.IsKind(err, kind) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return domain.WrapError(kind, operation, err)
}

func statusFor(err error) domain.DocumentStatus {
	switch {
	case err == nil:
		return domain.StatusFiled
	case domain.IsKind(err, domain.ErrPartialRoute):
		return domain.StatusPartial
	default:
		return domain.StatusFailed
	}
}
