package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewDocumentRepository(db), mock, func() { _ = db.Close() }
}

func TestCreateInsertsRun(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	doc := &domain.Document{
		ID:         "run-1",
		SourcePath: "/in/po.pdf",
		Filename:   "po.pdf",
		Status:     domain.StatusProcessing,
		Stage:      domain.StageQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	mock.ExpectExec("INSERT INTO document_runs").
		WithArgs("run-1", "/in/po.pdf", "po.pdf", "processing", "queued", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE document_runs").
		WithArgs("missing", string(domain.StatusProcessing), string(domain.StageParsing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, domain.StageParsing, "")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultStoresCategoryAndPayload(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE document_runs").
		WithArgs("run-1", "FIN", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveResult(context.Background(), "run-1", domain.Result{
		Classification: domain.Classification{Category: domain.CategoryFinancial, Subject: "Budget"},
	})
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveDestinationReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE document_runs").
		WithArgs("missing", "/dest/FIN/a.pdf", "/dest/FIN/a.json", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveDestination(context.Background(), "missing", "/dest/FIN/a.pdf", "/dest/FIN/a.json")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestListRecentMapsNullableColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "source_path", "filename", "status", "stage", "category",
		"destination_path", "sidecar_path", "error_message", "created_at", "updated_at",
	}).
		AddRow("run-2", "/in/b.pdf", "b.pdf", "failed", "parsing", nil, nil, nil, "parsing: corrupt", now, now).
		AddRow("run-1", "/in/a.pdf", "a.pdf", "filed", "done", "FIN", "/dest/FIN/a.pdf", "/dest/FIN/a.json", "", now, now)
	mock.ExpectQuery("SELECT id, source_path, filename").WithArgs(5).WillReturnRows(rows)

	docs, err := repo.ListRecent(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(docs))
	}
	if docs[0].Status != domain.StatusFailed || docs[0].Category != "" || docs[0].Error != "parsing: corrupt" {
		t.Fatalf("unexpected failed run: %+v", docs[0])
	}
	if docs[1].Category != domain.CategoryFinancial || docs[1].DestinationPath != "/dest/FIN/a.pdf" {
		t.Fatalf("unexpected filed run: %+v", docs[1])
	}
}

func TestGetResultReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT result FROM document_runs").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetResult(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGetResultDecodesPayload(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT result FROM document_runs").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).
			AddRow([]byte(`{"classification":{"type":"CRE","funding":"INT","subject":"s","author":"a","year_processed":"2024"},"metadata":null}`)))

	result, err := repo.GetResult(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}
	if result.Classification.Funding == nil || *result.Classification.Funding != domain.FundingInternal || result.Metadata != nil {
		t.Fatalf("unexpected result: %+v", result)
	}
}
