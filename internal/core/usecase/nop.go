package usecase

import (
	"context"
	"time"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

type nopMetrics struct{}

func (nopMetrics) StartDocument() {}
func (nopMetrics) FinishDocument(domain.DocumentStatus, time.Duration) {}
func (nopMetrics) ObserveQueueLag(time.Duration) {}
func (nopMetrics) SetQueueDepth(int) {}

type nopJournal struct{}

func (nopJournal) Create(context.Context, *domain.Document) error { return nil }
func (nopJournal) UpdateStatus(context.Context, string, domain.DocumentStatus, domain.Stage, string) error {
	return nil
}
func (nopJournal) SaveResult(context.Context, string, domain.Result) error { return nil }
func (nopJournal) SaveDestination(context.Context, string, string, string) error { return nil }
func (nopJournal) ListRecent(context.Context, int) ([]domain.Document, error) { return nil, nil }
