package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
)

// PaperCache stores student-safe paper views. A miss returns ok=false.
type PaperCache interface {
	GetItems(ctx context.Context, paperID uuid.UUID) (items []model.PaperItemView, ok bool, err error)
	SetItems(ctx context.Context, paperID uuid.UUID, items []model.PaperItemView) error
	Invalidate(ctx context.Context, paperID uuid.UUID) error
}

// ResultPublisher hands finalized results to the aggregation pipeline.
type ResultPublisher interface {
	PublishResult(ctx context.Context, ev model.ResultEvent) error
}

// EventPublisher broadcasts lifecycle events to live monitors.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev model.MonitorEvent) error
}
