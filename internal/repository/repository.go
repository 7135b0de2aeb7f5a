package repository

import (
	"context"

	"github.com/mr1hm/go-quake-heatmap/internal/models"
)

type Filter struct {
	Limit     int
	Offset    int
	SessionID string
	Status    *models.FetchStatus
}

// FetchLog stores the outcome of feed fetches, newest first.
type FetchLog interface {
	AddFetch(ctx context.Context, rec *models.FetchRecord) error
	ListFetches(ctx context.Context, opts Filter) ([]models.FetchRecord, error)
	CountFetches(ctx context.Context, opts Filter) (int, error)
}
