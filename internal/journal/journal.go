// Package journal writes feed fetch outcomes to the fetch log in the
// background so sessions never wait on the database.
package journal

import (
	"context"
	"log/slog"

	"github.com/mr1hm/go-quake-heatmap/internal/config"
	"github.com/mr1hm/go-quake-heatmap/internal/models"
	"github.com/mr1hm/go-quake-heatmap/internal/repository"
	"github.com/mr1hm/go-quake-heatmap/internal/worker"
)

type Journal struct {
	cfg  *config.Config
	repo repository.FetchLog
	pool *worker.Pool[models.FetchRecord]
}

func New(cfg *config.Config, repo repository.FetchLog) *Journal {
	return &Journal{
		cfg:  cfg,
		repo: repo,
	}
}

func (j *Journal) Start(ctx context.Context) {
	processor := func(ctx context.Context, rec models.FetchRecord) error {
		if err := j.repo.AddFetch(ctx, &rec); err != nil {
			slog.Error("error recording fetch", "id", rec.ID, "session", rec.SessionID, "error", err)
			return err
		}
		slog.Debug("recorded fetch", "id", rec.ID, "session", rec.SessionID, "status", rec.Status, "features", rec.FeatureCount)
		return nil
	}

	j.pool = worker.NewPool("journal", j.cfg.Worker.Count, j.cfg.Worker.BufferSize, processor)
	j.pool.Start(ctx)
}

// Record queues rec without blocking. Records arriving while the queue is
// full are dropped and logged.
func (j *Journal) Record(rec models.FetchRecord) {
	if err := j.pool.TrySubmit(rec); err != nil {
		slog.Warn("fetch record dropped", "id", rec.ID, "session", rec.SessionID, "error", err)
	}
}

func (j *Journal) Stats() worker.Stats {
	return j.pool.Stats()
}

// Stop flushes queued records and waits for the workers.
func (j *Journal) Stop() {
	j.pool.Stop()
	slog.Info("fetch journal stopped")
}
