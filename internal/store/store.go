package store

import (
	"context"
	"time"

	"github.com/corpuslab/quantang-cli/internal/model"
)

// Run is one recorded crawl or retry pass.
type Run struct {
	ID          string       `json:"id"`
	Kind        string       `json:"kind"` // "crawl" or "retry"
	StartVolume int          `json:"start_volume"`
	EndVolume   int          `json:"end_volume"`
	Stats       *model.Stats `json:"stats,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

// Store defines the run-history persistence interface.
type Store interface {
	CreateRun(ctx context.Context, kind string, startVolume, endVolume int) (*Run, error)
	FinishRun(ctx context.Context, runID string, stats *model.Stats) error
	RecordTarget(ctx context.Context, runID string, state model.TargetState) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
