package store

import (
	"context"

	"github.com/me/nanokern/pkg/model"
)

// Store defines the persistence layer for scheduler traces: one row per
// run, plus the ordered event stream each run produced.
type Store interface {
	// Run CRUD
	CreateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)
	FinishRun(ctx context.Context, run *model.Run) error

	// Event operations
	AppendEvents(ctx context.Context, runID string, events []model.Event) error
	ListEvents(ctx context.Context, runID string, limit int) ([]model.Event, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
