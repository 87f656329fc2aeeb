package store

import (
	"context"
	"errors"

	"github.com/joescharf/mergeq/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for run history.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, id string, stats models.RunStats) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)

	// PR results
	RecordPRResult(ctx context.Context, r *models.PRResult) error
	ListPRResults(ctx context.Context, runID string) ([]*models.PRResult, error)
	ListPRHistory(ctx context.Context, number int) ([]*models.PRResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
