package run

import (
	"context"
	"errors"
)

// ErrRunNotFound is returned when a run cannot be found by ID.
var ErrRunNotFound = errors.New("run not found")

// Repository defines the interface for run persistence.
type Repository interface {
	// Save persists a run. If the run already exists, it is updated.
	Save(ctx context.Context, r *Run) error

	// FindByID retrieves a run by its unique identifier.
	// Returns ErrRunNotFound if the run does not exist.
	FindByID(ctx context.Context, id string) (*Run, error)

	// List returns all runs.
	List(ctx context.Context) ([]*Run, error)
}
