package process

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines process persistence.
type Repository interface {
	Create(ctx context.Context, p *Process) error
	GetByID(ctx context.Context, processID uuid.UUID) (*Process, error)
	// GetForUpdate loads the process with a row-level write lock so that
	// offer creation and acceptance serialize per process.
	GetForUpdate(ctx context.Context, processID uuid.UUID) (*Process, error)
	Update(ctx context.Context, p *Process) error
}
