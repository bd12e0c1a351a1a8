package production

import (
	"context"

	"github.com/manuerp/backend/internal/domain/shared"
)

// BatchRepository defines persistence for production batches
type BatchRepository interface {
	// FindByID finds a batch by id, preloading its materials
	FindByID(ctx context.Context, id int64) (*Batch, error)

	// FindByNumber finds a batch by its batch number
	FindByNumber(ctx context.Context, batchNumber string) (*Batch, error)

	// FindByStatus lists batches with the given status
	FindByStatus(ctx context.Context, status BatchStatus, filter shared.Filter) ([]Batch, int64, error)

	// Save creates or updates a batch together with its materials
	Save(ctx context.Context, b *Batch) error
}
