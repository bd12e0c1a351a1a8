package production

import (
	"testing"

	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatch(t *testing.T) {
	t.Run("starts planned with no materials", func(t *testing.T) {
		b, err := NewBatch("BATCH-001", 5, decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.Equal(t, BatchStatusPlanned, b.Status)
		assert.Empty(t, b.Materials)
		assert.True(t, b.ProducedQty.IsZero())
	})

	t.Run("rejects bad inputs", func(t *testing.T) {
		_, err := NewBatch("", 5, decimal.NewFromInt(100))
		require.Error(t, err)
		_, err = NewBatch("BATCH-001", 0, decimal.NewFromInt(100))
		require.Error(t, err)
		_, err = NewBatch("BATCH-001", 5, decimal.Zero)
		require.Error(t, err)
	})
}

func TestBatchLifecycle(t *testing.T) {
	newBatch := func(t *testing.T) *Batch {
		b, err := NewBatch("BATCH-002", 5, decimal.NewFromInt(100))
		require.NoError(t, err)
		return b
	}

	t.Run("planned to in progress to completed", func(t *testing.T) {
		b := newBatch(t)
		require.NoError(t, b.Start())
		assert.Equal(t, BatchStatusInProgress, b.Status)

		require.NoError(t, b.Complete(decimal.NewFromInt(96), decimal.NewFromInt(1152)))
		assert.Equal(t, BatchStatusCompleted, b.Status)
		assert.True(t, b.ProducedQty.Equal(decimal.NewFromInt(96)))
		require.NotNil(t, b.CompletedAt)
	})

	t.Run("planned batch can complete without an explicit start", func(t *testing.T) {
		b := newBatch(t)
		require.NoError(t, b.Complete(decimal.NewFromInt(100), decimal.Zero))
		assert.Equal(t, BatchStatusCompleted, b.Status)
	})

	t.Run("completed batch cannot restart or cancel", func(t *testing.T) {
		b := newBatch(t)
		require.NoError(t, b.Complete(decimal.NewFromInt(100), decimal.Zero))

		err := b.Start()
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_STATE"))
		require.Error(t, b.Cancel())
	})

	t.Run("complete requires positive produced quantity", func(t *testing.T) {
		b := newBatch(t)
		err := b.Complete(decimal.Zero, decimal.Zero)
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeValidation))
		assert.Equal(t, BatchStatusPlanned, b.Status)
	})

	t.Run("cancel abandons a batch in progress", func(t *testing.T) {
		b := newBatch(t)
		require.NoError(t, b.Start())
		require.NoError(t, b.Cancel())
		assert.Equal(t, BatchStatusCancelled, b.Status)
	})
}

func TestBatchAddMaterial(t *testing.T) {
	b, err := NewBatch("BATCH-003", 5, decimal.NewFromInt(50))
	require.NoError(t, err)

	m, err := NewBatchMaterial(7, decimal.NewFromInt(30), decimal.NewFromInt(30))
	require.NoError(t, err)
	require.NoError(t, b.AddMaterial(*m))
	assert.Len(t, b.Materials, 1)

	require.NoError(t, b.Start())
	err = b.AddMaterial(*m)
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, "INVALID_STATE"))
}
