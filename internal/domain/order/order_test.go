package order

import (
	"testing"

	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	t.Run("happy path runs pending to delivered", func(t *testing.T) {
		path := []OrderStatus{
			OrderStatusAccepted,
			OrderStatusScheduled,
			OrderStatusReadyForDispatch,
			OrderStatusDispatched,
			OrderStatusDelivered,
		}
		current := OrderStatusPending
		for _, next := range path {
			require.True(t, current.CanTransitionTo(next),
				"expected %s -> %s to be allowed", current, next)
			current = next
		}
	})

	t.Run("accepted can skip scheduling", func(t *testing.T) {
		assert.True(t, OrderStatusAccepted.CanTransitionTo(OrderStatusReadyForDispatch))
	})

	t.Run("cancellation allowed before dispatch only", func(t *testing.T) {
		assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
		assert.True(t, OrderStatusAccepted.CanTransitionTo(OrderStatusCancelled))
		assert.True(t, OrderStatusScheduled.CanTransitionTo(OrderStatusCancelled))
		assert.True(t, OrderStatusReadyForDispatch.CanTransitionTo(OrderStatusCancelled))
		assert.False(t, OrderStatusDispatched.CanTransitionTo(OrderStatusCancelled))
		assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	})

	t.Run("dispatched can be undone back to ready", func(t *testing.T) {
		assert.True(t, OrderStatusDispatched.CanTransitionTo(OrderStatusReadyForDispatch))
	})

	t.Run("dispatched goods can be returned", func(t *testing.T) {
		assert.True(t, OrderStatusDispatched.CanTransitionTo(OrderStatusReturned))
	})

	t.Run("terminal statuses allow nothing", func(t *testing.T) {
		for _, s := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned} {
			assert.True(t, s.IsTerminal())
			for _, target := range []OrderStatus{
				OrderStatusPending, OrderStatusAccepted, OrderStatusScheduled,
				OrderStatusReadyForDispatch, OrderStatusDispatched,
				OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned,
			} {
				assert.False(t, s.CanTransitionTo(target),
					"expected %s -> %s to be refused", s, target)
			}
		}
	})
}

func TestNewOrder(t *testing.T) {
	t.Run("starts pending with generated timestamps", func(t *testing.T) {
		o, err := NewOrder("ORD-001", "Acme Beverages")
		require.NoError(t, err)
		assert.Equal(t, OrderStatusPending, o.Status)
		assert.Empty(t, o.Details)
		assert.Nil(t, o.AcceptedAt)
	})

	t.Run("requires order number and customer", func(t *testing.T) {
		_, err := NewOrder("", "Acme")
		require.Error(t, err)
		_, err = NewOrder("ORD-001", "")
		require.Error(t, err)
	})
}

func TestOrderTransitionTo(t *testing.T) {
	t.Run("records accepted and dispatched timestamps", func(t *testing.T) {
		o, err := NewOrder("ORD-002", "Acme")
		require.NoError(t, err)

		require.NoError(t, o.TransitionTo(OrderStatusAccepted))
		require.NotNil(t, o.AcceptedAt)

		require.NoError(t, o.TransitionTo(OrderStatusReadyForDispatch))
		require.NoError(t, o.TransitionTo(OrderStatusDispatched))
		require.NotNil(t, o.DispatchedAt)
	})

	t.Run("refuses an illegal jump", func(t *testing.T) {
		o, err := NewOrder("ORD-003", "Acme")
		require.NoError(t, err)

		err = o.TransitionTo(OrderStatusDispatched)
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_STATE"))
		assert.Equal(t, OrderStatusPending, o.Status)
	})

	t.Run("refuses an unknown status", func(t *testing.T) {
		o, err := NewOrder("ORD-004", "Acme")
		require.NoError(t, err)

		err = o.TransitionTo(OrderStatus("SHIPPED"))
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeValidation))
	})
}

func TestOrderAddDetail(t *testing.T) {
	t.Run("appends lines while pending", func(t *testing.T) {
		o, err := NewOrder("ORD-005", "Acme")
		require.NoError(t, err)

		d, err := NewOrderDetail(9, decimal.NewFromInt(3), decimal.NewFromInt(36))
		require.NoError(t, err)
		require.NoError(t, o.AddDetail(*d))
		assert.Len(t, o.Details, 1)
	})

	t.Run("refuses lines after acceptance", func(t *testing.T) {
		o, err := NewOrder("ORD-006", "Acme")
		require.NoError(t, err)
		require.NoError(t, o.TransitionTo(OrderStatusAccepted))

		d, err := NewOrderDetail(9, decimal.NewFromInt(3), decimal.Zero)
		require.NoError(t, err)
		err = o.AddDetail(*d)
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_STATE"))
	})
}

func TestOrderMarkSplit(t *testing.T) {
	o, err := NewOrder("ORD-007", "Acme")
	require.NoError(t, err)

	require.NoError(t, o.MarkSplit("split into ORD-007-A, ORD-007-B"))
	assert.Equal(t, OrderStatusCancelled, o.Status)
	assert.Equal(t, "split into ORD-007-A, ORD-007-B", o.Remark)
}

func TestOrderDetailReservationLifecycle(t *testing.T) {
	newDetail := func(t *testing.T) *OrderDetail {
		d, err := NewOrderDetail(5, decimal.NewFromInt(2), decimal.NewFromInt(24))
		require.NoError(t, err)
		return d
	}

	t.Run("reserve then consume", func(t *testing.T) {
		d := newDetail(t)
		require.NoError(t, d.MarkReserved())
		assert.True(t, d.ReservedFG)

		require.NoError(t, d.MarkConsumed())
		assert.Equal(t, ReservationConsumed, d.ReservationState)
		assert.False(t, d.ReservedFG)
	})

	t.Run("reserve then release", func(t *testing.T) {
		d := newDetail(t)
		require.NoError(t, d.MarkReserved())
		require.NoError(t, d.MarkReleased())
		assert.Equal(t, ReservationReleased, d.ReservationState)
	})

	t.Run("cannot consume an unreserved line", func(t *testing.T) {
		d := newDetail(t)
		err := d.MarkConsumed()
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_STATE"))
	})

	t.Run("cannot reserve twice", func(t *testing.T) {
		d := newDetail(t)
		require.NoError(t, d.MarkReserved())
		require.Error(t, d.MarkReserved())
	})

	t.Run("reopen resets a terminal line for undispatch", func(t *testing.T) {
		d := newDetail(t)
		require.NoError(t, d.MarkReserved())
		require.NoError(t, d.MarkConsumed())

		require.NoError(t, d.Reopen())
		assert.Equal(t, ReservationUnreserved, d.ReservationState)

		require.NoError(t, d.MarkReserved())
	})

	t.Run("reopen refuses a live line", func(t *testing.T) {
		d := newDetail(t)
		require.Error(t, d.Reopen())
	})
}

func TestActiveDetails(t *testing.T) {
	o, err := NewOrder("ORD-008", "Acme")
	require.NoError(t, err)

	live, err := NewOrderDetail(1, decimal.NewFromInt(1), decimal.Zero)
	require.NoError(t, err)
	done, err := NewOrderDetail(2, decimal.NewFromInt(1), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, done.MarkReserved())
	require.NoError(t, done.MarkConsumed())

	require.NoError(t, o.AddDetail(*live))
	require.NoError(t, o.AddDetail(*done))

	active := o.ActiveDetails()
	require.Len(t, active, 1)
	assert.Equal(t, int64(1), active[0].ProductID)
}

func TestDispatch(t *testing.T) {
	t.Run("records totals and actor", func(t *testing.T) {
		d, err := NewDispatch(4, decimal.NewFromInt(10), decimal.NewFromInt(120), "driver")
		require.NoError(t, err)
		assert.Equal(t, DispatchStatusDispatched, d.Status)
		assert.False(t, d.DispatchedAt.IsZero())
	})

	t.Run("delivered is terminal", func(t *testing.T) {
		d, err := NewDispatch(4, decimal.NewFromInt(10), decimal.Zero, "driver")
		require.NoError(t, err)
		require.NoError(t, d.MarkDelivered())
		require.Error(t, d.MarkReversed())
	})

	t.Run("reversal records the undispatch", func(t *testing.T) {
		d, err := NewDispatch(4, decimal.NewFromInt(10), decimal.Zero, "driver")
		require.NoError(t, err)
		require.NoError(t, d.MarkReversed())
		assert.Equal(t, DispatchStatusReversed, d.Status)
	})
}
