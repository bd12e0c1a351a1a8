package order_test

import (
	"context"
	"testing"

	"github.com/manuerp/backend/internal/application/apptest"
	appinv "github.com/manuerp/backend/internal/application/inventory"
	apporder "github.com/manuerp/backend/internal/application/order"
	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/order"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	repos  *apptest.Repos
	orders *apporder.Service
	skuA   *product.Product
	skuB   *product.Product
}

func newFixture(t *testing.T, policy appinv.Policy) *fixture {
	t.Helper()
	repos := apptest.NewRepos()
	scope := &apptest.Scope{R: repos}
	log := zap.NewNop()
	ledger := appinv.NewLedgerService(scope, nil, log, policy)
	reservations := appinv.NewReservationService(scope, nil, log, policy)

	repos.SeedMaster(1, "Bottle Family", product.ProductTypeFG, decimal.Zero)
	skuA := repos.SeedSKU(10, 1, "Bottle 1L x12", dec("2"))
	skuB := repos.SeedSKU(11, 1, "Bottle 1L x24", dec("4"))
	repos.SetStock(product.FGRef(skuA.ID), inventory.FieldAvailable, dec("100"))
	repos.SetStock(product.FGRef(skuB.ID), inventory.FieldAvailable, dec("50"))

	return &fixture{
		repos:  repos,
		orders: apporder.NewService(scope, ledger, reservations, nil, log),
		skuA:   skuA,
		skuB:   skuB,
	}
}

func (f *fixture) createOrder(t *testing.T) *order.Order {
	t.Helper()
	ord, err := f.orders.Create(context.Background(), apporder.CreateOrderInput{
		OrderNumber:  "SO-1001",
		CustomerName: "Acme Beverages",
		Lines: []apporder.OrderLineInput{
			{ProductID: f.skuA.ID, Quantity: dec("6")},
			{ProductID: f.skuB.ID, Quantity: dec("3")},
		},
	})
	require.NoError(t, err)
	return ord
}

func (f *fixture) reserved(id int64) decimal.Decimal {
	return f.repos.StockAt(product.FGRef(id), inventory.FieldReserved)
}

func (f *fixture) available(id int64) decimal.Decimal {
	return f.repos.StockAt(product.FGRef(id), inventory.FieldAvailable)
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture(t, appinv.DefaultPolicy())
	ctx := context.Background()

	ord := f.createOrder(t)
	assert.Equal(t, order.OrderStatusPending, ord.Status)
	require.Len(t, ord.Details, 2)
	assert.Equal(t, dec("12").String(), ord.Details[0].WeightKg.String(),
		"line weight defaults to quantity times package capacity")

	ord, err := f.orders.Accept(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusAccepted, ord.Status)
	require.NotNil(t, ord.AcceptedAt)
	assert.Equal(t, dec("6").String(), f.reserved(f.skuA.ID).String())
	assert.Equal(t, dec("3").String(), f.reserved(f.skuB.ID).String())
	assert.Equal(t, dec("100").String(), f.available(f.skuA.ID).String(),
		"acceptance reserves, it does not move stock")

	_, err = f.orders.MarkReadyForDispatch(ctx, ord.ID)
	require.NoError(t, err)

	dispatch, err := f.orders.Dispatch(ctx, apporder.DispatchOrderInput{
		OrderID:       ord.ID,
		VehicleNumber: "KA-01-AB-1234",
		DispatchedBy:  "gate-1",
	})
	require.NoError(t, err)

	t.Run("dispatch conserves quantities", func(t *testing.T) {
		assert.Equal(t, dec("9").String(), dispatch.TotalQuantity.String())
		assert.Equal(t, dec("94").String(), f.available(f.skuA.ID).String())
		assert.Equal(t, dec("47").String(), f.available(f.skuB.ID).String())
		assert.True(t, f.reserved(f.skuA.ID).IsZero())
		assert.True(t, f.reserved(f.skuB.ID).IsZero())

		total := decimal.Zero
		for _, row := range f.repos.LedgerRows {
			require.Equal(t, inventory.TransactionTypeDispatch, row.TransactionType)
			require.NotNil(t, row.ReferenceID)
			assert.Equal(t, ord.ID, *row.ReferenceID)
			total = total.Add(row.Quantity.Abs())
		}
		assert.Equal(t, dispatch.TotalQuantity.String(), total.String(),
			"dispatch record total must equal the sum of its ledger rows")
	})

	ord, err = f.orders.Deliver(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusDelivered, ord.Status)

	stored, err := f.orders.Get(ctx, ord.ID)
	require.NoError(t, err)
	for _, d := range stored.Details {
		assert.Equal(t, order.ReservationConsumed, d.ReservationState)
	}

	t.Run("delivered is terminal", func(t *testing.T) {
		_, err := f.orders.Cancel(ctx, ord.ID, "too late")
		require.Error(t, err)
	})
}

func TestCancelAfterReservation(t *testing.T) {
	f := newFixture(t, appinv.DefaultPolicy())
	ctx := context.Background()

	ord := f.createOrder(t)
	_, err := f.orders.Accept(ctx, ord.ID)
	require.NoError(t, err)
	require.Equal(t, dec("6").String(), f.reserved(f.skuA.ID).String())

	ord, err = f.orders.Cancel(ctx, ord.ID, "customer backed out")
	require.NoError(t, err)

	assert.Equal(t, order.OrderStatusCancelled, ord.Status)
	assert.Equal(t, "customer backed out", ord.Remark)
	assert.True(t, f.reserved(f.skuA.ID).IsZero(), "cancellation must release every reservation")
	assert.True(t, f.reserved(f.skuB.ID).IsZero())
	assert.Equal(t, dec("100").String(), f.available(f.skuA.ID).String())
	assert.Empty(t, f.repos.LedgerRows, "reservations never write ledger rows")

	for _, d := range ord.Details {
		assert.Equal(t, order.ReservationReleased, d.ReservationState)
	}
}

func TestUndispatch(t *testing.T) {
	f := newFixture(t, appinv.DefaultPolicy())
	ctx := context.Background()

	ord := f.createOrder(t)
	_, err := f.orders.Accept(ctx, ord.ID)
	require.NoError(t, err)
	_, err = f.orders.MarkReadyForDispatch(ctx, ord.ID)
	require.NoError(t, err)
	dispatch, err := f.orders.Dispatch(ctx, apporder.DispatchOrderInput{OrderID: ord.ID, DispatchedBy: "gate-1"})
	require.NoError(t, err)
	require.Equal(t, dec("94").String(), f.available(f.skuA.ID).String())

	ord, err = f.orders.Undispatch(ctx, ord.ID, "gate-1")
	require.NoError(t, err)

	assert.Equal(t, order.OrderStatusReadyForDispatch, ord.Status)
	assert.Equal(t, dec("100").String(), f.available(f.skuA.ID).String(), "returned stock is available again")
	assert.Equal(t, dec("6").String(), f.reserved(f.skuA.ID).String(), "undispatched lines are re-reserved")

	t.Run("the round trip stays on the ledger", func(t *testing.T) {
		var dispatches, returns int
		for _, row := range f.repos.LedgerRows {
			switch row.TransactionType {
			case inventory.TransactionTypeDispatch:
				dispatches++
			case inventory.TransactionTypeReturn:
				returns++
			}
		}
		assert.Equal(t, 2, dispatches)
		assert.Equal(t, 2, returns)
	})

	reloaded, err := f.repos.Dispatches().FindByID(ctx, dispatch.ID)
	require.NoError(t, err)
	assert.Equal(t, order.DispatchStatusReversed, reloaded.Status)

	t.Run("order can be dispatched again", func(t *testing.T) {
		_, err := f.orders.Dispatch(ctx, apporder.DispatchOrderInput{OrderID: ord.ID, DispatchedBy: "gate-2"})
		require.NoError(t, err)
		assert.Equal(t, dec("94").String(), f.available(f.skuA.ID).String())
	})
}

func TestReturnAfterDispatch(t *testing.T) {
	f := newFixture(t, appinv.DefaultPolicy())
	ctx := context.Background()

	ord := f.createOrder(t)
	_, err := f.orders.Accept(ctx, ord.ID)
	require.NoError(t, err)
	_, err = f.orders.MarkReadyForDispatch(ctx, ord.ID)
	require.NoError(t, err)
	_, err = f.orders.Dispatch(ctx, apporder.DispatchOrderInput{OrderID: ord.ID, DispatchedBy: "gate-1"})
	require.NoError(t, err)

	ord, err = f.orders.Return(ctx, ord.ID, "gate-1")
	require.NoError(t, err)

	assert.Equal(t, order.OrderStatusReturned, ord.Status)
	assert.Equal(t, dec("100").String(), f.available(f.skuA.ID).String())
	assert.True(t, f.reserved(f.skuA.ID).IsZero(), "a returned order does not re-reserve")

	for _, d := range ord.Details {
		assert.Equal(t, order.ReservationConsumed, d.ReservationState)
	}
}

func TestSplitOrder(t *testing.T) {
	f := newFixture(t, appinv.DefaultPolicy())
	ctx := context.Background()

	ord := f.createOrder(t)
	_, err := f.orders.Accept(ctx, ord.ID)
	require.NoError(t, err)
	stored, err := f.orders.Get(ctx, ord.ID)
	require.NoError(t, err)
	lineA, lineB := stored.Details[0].ID, stored.Details[1].ID

	replacements, err := f.orders.Split(ctx, apporder.SplitOrderInput{
		OrderID:     ord.ID,
		Assignments: [][]int64{{lineA}, {lineB}},
		RequestedBy: "planner",
	})
	require.NoError(t, err)
	require.Len(t, replacements, 2)

	original, err := f.orders.Get(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCancelled, original.Status)
	assert.Contains(t, original.Remark, "split into 2 orders")
	assert.True(t, f.reserved(f.skuA.ID).IsZero(), "split releases the original's reservations")
	assert.True(t, f.reserved(f.skuB.ID).IsZero())

	for i, repl := range replacements {
		assert.Equal(t, order.OrderStatusPending, repl.Status)
		require.NotNil(t, repl.SplitFromID)
		assert.Equal(t, ord.ID, *repl.SplitFromID)
		require.Len(t, repl.Details, 1)
		assert.Equal(t, order.ReservationUnreserved, repl.Details[0].ReservationState)
		assert.Equal(t, ord.OrderNumber+"-"+[]string{"1", "2"}[i], repl.OrderNumber)
	}

	t.Run("replacements reserve on their own acceptance", func(t *testing.T) {
		_, err := f.orders.Accept(ctx, replacements[0].ID)
		require.NoError(t, err)
		assert.Equal(t, dec("6").String(), f.reserved(f.skuA.ID).String())
		assert.True(t, f.reserved(f.skuB.ID).IsZero())
	})

	t.Run("invalid assignments are rejected", func(t *testing.T) {
		g := newFixture(t, appinv.DefaultPolicy())
		o2 := g.createOrder(t)
		stored, err := g.orders.Get(ctx, o2.ID)
		require.NoError(t, err)
		a, b := stored.Details[0].ID, stored.Details[1].ID

		_, err = g.orders.Split(ctx, apporder.SplitOrderInput{
			OrderID:     o2.ID,
			Assignments: [][]int64{{a}, {a}},
			RequestedBy: "planner",
		})
		require.Error(t, err)

		_, err = g.orders.Split(ctx, apporder.SplitOrderInput{
			OrderID:     o2.ID,
			Assignments: [][]int64{{a}, {9999}},
			RequestedBy: "planner",
		})
		require.Error(t, err)

		_, err = g.orders.Split(ctx, apporder.SplitOrderInput{
			OrderID:     o2.ID,
			Assignments: [][]int64{{a, b}},
			RequestedBy: "planner",
		})
		require.Error(t, err, "a single group is not a split")
	})
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("materials cannot be ordered", func(t *testing.T) {
		f := newFixture(t, appinv.DefaultPolicy())
		f.repos.SeedMaster(5, "HDPE Resin", product.ProductTypeRM, decimal.Zero)

		_, err := f.orders.Create(ctx, apporder.CreateOrderInput{
			CustomerName: "Acme",
			Lines:        []apporder.OrderLineInput{{ProductID: 5, Quantity: dec("1")}},
		})
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeValidation))
	})

	t.Run("empty order is rejected", func(t *testing.T) {
		f := newFixture(t, appinv.DefaultPolicy())
		_, err := f.orders.Create(ctx, apporder.CreateOrderInput{CustomerName: "Acme"})
		require.Error(t, err)
	})

	t.Run("duplicate order number is rejected", func(t *testing.T) {
		f := newFixture(t, appinv.DefaultPolicy())
		f.createOrder(t)
		_, err := f.orders.Create(ctx, apporder.CreateOrderInput{
			OrderNumber:  "SO-1001",
			CustomerName: "Acme",
			Lines:        []apporder.OrderLineInput{{ProductID: f.skuA.ID, Quantity: dec("1")}},
		})
		require.Error(t, err)
	})

	t.Run("order number is generated when omitted", func(t *testing.T) {
		f := newFixture(t, appinv.DefaultPolicy())
		ord, err := f.orders.Create(ctx, apporder.CreateOrderInput{
			CustomerName: "Acme",
			Lines:        []apporder.OrderLineInput{{ProductID: f.skuA.ID, Quantity: dec("1")}},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, ord.OrderNumber)
	})
}

func TestAcceptUnderStrictPolicy(t *testing.T) {
	policy := appinv.Policy{StrictReservation: true, OversoldTolerance: decimal.Zero}
	f := newFixture(t, policy)
	ctx := context.Background()

	f.repos.SetStock(product.FGRef(f.skuA.ID), inventory.FieldAvailable, dec("2"))
	ord := f.createOrder(t)

	_, err := f.orders.Accept(ctx, ord.ID)
	require.Error(t, err)
	assert.True(t, shared.IsDomainError(err, shared.CodeInsufficientStock))

	stored, err := f.orders.Get(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusPending, stored.Status, "a refused acceptance leaves the order pending")
	assert.True(t, f.reserved(f.skuA.ID).IsZero(), "nothing stays reserved after the rollback")
	assert.True(t, f.reserved(f.skuB.ID).IsZero())
}
