// Package apptest provides in-memory repository implementations for
// application-layer tests. The fakes honor the same contracts the gorm
// repositories do (not-found error codes, zero-floor clamping, append-only
// ledger) so service tests exercise real invariants without a database.
package apptest

import (
	"context"
	"errors"
	"sort"
	"time"

	appinv "github.com/manuerp/backend/internal/application/inventory"
	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/order"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/production"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ErrLedgerDown is returned by the fake ledger while failure injection is armed
var ErrLedgerDown = errors.New("ledger insert failed")

type stockCell struct {
	qty    decimal.Decimal
	weight decimal.Decimal
}

// Repos is an in-memory implementation of the transactional repository set
type Repos struct {
	stock map[string]*stockCell

	LedgerRows []*inventory.InventoryTransaction
	// LedgerFailures makes the next N ledger appends fail
	LedgerFailures int
	nextLedgerID   int64

	Masters   map[int64]*product.MasterProduct
	SKUs      map[int64]*product.Product
	OrderRows map[int64]*order.Order
	Disp      map[int64]*order.Dispatch
	BatchRows map[int64]*production.Batch

	nextMasterID   int64
	nextSKUID      int64
	nextOrderID    int64
	nextDetailID   int64
	nextDispatchID int64
	nextBatchID    int64
}

// NewRepos creates an empty repository set
func NewRepos() *Repos {
	return &Repos{
		stock:     make(map[string]*stockCell),
		Masters:   make(map[int64]*product.MasterProduct),
		SKUs:      make(map[int64]*product.Product),
		OrderRows: make(map[int64]*order.Order),
		Disp:      make(map[int64]*order.Dispatch),
		BatchRows: make(map[int64]*production.Batch),
	}
}

func (r *Repos) Stock() inventory.StockStore                     { return &stockStore{r} }
func (r *Repos) Ledger() inventory.LedgerRepository              { return &ledgerRepo{r} }
func (r *Repos) MasterProducts() product.MasterProductRepository { return &masterRepo{r} }
func (r *Repos) Products() product.ProductRepository             { return &skuRepo{r} }
func (r *Repos) Orders() order.OrderRepository                   { return &orderRepo{r} }
func (r *Repos) Dispatches() order.DispatchRepository            { return &dispatchRepo{r} }
func (r *Repos) Batches() production.BatchRepository             { return &batchRepo{r} }

var _ appinv.TransactionalRepositories = (*Repos)(nil)

// SeedMaster stores a master product under an explicit id. Explicit ids let
// tests build the id overlap between master products and SKUs that the
// resolver must handle.
func (r *Repos) SeedMaster(id int64, name string, productType product.ProductType, minStock decimal.Decimal) *product.MasterProduct {
	mp, err := product.NewMasterProduct(name, productType, minStock)
	if err != nil {
		panic(err)
	}
	mp.ID = id
	if productType.IsMaterial() {
		mp.Material = product.NewMaterialDetail(id, "kg")
	}
	r.Masters[id] = mp
	if id > r.nextMasterID {
		r.nextMasterID = id
	}
	return mp
}

// SeedSKU stores a SKU under an explicit id
func (r *Repos) SeedSKU(id, masterID int64, name string, packageCapacityKg decimal.Decimal) *product.Product {
	sku, err := product.NewProduct(masterID, name, packageCapacityKg)
	if err != nil {
		panic(err)
	}
	sku.ID = id
	r.SKUs[id] = sku
	if id > r.nextSKUID {
		r.nextSKUID = id
	}
	return sku
}

// SetStock sets a stock counter directly, bypassing movement operations
func (r *Repos) SetStock(ref product.ProductRef, field inventory.StockField, qty decimal.Decimal) {
	r.cell(ref, field).qty = qty
}

// StockAt reads a stock counter directly
func (r *Repos) StockAt(ref product.ProductRef, field inventory.StockField) decimal.Decimal {
	return r.cell(ref, field).qty
}

// WeightAt reads a weight counter directly
func (r *Repos) WeightAt(ref product.ProductRef, field inventory.StockField) decimal.Decimal {
	return r.cell(ref, field).weight
}

func (r *Repos) cell(ref product.ProductRef, field inventory.StockField) *stockCell {
	key := ref.String() + "/" + string(field)
	c, ok := r.stock[key]
	if !ok {
		c = &stockCell{qty: decimal.Zero, weight: decimal.Zero}
		r.stock[key] = c
	}
	return c
}

// Scope executes functions against the shared Repos and rolls back the stock
// counters and ledger rows when the function fails, mirroring the transaction
// semantics services rely on.
type Scope struct {
	R *Repos
}

// Execute runs fn; on error the stock and ledger state is restored
func (s *Scope) Execute(_ context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	stockSnap := make(map[string]stockCell, len(s.R.stock))
	for k, v := range s.R.stock {
		stockSnap[k] = *v
	}
	ledgerLen := len(s.R.LedgerRows)
	ledgerID := s.R.nextLedgerID
	orderSnap := make(map[int64]*order.Order, len(s.R.OrderRows))
	for k, v := range s.R.OrderRows {
		orderSnap[k] = copyOrder(v)
	}
	dispSnap := make(map[int64]*order.Dispatch, len(s.R.Disp))
	for k, v := range s.R.Disp {
		cp := *v
		dispSnap[k] = &cp
	}
	batchSnap := make(map[int64]*production.Batch, len(s.R.BatchRows))
	for k, v := range s.R.BatchRows {
		cp := *v
		cp.Materials = append([]production.BatchMaterial(nil), v.Materials...)
		batchSnap[k] = &cp
	}

	err := fn(s.R)
	if err != nil {
		s.R.stock = make(map[string]*stockCell, len(stockSnap))
		for k, v := range stockSnap {
			c := v
			s.R.stock[k] = &c
		}
		s.R.LedgerRows = s.R.LedgerRows[:ledgerLen]
		s.R.nextLedgerID = ledgerID
		s.R.OrderRows = orderSnap
		s.R.Disp = dispSnap
		s.R.BatchRows = batchSnap
	}
	return err
}

var _ appinv.TransactionScope = (*Scope)(nil)

type stockStore struct{ r *Repos }

func (s *stockStore) Adjust(_ context.Context, ref product.ProductRef, field inventory.StockField, delta decimal.Decimal) (inventory.Adjustment, error) {
	c := s.r.cell(ref, field)
	before := c.qty
	after := before.Add(delta)
	if after.IsNegative() {
		after = decimal.Zero
	}
	c.qty = after
	return inventory.Adjustment{Before: before, After: after}, nil
}

func (s *stockStore) AdjustWeight(_ context.Context, ref product.ProductRef, field inventory.StockField, deltaKg decimal.Decimal) (inventory.Adjustment, error) {
	c := s.r.cell(ref, field)
	before := c.weight
	after := before.Add(deltaKg)
	if after.IsNegative() {
		after = decimal.Zero
	}
	c.weight = after
	return inventory.Adjustment{Before: before, After: after}, nil
}

func (s *stockStore) Peek(_ context.Context, ref product.ProductRef, field inventory.StockField) (decimal.Decimal, error) {
	return s.r.cell(ref, field).qty, nil
}

type ledgerRepo struct{ r *Repos }

func (l *ledgerRepo) Append(_ context.Context, tx *inventory.InventoryTransaction) error {
	if l.r.LedgerFailures > 0 {
		l.r.LedgerFailures--
		return ErrLedgerDown
	}
	l.r.nextLedgerID++
	tx.ID = l.r.nextLedgerID
	l.r.LedgerRows = append(l.r.LedgerRows, tx)
	return nil
}

func (l *ledgerRepo) FindByID(_ context.Context, id int64) (*inventory.InventoryTransaction, error) {
	for _, tx := range l.r.LedgerRows {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, shared.NewNotFoundError("inventory transaction", id)
}

func (l *ledgerRepo) FindByProduct(_ context.Context, ref product.ProductRef, filter shared.Filter) ([]inventory.InventoryTransaction, int64, error) {
	var rows []inventory.InventoryTransaction
	for _, tx := range l.r.LedgerRows {
		if ref.IsFG() && tx.ProductID != nil && *tx.ProductID == ref.ID {
			rows = append(rows, *tx)
		}
		if ref.IsMaterial() && tx.MasterProductID != nil && *tx.MasterProductID == ref.ID {
			rows = append(rows, *tx)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return paginate(rows, filter)
}

func (l *ledgerRepo) FindByReference(_ context.Context, refType inventory.ReferenceType, refID int64) ([]inventory.InventoryTransaction, error) {
	var rows []inventory.InventoryTransaction
	for _, tx := range l.r.LedgerRows {
		if tx.ReferenceType == nil || *tx.ReferenceType != refType {
			continue
		}
		if refID > 0 && (tx.ReferenceID == nil || *tx.ReferenceID != refID) {
			continue
		}
		rows = append(rows, *tx)
	}
	return rows, nil
}

func (l *ledgerRepo) FindByDateRange(_ context.Context, start, end time.Time, filter shared.Filter) ([]inventory.InventoryTransaction, int64, error) {
	var rows []inventory.InventoryTransaction
	for _, tx := range l.r.LedgerRows {
		if !tx.CreatedAt.Before(start) && tx.CreatedAt.Before(end) {
			rows = append(rows, *tx)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return paginate(rows, filter)
}

func paginate(rows []inventory.InventoryTransaction, filter shared.Filter) ([]inventory.InventoryTransaction, int64, error) {
	total := int64(len(rows))
	off := filter.Offset()
	if off >= len(rows) {
		return nil, total, nil
	}
	end := off + filter.Limit()
	if end > len(rows) {
		end = len(rows)
	}
	return rows[off:end], total, nil
}

type masterRepo struct{ r *Repos }

func (m *masterRepo) FindByID(_ context.Context, id int64) (*product.MasterProduct, error) {
	mp, ok := m.r.Masters[id]
	if !ok {
		return nil, shared.NewNotFoundError("master product", id)
	}
	return mp, nil
}

func (m *masterRepo) FindAll(_ context.Context, filter shared.Filter) ([]product.MasterProduct, int64, error) {
	var out []product.MasterProduct
	for _, mp := range m.r.Masters {
		out = append(out, *mp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *masterRepo) Save(_ context.Context, mp *product.MasterProduct) error {
	if mp.ID == 0 {
		m.r.nextMasterID++
		mp.ID = m.r.nextMasterID
	}
	m.r.Masters[mp.ID] = mp
	return nil
}

func (m *masterRepo) SaveMaterialDetail(_ context.Context, detail *product.MaterialDetail) error {
	mp, ok := m.r.Masters[detail.MasterProductID]
	if !ok {
		return shared.NewNotFoundError("master product", detail.MasterProductID)
	}
	mp.Material = detail
	return nil
}

type skuRepo struct{ r *Repos }

func (s *skuRepo) FindByID(_ context.Context, id int64) (*product.Product, error) {
	sku, ok := s.r.SKUs[id]
	if !ok {
		return nil, shared.NewNotFoundError("product", id)
	}
	return sku, nil
}

func (s *skuRepo) FindByMaster(_ context.Context, masterProductID int64) ([]product.Product, error) {
	var out []product.Product
	for _, sku := range s.r.SKUs {
		if sku.MasterProductID == masterProductID {
			out = append(out, *sku)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *skuRepo) FindPlaceholderForMaster(_ context.Context, masterProductID int64) (*product.Product, error) {
	for _, sku := range s.r.SKUs {
		if sku.IsPlaceholder && sku.MasterProductID == masterProductID {
			return sku, nil
		}
	}
	return nil, shared.NewNotFoundError("placeholder product", masterProductID)
}

func (s *skuRepo) Save(_ context.Context, p *product.Product) error {
	if p.ID == 0 {
		s.r.nextSKUID++
		p.ID = s.r.nextSKUID
	}
	s.r.SKUs[p.ID] = p
	return nil
}

type orderRepo struct{ r *Repos }

func (o *orderRepo) FindByID(_ context.Context, id int64) (*order.Order, error) {
	ord, ok := o.r.OrderRows[id]
	if !ok {
		return nil, shared.NewNotFoundError("order", id)
	}
	return copyOrder(ord), nil
}

// copyOrder detaches the caller from stored state so mutations only land on
// Save, the way a row round-trip through a real database behaves
func copyOrder(ord *order.Order) *order.Order {
	cp := *ord
	cp.Details = append([]order.OrderDetail(nil), ord.Details...)
	return &cp
}

func (o *orderRepo) FindByNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	for _, ord := range o.r.OrderRows {
		if ord.OrderNumber == orderNumber {
			return copyOrder(ord), nil
		}
	}
	return nil, shared.NewNotFoundError("order", 0)
}

func (o *orderRepo) FindByStatus(_ context.Context, status order.OrderStatus, filter shared.Filter) ([]order.Order, int64, error) {
	var out []order.Order
	for _, ord := range o.r.OrderRows {
		if ord.Status == status {
			out = append(out, *ord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (o *orderRepo) Save(_ context.Context, ord *order.Order) error {
	if ord.ID == 0 {
		o.r.nextOrderID++
		ord.ID = o.r.nextOrderID
	}
	for i := range ord.Details {
		d := &ord.Details[i]
		if d.ID == 0 {
			o.r.nextDetailID++
			d.ID = o.r.nextDetailID
		}
		d.OrderID = ord.ID
	}
	o.r.OrderRows[ord.ID] = copyOrder(ord)
	return nil
}

func (o *orderRepo) SaveDetail(_ context.Context, d *order.OrderDetail) error {
	ord, ok := o.r.OrderRows[d.OrderID]
	if !ok {
		return shared.NewNotFoundError("order", d.OrderID)
	}
	for i := range ord.Details {
		if ord.Details[i].ID == d.ID {
			ord.Details[i] = *d
			return nil
		}
	}
	return shared.NewNotFoundError("order detail", d.ID)
}

type dispatchRepo struct{ r *Repos }

func (dr *dispatchRepo) FindByID(_ context.Context, id int64) (*order.Dispatch, error) {
	d, ok := dr.r.Disp[id]
	if !ok {
		return nil, shared.NewNotFoundError("dispatch", id)
	}
	cp := *d
	return &cp, nil
}

func (dr *dispatchRepo) FindByOrder(_ context.Context, orderID int64) ([]order.Dispatch, error) {
	var out []order.Dispatch
	for _, d := range dr.r.Disp {
		if d.OrderID == orderID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (dr *dispatchRepo) Save(_ context.Context, d *order.Dispatch) error {
	if d.ID == 0 {
		dr.r.nextDispatchID++
		d.ID = dr.r.nextDispatchID
	}
	cp := *d
	dr.r.Disp[d.ID] = &cp
	return nil
}

type batchRepo struct{ r *Repos }

func (br *batchRepo) FindByID(_ context.Context, id int64) (*production.Batch, error) {
	b, ok := br.r.BatchRows[id]
	if !ok {
		return nil, shared.NewNotFoundError("batch", id)
	}
	cp := *b
	cp.Materials = append([]production.BatchMaterial(nil), b.Materials...)
	return &cp, nil
}

func (br *batchRepo) FindByNumber(_ context.Context, batchNumber string) (*production.Batch, error) {
	for _, b := range br.r.BatchRows {
		if b.BatchNumber == batchNumber {
			return b, nil
		}
	}
	return nil, shared.NewNotFoundError("batch", 0)
}

func (br *batchRepo) FindByStatus(_ context.Context, status production.BatchStatus, filter shared.Filter) ([]production.Batch, int64, error) {
	var out []production.Batch
	for _, b := range br.r.BatchRows {
		if b.Status == status {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (br *batchRepo) Save(_ context.Context, b *production.Batch) error {
	if b.ID == 0 {
		br.r.nextBatchID++
		b.ID = br.r.nextBatchID
	}
	for i := range b.Materials {
		b.Materials[i].BatchID = b.ID
	}
	cp := *b
	cp.Materials = append([]production.BatchMaterial(nil), b.Materials...)
	br.r.BatchRows[b.ID] = &cp
	return nil
}
