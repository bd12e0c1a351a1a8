package product

import "fmt"

// ProductKind is the discriminant of a resolved product reference
type ProductKind string

const (
	KindFG ProductKind = "FG"
	KindRM ProductKind = "RM"
	KindPM ProductKind = "PM"
)

// ProductRef is the tagged union produced by the product type resolver: a
// kind plus the id in the table that kind lives in (SKU table for FG, master
// product table for RM/PM). Callers resolve once and thread the ref through
// explicitly instead of re-detecting the type at each layer.
type ProductRef struct {
	Kind ProductKind
	ID   int64
}

// FGRef creates a reference to a finished-good SKU
func FGRef(skuID int64) ProductRef {
	return ProductRef{Kind: KindFG, ID: skuID}
}

// MaterialRef creates a reference to an RM or PM master product
func MaterialRef(kind ProductKind, masterProductID int64) ProductRef {
	return ProductRef{Kind: kind, ID: masterProductID}
}

// IsFG reports whether the ref points at a SKU
func (r ProductRef) IsFG() bool {
	return r.Kind == KindFG
}

// IsMaterial reports whether the ref points at a master-level material
func (r ProductRef) IsMaterial() bool {
	return r.Kind == KindRM || r.Kind == KindPM
}

// String returns a compact representation, e.g. "FG/42"
func (r ProductRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}
