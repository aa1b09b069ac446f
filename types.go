package salelink

import (
	"github.com/shopspring/decimal"
)

// types.go

// ProductKind tells whether a Product is a template (a product family)
// or one of its purchasable variants.
type ProductKind string

const (
	KindTemplate ProductKind = "template"
	KindVariant  ProductKind = "variant"
)

// Product is either a template or a variant.
//
// For a template, VariantIDs lists every variant belonging to it. For a variant,
// TemplateID points back to its family. SaleLinesCount is derived: it is only
// ever written by SalesCounter.Compute and must not be trusted as stored data.
type Product struct {
	ID             int64           `json:"id" db:"id"`
	Kind           ProductKind     `json:"kind" db:"-"`
	TemplateID     int64           `json:"template_id,omitempty" db:"template_id"`
	Name           string          `json:"name" db:"name"`
	ListPrice      decimal.Decimal `json:"list_price" db:"list_price"`
	VariantIDs     []int64         `json:"variant_ids,omitempty" db:"-"`
	SaleLinesCount int             `json:"sale_lines_count" db:"-"`
}

// VariantSet returns the variant ids whose order lines belong to this product.
func (p Product) VariantSet() []int64 {
	if p.Kind == KindTemplate {
		return p.VariantIDs
	}
	return []int64{p.ID}
}

// OrderStatus is the lifecycle state of a sale order.
type OrderStatus string

const (
	StatusDraft     OrderStatus = "draft"
	StatusSent      OrderStatus = "sent"
	StatusConfirmed OrderStatus = "confirmed"
	StatusDone      OrderStatus = "done"
	StatusCancelled OrderStatus = "cancelled"
)

// Counted reports whether lines of an order in this state contribute to a
// product's sales count. Quotations and cancelled orders do not.
func (s OrderStatus) Counted() bool {
	return s == StatusConfirmed || s == StatusDone
}

// SaleOrder is the aggregate order lines are attached to. Lines keep their
// insertion order.
type SaleOrder struct {
	ID            int64       `json:"id" db:"id"`
	Name          string      `json:"name" db:"name"`
	Status        OrderStatus `json:"status" db:"state"`
	SalespersonID int64       `json:"salesperson_id,omitempty" db:"salesperson_id"`
	Lines         []OrderLine `json:"lines,omitempty" db:"-"`
}

// OrderLine belongs to exactly one SaleOrder and references exactly one variant.
// OrderStatus and SalespersonID are copied from the owning order so visibility
// can be decided without another lookup.
type OrderLine struct {
	ID            int64           `json:"id" db:"id"`
	OrderID       int64           `json:"order_id" db:"order_id"`
	ProductID     int64           `json:"product_id" db:"product_id"`
	Sequence      int             `json:"sequence" db:"sequence"`
	Description   string          `json:"description,omitempty" db:"name"`
	Quantity      float64         `json:"quantity" db:"product_uom_qty"`
	PriceUnit     decimal.Decimal `json:"price_unit" db:"price_unit"`
	OrderStatus   OrderStatus     `json:"order_status" db:"order_state"`
	SalespersonID int64           `json:"salesperson_id,omitempty" db:"salesperson_id"`
}

// Capability is a right granted to a Principal.
type Capability string

const (
	// CapViewAllSales grants visibility on every sale order line.
	CapViewAllSales Capability = "sales.view_all"
	// CapViewOwnSales grants visibility on lines of the principal's own orders.
	CapViewOwnSales Capability = "sales.view_own"
)

// Principal is the acting user on whose behalf a read happens.
type Principal struct {
	ID           int64        `json:"id"`
	Login        string       `json:"login,omitempty"`
	Capabilities []Capability `json:"capabilities,omitempty"`
	Active       bool         `json:"active"`
}

// Valid reports whether the principal can be used for an authorization decision.
func (p Principal) Valid() bool {
	return p.ID != 0 && p.Active
}

// Has reports whether the principal was granted c.
func (p Principal) Has(c Capability) bool {
	for _, granted := range p.Capabilities {
		if granted == c {
			return true
		}
	}
	return false
}

// Item is a caller supplied (product, quantity) pair handed to Importer.Prepare.
// A zero Quantity means "use the importer default".
type Item struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

// Selection is a staged, not yet materialized Item inside a WorkingSet.
type Selection struct {
	Index     int     `json:"index"`
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

// LineValues are the values an OrderLine is created from.
type LineValues struct {
	ProductID   int64           `json:"product_id"`
	Quantity    float64         `json:"quantity"`
	PriceUnit   decimal.Decimal `json:"price_unit"`
	Sequence    int             `json:"sequence"`
	Description string          `json:"description,omitempty"`
}
