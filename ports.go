package salelink

import (
	"context"

	"github.com/shopspring/decimal"
)

// ports.go: collaborators consumed by SalesCounter and Importer. The memstore,
// sqlstore and odoo packages implement all of them.

// OrderLineStore reads and writes order lines.
type OrderLineStore interface {
	// FindByProduct returns every line whose product is one of productIDs,
	// whatever the state of its order. An empty productIDs returns no lines.
	FindByProduct(ctx context.Context, productIDs []int64) ([]OrderLine, error)

	// CreateLines appends one line per values entry to the order, in order.
	// It is all-or-nothing: on error no line of the batch is kept.
	CreateLines(ctx context.Context, orderID int64, values []LineValues) ([]OrderLine, error)
}

// AuthorizationService filters lines down to those the principal may see.
type AuthorizationService interface {
	VisibleOrderLines(ctx context.Context, principal Principal, candidates []OrderLine) ([]OrderLine, error)
}

// PriceResolver gives the current sale price of a variant.
type PriceResolver interface {
	CurrentPrice(ctx context.Context, productID int64) (decimal.Decimal, error)
}

// OrderResolver resolves the order an import targets. It returns (nil, nil) or
// ErrNoActiveTarget when contextID designates no order.
type OrderResolver interface {
	FindActiveOrder(ctx context.Context, contextID int64) (*SaleOrder, error)
}

// ProductCatalog loads products for hosts that only know ids.
type ProductCatalog interface {
	Product(ctx context.Context, kind ProductKind, id int64) (*Product, error)
}

// OrderConfirmer moves a quotation to the confirmed state.
type OrderConfirmer interface {
	ConfirmOrder(ctx context.Context, orderID int64) error
}
