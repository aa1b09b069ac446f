package salelink

import (
	"context"
	"errors"
	"fmt"
)

// LineDeriver turns a Selection into the values of the line to create.
//
// ok == false means "no values": the selection is skipped. An *InvalidSelectionError
// is also treated as a skip. Any other error aborts the whole commit.
type LineDeriver interface {
	DeriveLineValues(ctx context.Context, sel Selection, order SaleOrder) (values LineValues, ok bool, err error)
}

// LineDeriverFunc adapts a function to LineDeriver.
type LineDeriverFunc func(ctx context.Context, sel Selection, order SaleOrder) (LineValues, bool, error)

func (f LineDeriverFunc) DeriveLineValues(ctx context.Context, sel Selection, order SaleOrder) (LineValues, bool, error) {
	return f(ctx, sel, order)
}

// PriceLineDeriver prices a selection at the product's current price.
type PriceLineDeriver struct {
	Prices PriceResolver
}

func (d PriceLineDeriver) DeriveLineValues(ctx context.Context, sel Selection, _ SaleOrder) (LineValues, bool, error) {
	if sel.ProductID == 0 {
		return LineValues{}, false, nil
	}
	if sel.Quantity < 0 {
		return LineValues{}, false, &InvalidSelectionError{Index: sel.Index, ProductID: sel.ProductID, Reason: "negative quantity"}
	}

	price, err := d.Prices.CurrentPrice(ctx, sel.ProductID)
	if errors.Is(err, ErrProductNotFound) {
		return LineValues{}, false, &InvalidSelectionError{Index: sel.Index, ProductID: sel.ProductID, Reason: "unknown product"}
	}
	if err != nil {
		return LineValues{}, false, fmt.Errorf("price of product %d: %w", sel.ProductID, err)
	}
	if price.IsNegative() {
		return LineValues{}, false, &InvalidSelectionError{Index: sel.Index, ProductID: sel.ProductID, Reason: "negative price"}
	}

	return LineValues{
		ProductID: sel.ProductID,
		Quantity:  sel.Quantity,
		PriceUnit: price,
	}, true, nil
}
