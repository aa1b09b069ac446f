package odoo

import (
	"context"
	"fmt"

	"github.com/ilcreatore32/salelink"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var lineFields = Fields{"order_id", "product_id", "sequence", "name", "product_uom_qty", "price_unit", "state", "salesman_id"}

var orderFields = Fields{"name", "state", "user_id"}

// Backend implements the salelink collaborators on top of a live Odoo database.
type Backend struct {
	client *Client
}

// NewBackend wraps an authenticated-on-demand client.
func NewBackend(client *Client) *Backend {
	return &Backend{client: client}
}

// orderStatus maps sale.order states onto salelink statuses.
func orderStatus(state string) salelink.OrderStatus {
	switch state {
	case "sale":
		return salelink.StatusConfirmed
	case "done":
		return salelink.StatusDone
	case "cancel":
		return salelink.StatusCancelled
	case "sent":
		return salelink.StatusSent
	}
	return salelink.StatusDraft
}

func lineFromRecord(r Record) salelink.OrderLine {
	return salelink.OrderLine{
		ID:            r.Int("id"),
		OrderID:       r.Many2one("order_id"),
		ProductID:     r.Many2one("product_id"),
		Sequence:      int(r.Int("sequence")),
		Description:   r.String("name"),
		Quantity:      r.Float("product_uom_qty"),
		PriceUnit:     decimal.NewFromFloat(r.Float("price_unit")),
		OrderStatus:   orderStatus(r.String("state")),
		SalespersonID: r.Many2one("salesman_id"),
	}
}

func orderFromRecord(r Record) *salelink.SaleOrder {
	return &salelink.SaleOrder{
		ID:            r.Int("id"),
		Name:          r.String("name"),
		Status:        orderStatus(r.String("state")),
		SalespersonID: r.Many2one("user_id"),
	}
}

func linesFromRecords(records []Record) []salelink.OrderLine {
	lines := make([]salelink.OrderLine, len(records))
	for i, r := range records {
		lines[i] = lineFromRecord(r)
	}
	return lines
}

// FindByProduct reads the sale.order.line records of the given variants. The
// integration user must be able to see every line; visibility is applied later.
func (b *Backend) FindByProduct(ctx context.Context, productIDs []int64) ([]salelink.OrderLine, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	records, err := b.client.SearchRead(ctx, ModelSaleOrderLine,
		Domain{{"product_id", "in", productIDs}},
		lineFields,
		&Options{Order: "order_id, sequence, id", Context: Context{"active_test": false}},
	)
	if err != nil {
		return nil, err
	}
	return linesFromRecords(records), nil
}

// CreateLines creates the whole batch with a single create call, which Odoo
// commits or rolls back as one transaction.
func (b *Backend) CreateLines(ctx context.Context, orderID int64, values []salelink.LineValues) ([]salelink.OrderLine, error) {
	order, err := b.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %d", salelink.ErrOrderNotFound, orderID)
	}
	if len(values) == 0 {
		return nil, nil
	}

	data := make([]Data, len(values))
	for i, v := range values {
		price, _ := v.PriceUnit.Float64()
		d := Data{
			"order_id":        orderID,
			"product_id":      v.ProductID,
			"product_uom_qty": v.Quantity,
			"price_unit":      price,
			"sequence":        v.Sequence,
		}
		// Odoo computes the description from the product when name is absent.
		if v.Description != "" {
			d["name"] = v.Description
		}
		data[i] = d
	}

	ids, err := b.client.Create(ctx, ModelSaleOrderLine, data)
	if err != nil {
		return nil, err
	}

	records, err := b.client.SearchRead(ctx, ModelSaleOrderLine, Domain{{"id", "in", ids}}, lineFields)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]salelink.OrderLine, len(records))
	for _, r := range records {
		line := lineFromRecord(r)
		byID[line.ID] = line
	}

	created := make([]salelink.OrderLine, 0, len(ids))
	for _, id := range ids {
		line, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: created line %d not readable", ErrInvalidResponse, id)
		}
		created = append(created, line)
	}

	b.client.logger.Info("Created sale order lines",
		zap.Int64("order_id", orderID),
		zap.Int64s("line_ids", ids),
		zap.String("op", "CreateLines"),
	)
	return created, nil
}

func (b *Backend) order(ctx context.Context, orderID int64) (*salelink.SaleOrder, error) {
	r, err := b.client.SearchReadOne(ctx, ModelSaleOrder, Domain{{"id", "=", orderID}}, orderFields)
	if err != nil || r == nil {
		return nil, err
	}
	return orderFromRecord(r), nil
}

// FindActiveOrder treats contextID as the sale.order id the import was opened from.
func (b *Backend) FindActiveOrder(ctx context.Context, contextID int64) (*salelink.SaleOrder, error) {
	if contextID == 0 {
		return nil, salelink.ErrNoActiveTarget
	}
	order, err := b.order(ctx, contextID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, salelink.ErrNoActiveTarget
	}

	records, err := b.client.SearchRead(ctx, ModelSaleOrderLine,
		Domain{{"order_id", "=", contextID}}, lineFields, &Options{Order: "sequence, id"})
	if err != nil {
		return nil, err
	}
	order.Lines = linesFromRecords(records)
	return order, nil
}

// CurrentPrice returns the variant's lst_price, which already includes the
// attribute price extras.
func (b *Backend) CurrentPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	r, err := b.client.SearchReadOne(ctx, ModelProductProduct, Domain{{"id", "=", productID}}, Fields{"lst_price"})
	if err != nil {
		return decimal.Zero, err
	}
	if r == nil {
		return decimal.Zero, fmt.Errorf("%w: %d", salelink.ErrProductNotFound, productID)
	}
	return decimal.NewFromFloat(r.Float("lst_price")), nil
}

// Product loads a product.template with its variant ids, or a product.product.
func (b *Backend) Product(ctx context.Context, kind salelink.ProductKind, id int64) (*salelink.Product, error) {
	switch kind {
	case salelink.KindTemplate:
		r, err := b.client.SearchReadOne(ctx, ModelProductTemplate, Domain{{"id", "=", id}}, Fields{"name", "list_price"})
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, fmt.Errorf("%w: template %d", salelink.ErrProductNotFound, id)
		}
		variantIDs, err := b.client.Search(ctx, ModelProductProduct,
			Domain{{"product_tmpl_id", "=", id}}, &Options{Order: "id", Context: Context{"active_test": false}})
		if err != nil {
			return nil, err
		}
		return &salelink.Product{
			ID:         id,
			Kind:       salelink.KindTemplate,
			Name:       r.String("name"),
			ListPrice:  decimal.NewFromFloat(r.Float("list_price")),
			VariantIDs: variantIDs,
		}, nil
	case salelink.KindVariant:
		r, err := b.client.SearchReadOne(ctx, ModelProductProduct, Domain{{"id", "=", id}}, Fields{"name", "lst_price", "product_tmpl_id"})
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, fmt.Errorf("%w: variant %d", salelink.ErrProductNotFound, id)
		}
		return &salelink.Product{
			ID:         id,
			Kind:       salelink.KindVariant,
			TemplateID: r.Many2one("product_tmpl_id"),
			Name:       r.String("name"),
			ListPrice:  decimal.NewFromFloat(r.Float("lst_price")),
		}, nil
	}
	return nil, fmt.Errorf("unknown product kind %q", kind)
}

// ConfirmOrder calls sale.order.action_confirm.
func (b *Backend) ConfirmOrder(ctx context.Context, orderID int64) error {
	_, err := b.client.CallMethod(ctx, ModelSaleOrder, "action_confirm", []int64{orderID})
	return err
}

var (
	_ salelink.OrderLineStore = (*Backend)(nil)
	_ salelink.OrderResolver  = (*Backend)(nil)
	_ salelink.PriceResolver  = (*Backend)(nil)
	_ salelink.ProductCatalog = (*Backend)(nil)
	_ salelink.OrderConfirmer = (*Backend)(nil)
)
