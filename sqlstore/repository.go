// Package sqlstore implements the salelink collaborators on top of a SQL
// database through sqlx. PostgreSQL (lib/pq) is the production target; SQLite
// is used in tests.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ilcreatore32/salelink"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository is the sqlx backed store.
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRepository wraps db. A nil logger is replaced by a no-op logger.
func NewRepository(db *sqlx.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

const lineColumns = `
	l.id, l.order_id, l.product_id, l.sequence, l.name, l.product_uom_qty, l.price_unit,
	o.state AS order_state, o.salesperson_id`

// FindByProduct implements salelink.OrderLineStore.
func (r *Repository) FindByProduct(ctx context.Context, productIDs []int64) ([]salelink.OrderLine, error) {
	if len(productIDs) == 0 {
		return []salelink.OrderLine{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT`+lineColumns+`
		FROM sale_order_lines l
		JOIN sale_orders o ON o.id = l.order_id
		WHERE l.product_id IN (?)
		ORDER BY l.order_id, l.sequence, l.id`, productIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var lines []salelink.OrderLine
	if err := r.db.SelectContext(ctx, &lines, query, args...); err != nil {
		r.logger.Error("Failed to load order lines by product",
			zap.Error(err),
			zap.Int64s("product_ids", productIDs),
			zap.String("op", "FindByProduct"),
		)
		return nil, err
	}
	return lines, nil
}

// CreateLines implements salelink.OrderLineStore. All inserts run in one
// transaction that is rolled back on the first failure.
func (r *Repository) CreateLines(ctx context.Context, orderID int64, values []salelink.LineValues) ([]salelink.OrderLine, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order salelink.SaleOrder
	err = tx.GetContext(ctx, &order,
		tx.Rebind(`SELECT id, name, state, salesperson_id FROM sale_orders WHERE id = ?`), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", orderID, salelink.ErrOrderNotFound)
	}
	if err != nil {
		return nil, err
	}

	insert := tx.Rebind(`
		INSERT INTO sale_order_lines (order_id, product_id, sequence, name, product_uom_qty, price_unit)
		VALUES (?, ?, ?,
			COALESCE(NULLIF(?, ''), (SELECT name FROM product_variants WHERE id = ?), ''),
			?, ?)
		RETURNING id, name`)

	created := make([]salelink.OrderLine, 0, len(values))
	for _, v := range values {
		line := salelink.OrderLine{
			OrderID:       orderID,
			ProductID:     v.ProductID,
			Sequence:      v.Sequence,
			Quantity:      v.Quantity,
			PriceUnit:     v.PriceUnit,
			OrderStatus:   order.Status,
			SalespersonID: order.SalespersonID,
		}
		row := tx.QueryRowxContext(ctx, insert,
			orderID, v.ProductID, v.Sequence, v.Description, v.ProductID, v.Quantity, v.PriceUnit)
		if err := row.Scan(&line.ID, &line.Description); err != nil {
			r.logger.Error("Failed to insert order line, rolling back",
				zap.Error(err),
				zap.Int64("order_id", orderID),
				zap.Int64("product_id", v.ProductID),
				zap.String("op", "CreateLines"),
			)
			return nil, fmt.Errorf("insert sale_order_line: %w", err)
		}
		created = append(created, line)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	r.logger.Info("Order lines created",
		zap.Int64("order_id", orderID),
		zap.Int("lines", len(created)),
		zap.String("op", "CreateLines"),
	)
	return created, nil
}

// FindActiveOrder implements salelink.OrderResolver.
func (r *Repository) FindActiveOrder(ctx context.Context, contextID int64) (*salelink.SaleOrder, error) {
	if contextID == 0 {
		return nil, salelink.ErrNoActiveTarget
	}
	o, err := r.Order(ctx, contextID)
	if errors.Is(err, salelink.ErrOrderNotFound) {
		return nil, salelink.ErrNoActiveTarget
	}
	return o, err
}

// Order loads an order and its lines.
func (r *Repository) Order(ctx context.Context, orderID int64) (*salelink.SaleOrder, error) {
	var o salelink.SaleOrder
	err := r.db.GetContext(ctx, &o,
		r.db.Rebind(`SELECT id, name, state, salesperson_id FROM sale_orders WHERE id = ?`), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", orderID, salelink.ErrOrderNotFound)
	}
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &o.Lines, r.db.Rebind(`
		SELECT`+lineColumns+`
		FROM sale_order_lines l
		JOIN sale_orders o ON o.id = l.order_id
		WHERE l.order_id = ?
		ORDER BY l.sequence, l.id`), orderID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ConfirmOrder implements salelink.OrderConfirmer.
func (r *Repository) ConfirmOrder(ctx context.Context, orderID int64) error {
	return r.setState(ctx, orderID, salelink.StatusConfirmed)
}

// CancelOrder cancels the order; its lines stop counting.
func (r *Repository) CancelOrder(ctx context.Context, orderID int64) error {
	return r.setState(ctx, orderID, salelink.StatusCancelled)
}

func (r *Repository) setState(ctx context.Context, orderID int64, state salelink.OrderStatus) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE sale_orders SET state = ? WHERE id = ?`), string(state), orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %d: %w", orderID, salelink.ErrOrderNotFound)
	}
	r.logger.Info("Order state changed",
		zap.Int64("order_id", orderID),
		zap.String("state", string(state)),
		zap.String("op", "setState"),
	)
	return nil
}

// Product implements salelink.ProductCatalog.
func (r *Repository) Product(ctx context.Context, kind salelink.ProductKind, id int64) (*salelink.Product, error) {
	var p salelink.Product
	var err error
	switch kind {
	case salelink.KindTemplate:
		err = r.db.GetContext(ctx, &p,
			r.db.Rebind(`SELECT id, name, list_price FROM product_templates WHERE id = ?`), id)
		if err == nil {
			err = r.db.SelectContext(ctx, &p.VariantIDs,
				r.db.Rebind(`SELECT id FROM product_variants WHERE template_id = ? ORDER BY id`), id)
		}
	case salelink.KindVariant:
		err = r.db.GetContext(ctx, &p, r.db.Rebind(`
			SELECT v.id, v.template_id, v.name, t.list_price + v.price_extra AS list_price
			FROM product_variants v
			JOIN product_templates t ON t.id = v.template_id
			WHERE v.id = ?`), id)
	default:
		return nil, fmt.Errorf("sqlstore: unknown product kind %q", kind)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", kind, id, salelink.ErrProductNotFound)
	}
	if err != nil {
		return nil, err
	}
	p.Kind = kind
	return &p, nil
}

// CurrentPrice implements salelink.PriceResolver: template list price plus the
// variant's price extra.
func (r *Repository) CurrentPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.db.GetContext(ctx, &price, r.db.Rebind(`
		SELECT t.list_price + v.price_extra
		FROM product_variants v
		JOIN product_templates t ON t.id = v.template_id
		WHERE v.id = ?`), productID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("variant %d: %w", productID, salelink.ErrProductNotFound)
	}
	return price, err
}

// CreateTemplate inserts a product template.
func (r *Repository) CreateTemplate(ctx context.Context, name string, listPrice decimal.Decimal) (salelink.Product, error) {
	p := salelink.Product{Kind: salelink.KindTemplate, Name: name, ListPrice: listPrice}
	err := r.db.GetContext(ctx, &p.ID,
		r.db.Rebind(`INSERT INTO product_templates (name, list_price) VALUES (?, ?) RETURNING id`), name, listPrice)
	return p, err
}

// CreateVariant inserts a variant of templateID.
func (r *Repository) CreateVariant(ctx context.Context, templateID int64, name string, priceExtra decimal.Decimal) (salelink.Product, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, r.db.Rebind(`
		INSERT INTO product_variants (template_id, name, price_extra) VALUES (?, ?, ?) RETURNING id`),
		templateID, name, priceExtra)
	if err != nil {
		return salelink.Product{}, err
	}
	p, err := r.Product(ctx, salelink.KindVariant, id)
	if err != nil {
		return salelink.Product{}, err
	}
	return *p, nil
}

// CreateOrder inserts a draft order.
func (r *Repository) CreateOrder(ctx context.Context, name string, salespersonID int64) (salelink.SaleOrder, error) {
	o := salelink.SaleOrder{Name: name, Status: salelink.StatusDraft, SalespersonID: salespersonID}
	err := r.db.GetContext(ctx, &o.ID, r.db.Rebind(`
		INSERT INTO sale_orders (name, state, salesperson_id) VALUES (?, ?, ?) RETURNING id`),
		name, string(o.Status), salespersonID)
	return o, err
}

var (
	_ salelink.OrderLineStore = (*Repository)(nil)
	_ salelink.PriceResolver  = (*Repository)(nil)
	_ salelink.OrderResolver  = (*Repository)(nil)
	_ salelink.ProductCatalog = (*Repository)(nil)
	_ salelink.OrderConfirmer = (*Repository)(nil)
)
