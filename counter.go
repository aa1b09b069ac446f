package salelink

import (
	"context"

	"go.uber.org/zap"
)

// SalesCounter computes how many confirmed order lines of a product a principal
// can see. It only reads, holds no mutable state and is safe for concurrent use.
type SalesCounter struct {
	lines  OrderLineStore
	auth   AuthorizationService
	logger *zap.Logger
}

// NewSalesCounter creates a SalesCounter reading from lines and filtering with auth.
func NewSalesCounter(lines OrderLineStore, auth AuthorizationService, opts ...Option) *SalesCounter {
	s := applyOptions(opts)
	return &SalesCounter{
		lines:  lines,
		auth:   auth,
		logger: s.logger,
	}
}

// Count returns the number of confirmed lines of product visible to principal.
//
// For a template the lines of all its variants are counted, each line once.
// A product without lines, or a template without variants, counts 0.
//
// Returns:
//   - *AuthorizationError when principal is not valid.
//   - *StorageError when the line store fails.
func (c *SalesCounter) Count(ctx context.Context, product Product, principal Principal) (int, error) {
	c.logger.Debug("Computing sale lines count",
		zap.Int64("product_id", product.ID),
		zap.String("kind", string(product.Kind)),
		zap.Int64("principal_id", principal.ID),
		zap.String("op", "Count"),
	)

	if !principal.Valid() {
		c.logger.Warn("Rejected sale lines count for unresolved principal",
			zap.Int64("principal_id", principal.ID),
			zap.String("op", "Count"),
		)
		return 0, &AuthorizationError{PrincipalID: principal.ID, Reason: "principal is not resolved"}
	}

	ids := product.VariantSet()
	if len(ids) == 0 {
		return 0, nil
	}

	found, err := c.lines.FindByProduct(ctx, ids)
	if err != nil {
		c.logger.Error("Failed to load order lines",
			zap.Error(err),
			zap.Int64s("product_ids", ids),
			zap.String("op", "Count"),
		)
		return 0, storageErr("find order lines", err)
	}

	visible, err := c.auth.VisibleOrderLines(ctx, principal, countable(found))
	if err != nil {
		return 0, err
	}

	c.logger.Debug("Sale lines count computed",
		zap.Int64("product_id", product.ID),
		zap.Int("candidates", len(found)),
		zap.Int("visible", len(visible)),
		zap.String("op", "Count"),
	)
	return len(visible), nil
}

// Compute stores the count in product.SaleLinesCount. The value is only valid
// until the next write touching the product's lines.
func (c *SalesCounter) Compute(ctx context.Context, product *Product, principal Principal) error {
	n, err := c.Count(ctx, *product, principal)
	if err != nil {
		return err
	}
	product.SaleLinesCount = n
	return nil
}

// CountMany counts several products of one kind with a single store lookup.
// The result is keyed by product id. Templates and variants have separate id
// spaces, so mixing kinds returns ErrMixedProductKinds.
func (c *SalesCounter) CountMany(ctx context.Context, products []Product, principal Principal) (map[int64]int, error) {
	if !principal.Valid() {
		return nil, &AuthorizationError{PrincipalID: principal.ID, Reason: "principal is not resolved"}
	}
	for i := 1; i < len(products); i++ {
		if products[i].Kind != products[0].Kind {
			return nil, ErrMixedProductKinds
		}
	}

	counts := make(map[int64]int, len(products))
	var ids []int64
	seen := make(map[int64]bool)
	for _, p := range products {
		counts[p.ID] = 0
		for _, id := range p.VariantSet() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return counts, nil
	}

	found, err := c.lines.FindByProduct(ctx, ids)
	if err != nil {
		c.logger.Error("Failed to load order lines",
			zap.Error(err),
			zap.Int("products", len(products)),
			zap.String("op", "CountMany"),
		)
		return nil, storageErr("find order lines", err)
	}

	visible, err := c.auth.VisibleOrderLines(ctx, principal, countable(found))
	if err != nil {
		return nil, err
	}

	perVariant := make(map[int64]int)
	for _, line := range visible {
		perVariant[line.ProductID]++
	}
	for _, p := range products {
		for _, id := range distinct(p.VariantSet()) {
			counts[p.ID] += perVariant[id]
		}
	}
	return counts, nil
}

// countable keeps lines of confirmed orders, each line id once.
func countable(lines []OrderLine) []OrderLine {
	seen := make(map[int64]bool, len(lines))
	out := make([]OrderLine, 0, len(lines))
	for _, line := range lines {
		if !line.OrderStatus.Counted() || seen[line.ID] {
			continue
		}
		seen[line.ID] = true
		out = append(out, line)
	}
	return out
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
