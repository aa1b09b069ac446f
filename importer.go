package salelink

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// OutcomeKind tags the result of a commit.
type OutcomeKind int

const (
	// OutcomeCreated means the target order was resolved; Lines may still be empty.
	OutcomeCreated OutcomeKind = iota
	// OutcomeNoOp means no target order was found and nothing was written.
	OutcomeNoOp
)

// Outcome is the result of Importer.Commit.
type Outcome struct {
	Kind    OutcomeKind
	Lines   []OrderLine
	Skipped int
}

// Created builds a Created(n) outcome.
func Created(lines []OrderLine, skipped int) Outcome {
	return Outcome{Kind: OutcomeCreated, Lines: lines, Skipped: skipped}
}

// NoOp builds the no-target outcome.
func NoOp() Outcome {
	return Outcome{Kind: OutcomeNoOp}
}

// IsNoOp reports whether the commit found no target order.
func (o Outcome) IsNoOp() bool {
	return o.Kind == OutcomeNoOp
}

// LinesCreated is the number of order lines written.
func (o Outcome) LinesCreated() int {
	return len(o.Lines)
}

// Importer materializes staged selections into order lines.
type Importer struct {
	orders          OrderResolver
	lines           OrderLineStore
	derive          LineDeriver
	logger          *zap.Logger
	defaultQuantity float64
}

// NewImporter creates an Importer. derive is usually a PriceLineDeriver.
func NewImporter(orders OrderResolver, lines OrderLineStore, derive LineDeriver, opts ...Option) *Importer {
	s := applyOptions(opts)
	return &Importer{
		orders:          orders,
		lines:           lines,
		derive:          derive,
		logger:          s.logger,
		defaultQuantity: s.defaultQuantity,
	}
}

// Prepare stages one selection per item, in order. A negative quantity is kept
// as given; Commit skips that selection unless SetQuantity corrects it first.
func (im *Importer) Prepare(targetOrderID int64, items []Item) *WorkingSet {
	ws := newWorkingSet(targetOrderID, im.defaultQuantity)
	for _, item := range items {
		ws.stage(item)
	}
	im.logger.Debug("Prepared working set",
		zap.String("working_set", ws.ID.String()),
		zap.Int64("target_order_id", targetOrderID),
		zap.Int("selections", len(items)),
		zap.String("op", "Prepare"),
	)
	return ws
}

// PrepareProducts stages each product at the default quantity.
func (im *Importer) PrepareProducts(targetOrderID int64, productIDs ...int64) *WorkingSet {
	items := make([]Item, len(productIDs))
	for i, id := range productIDs {
		items[i] = Item{ProductID: id}
	}
	return im.Prepare(targetOrderID, items)
}

// Commit creates one line per selection on the target order.
//
// Behavior:
//   - already committed: ErrAlreadyCommitted.
//   - target order not resolved: NoOp outcome, nothing written.
//   - empty working set: Created outcome with no lines.
//   - selections without values are skipped and counted in Outcome.Skipped.
//   - a store failure returns *StorageError, writes nothing and leaves the
//     working set staged so the caller may retry.
func (im *Importer) Commit(ctx context.Context, ws *WorkingSet) (Outcome, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	log := im.logger.With(
		zap.String("working_set", ws.ID.String()),
		zap.Int64("target_order_id", ws.targetOrderID),
	)
	log.Debug("Committing working set",
		zap.Int("selections", len(ws.selections)),
		zap.String("op", "Commit"),
	)

	if ws.committed {
		return Outcome{}, ErrAlreadyCommitted
	}

	order, err := im.orders.FindActiveOrder(ctx, ws.targetOrderID)
	if err != nil && !errors.Is(err, ErrNoActiveTarget) {
		log.Error("Failed to resolve target order", zap.Error(err), zap.String("op", "Commit"))
		return Outcome{}, storageErr("resolve target order", err)
	}
	if order == nil {
		ws.committed = true
		log.Warn("No active target order, nothing imported", zap.String("op", "Commit"))
		return NoOp(), nil
	}

	if len(ws.selections) == 0 {
		ws.committed = true
		log.Info("Empty working set committed", zap.Int64("order_id", order.ID), zap.String("op", "Commit"))
		return Created(nil, 0), nil
	}

	values := make([]LineValues, 0, len(ws.selections))
	skipped := 0
	for _, sel := range ws.selections {
		v, ok, err := im.derive.DeriveLineValues(ctx, sel, *order)
		var invalid *InvalidSelectionError
		switch {
		case errors.As(err, &invalid):
			skipped++
			log.Warn("Skipping invalid selection",
				zap.Int("index", sel.Index),
				zap.Int64("product_id", sel.ProductID),
				zap.String("reason", invalid.Reason),
				zap.String("op", "Commit"),
			)
			continue
		case err != nil:
			log.Error("Failed to derive line values", zap.Error(err), zap.Int("index", sel.Index), zap.String("op", "Commit"))
			return Outcome{}, storageErr("derive line values", err)
		case !ok:
			skipped++
			log.Debug("Selection produced no line values",
				zap.Int("index", sel.Index),
				zap.Int64("product_id", sel.ProductID),
				zap.String("op", "Commit"),
			)
			continue
		}
		values = append(values, v)
	}

	numberLines(values, order.Lines)

	var created []OrderLine
	if len(values) > 0 {
		created, err = im.lines.CreateLines(ctx, order.ID, values)
		if err != nil {
			log.Error("Failed to create order lines, batch rolled back",
				zap.Error(err),
				zap.Int64("order_id", order.ID),
				zap.Int("lines", len(values)),
				zap.String("op", "Commit"),
			)
			return Outcome{}, storageErr("create order lines", err)
		}
	}

	ws.committed = true
	log.Info("Working set committed",
		zap.Int64("order_id", order.ID),
		zap.Int("created", len(created)),
		zap.Int("skipped", skipped),
		zap.String("op", "Commit"),
	)
	return Created(created, skipped), nil
}

// numberLines gives unsequenced values sequences after the order's existing lines.
func numberLines(values []LineValues, existing []OrderLine) {
	next := 10
	for _, line := range existing {
		if line.Sequence >= next {
			next = line.Sequence + 1
		}
	}
	for i := range values {
		if values[i].Sequence == 0 {
			values[i].Sequence = next
			next++
		} else if values[i].Sequence >= next {
			next = values[i].Sequence + 1
		}
	}
}
