package salelink

import (
	"sync"

	"github.com/google/uuid"
)

// WorkingSetState is the lifecycle state of a WorkingSet.
type WorkingSetState int

const (
	StateEmpty WorkingSetState = iota
	StateStaged
	StateCommitted
)

func (s WorkingSetState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateStaged:
		return "staged"
	case StateCommitted:
		return "committed"
	}
	return "unknown"
}

// WorkingSet holds the selections of one import until they are committed.
// It belongs to a single caller; the mutex only guards against a double commit.
type WorkingSet struct {
	ID uuid.UUID

	mu              sync.Mutex
	targetOrderID   int64
	defaultQuantity float64
	selections      []Selection
	committed       bool
}

func newWorkingSet(targetOrderID int64, defaultQuantity float64) *WorkingSet {
	return &WorkingSet{
		ID:              uuid.New(),
		targetOrderID:   targetOrderID,
		defaultQuantity: defaultQuantity,
	}
}

// TargetOrderID is the context id the importer resolves the order from.
func (ws *WorkingSet) TargetOrderID() int64 {
	return ws.targetOrderID
}

// Add stages one more selection. A zero quantity takes the default quantity.
func (ws *WorkingSet) Add(item Item) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.committed {
		return ErrAlreadyCommitted
	}
	if item.Quantity < 0 {
		return ErrNegativeQuantity
	}
	ws.stage(item)
	return nil
}

// stage appends item without validating its quantity. Callers hold ws.mu or
// own the set exclusively.
func (ws *WorkingSet) stage(item Item) {
	qty := item.Quantity
	if qty == 0 {
		qty = ws.defaultQuantity
	}
	ws.selections = append(ws.selections, Selection{
		Index:     len(ws.selections),
		ProductID: item.ProductID,
		Quantity:  qty,
	})
}

// SetQuantity overrides the quantity of the selection at index.
func (ws *WorkingSet) SetQuantity(index int, qty float64) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.committed {
		return ErrAlreadyCommitted
	}
	if index < 0 || index >= len(ws.selections) {
		return ErrSelectionIndex
	}
	if qty < 0 {
		return ErrNegativeQuantity
	}
	ws.selections[index].Quantity = qty
	return nil
}

// Selections returns a copy of the staged selections in input order.
func (ws *WorkingSet) Selections() []Selection {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	out := make([]Selection, len(ws.selections))
	copy(out, ws.selections)
	return out
}

// Len returns the number of staged selections.
func (ws *WorkingSet) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.selections)
}

// State reports where the set is in its lifecycle.
func (ws *WorkingSet) State() WorkingSetState {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	switch {
	case ws.committed:
		return StateCommitted
	case len(ws.selections) == 0:
		return StateEmpty
	default:
		return StateStaged
	}
}

// IsCommitted reports whether Commit already succeeded or no-oped on this set.
func (ws *WorkingSet) IsCommitted() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.committed
}
