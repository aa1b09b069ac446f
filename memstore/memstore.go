// Package memstore keeps products, orders and order lines in memory. It
// implements every salelink collaborator and is used by tests and by the
// service when no database is configured.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ilcreatore32/salelink"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type variant struct {
	product    salelink.Product
	priceExtra decimal.Decimal
}

// Store is a mutex guarded in-memory backend. Writes swap whole batches under
// the lock, so readers never see half of a CreateLines call.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	templates map[int64]salelink.Product
	variants  map[int64]variant
	orders    map[int64]salelink.SaleOrder
	lines     map[int64]salelink.OrderLine
	logger    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the zap logger used by the store.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		templates: make(map[int64]salelink.Product),
		variants:  make(map[int64]variant),
		orders:    make(map[int64]salelink.SaleOrder),
		lines:     make(map[int64]salelink.OrderLine),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddTemplate registers a product template.
func (s *Store) AddTemplate(name string, listPrice decimal.Decimal) salelink.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := salelink.Product{ID: s.id(), Kind: salelink.KindTemplate, Name: name, ListPrice: listPrice}
	s.templates[p.ID] = p
	return p
}

// AddVariant registers a variant of templateID. Its price is the template list
// price plus priceExtra.
func (s *Store) AddVariant(templateID int64, name string, priceExtra decimal.Decimal) (salelink.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl, ok := s.templates[templateID]
	if !ok {
		return salelink.Product{}, fmt.Errorf("template %d: %w", templateID, salelink.ErrProductNotFound)
	}
	p := salelink.Product{
		ID:         s.id(),
		Kind:       salelink.KindVariant,
		TemplateID: templateID,
		Name:       name,
		ListPrice:  tmpl.ListPrice.Add(priceExtra),
	}
	s.variants[p.ID] = variant{product: p, priceExtra: priceExtra}
	tmpl.VariantIDs = append(tmpl.VariantIDs, p.ID)
	s.templates[templateID] = tmpl
	return p, nil
}

// AddOrder registers a draft order.
func (s *Store) AddOrder(name string, salespersonID int64) salelink.SaleOrder {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := salelink.SaleOrder{ID: s.id(), Name: name, Status: salelink.StatusDraft, SalespersonID: salespersonID}
	s.orders[o.ID] = o
	return o
}

// Product implements salelink.ProductCatalog.
func (s *Store) Product(_ context.Context, kind salelink.ProductKind, id int64) (*salelink.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case salelink.KindTemplate:
		if p, ok := s.templates[id]; ok {
			p.VariantIDs = append([]int64(nil), p.VariantIDs...)
			return &p, nil
		}
	case salelink.KindVariant:
		if v, ok := s.variants[id]; ok {
			p := v.product
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%s %d: %w", kind, id, salelink.ErrProductNotFound)
}

// CurrentPrice implements salelink.PriceResolver.
func (s *Store) CurrentPrice(_ context.Context, productID int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.variants[productID]
	if !ok {
		return decimal.Zero, fmt.Errorf("variant %d: %w", productID, salelink.ErrProductNotFound)
	}
	return s.templates[v.product.TemplateID].ListPrice.Add(v.priceExtra), nil
}

// FindByProduct implements salelink.OrderLineStore.
func (s *Store) FindByProduct(_ context.Context, productIDs []int64) ([]salelink.OrderLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	var out []salelink.OrderLine
	for _, line := range s.lines {
		if wanted[line.ProductID] {
			out = append(out, s.withOrder(line))
		}
	}
	sortLines(out)
	return out, nil
}

// CreateLines implements salelink.OrderLineStore. The batch is validated
// before anything is written.
func (s *Store) CreateLines(_ context.Context, orderID int64, values []salelink.LineValues) ([]salelink.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return nil, fmt.Errorf("order %d: %w", orderID, salelink.ErrOrderNotFound)
	}
	for _, v := range values {
		if _, ok := s.variants[v.ProductID]; !ok {
			return nil, fmt.Errorf("variant %d: %w", v.ProductID, salelink.ErrProductNotFound)
		}
	}

	created := make([]salelink.OrderLine, 0, len(values))
	for _, v := range values {
		line := salelink.OrderLine{
			ID:          s.id(),
			OrderID:     orderID,
			ProductID:   v.ProductID,
			Sequence:    v.Sequence,
			Description: v.Description,
			Quantity:    v.Quantity,
			PriceUnit:   v.PriceUnit,
		}
		if line.Description == "" {
			line.Description = s.variants[v.ProductID].product.Name
		}
		s.lines[line.ID] = line
		created = append(created, s.withOrder(line))
	}

	s.logger.Debug("Created order lines",
		zap.Int64("order_id", orderID),
		zap.Int("lines", len(created)),
		zap.String("op", "CreateLines"),
	)
	return created, nil
}

// FindActiveOrder implements salelink.OrderResolver.
func (s *Store) FindActiveOrder(ctx context.Context, contextID int64) (*salelink.SaleOrder, error) {
	if contextID == 0 {
		return nil, salelink.ErrNoActiveTarget
	}
	o, err := s.Order(ctx, contextID)
	if err != nil {
		return nil, salelink.ErrNoActiveTarget
	}
	return o, nil
}

// Order returns the order with its lines in sequence order.
func (s *Store) Order(_ context.Context, orderID int64) (*salelink.SaleOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", orderID, salelink.ErrOrderNotFound)
	}
	o.Lines = nil
	for _, line := range s.lines {
		if line.OrderID == orderID {
			o.Lines = append(o.Lines, s.withOrder(line))
		}
	}
	sortLines(o.Lines)
	return &o, nil
}

// ConfirmOrder implements salelink.OrderConfirmer.
func (s *Store) ConfirmOrder(_ context.Context, orderID int64) error {
	return s.setStatus(orderID, salelink.StatusConfirmed)
}

// CancelOrder moves the order to cancelled; its lines stop counting.
func (s *Store) CancelOrder(_ context.Context, orderID int64) error {
	return s.setStatus(orderID, salelink.StatusCancelled)
}

func (s *Store) setStatus(orderID int64, status salelink.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, salelink.ErrOrderNotFound)
	}
	o.Status = status
	s.orders[orderID] = o
	return nil
}

// withOrder copies the order fields the visibility rules need. Callers hold the lock.
func (s *Store) withOrder(line salelink.OrderLine) salelink.OrderLine {
	o := s.orders[line.OrderID]
	line.OrderStatus = o.Status
	line.SalespersonID = o.SalespersonID
	return line
}

func sortLines(lines []salelink.OrderLine) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].OrderID != lines[j].OrderID {
			return lines[i].OrderID < lines[j].OrderID
		}
		if lines[i].Sequence != lines[j].Sequence {
			return lines[i].Sequence < lines[j].Sequence
		}
		return lines[i].ID < lines[j].ID
	})
}

var (
	_ salelink.OrderLineStore = (*Store)(nil)
	_ salelink.PriceResolver  = (*Store)(nil)
	_ salelink.OrderResolver  = (*Store)(nil)
	_ salelink.ProductCatalog = (*Store)(nil)
	_ salelink.OrderConfirmer = (*Store)(nil)
)
