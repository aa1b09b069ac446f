// Package httpapi exposes the sales count and the order line import over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ilcreatore32/salelink"
	"github.com/ilcreatore32/salelink/odoo"
	"go.uber.org/zap"
)

// Handler serves the product and order endpoints.
type Handler struct {
	counter   *salelink.SalesCounter
	importer  *salelink.Importer
	catalog   salelink.ProductCatalog
	confirmer salelink.OrderConfirmer
	auth      *Authenticator
	logger    *zap.Logger
}

// NewHandler wires the handler. A nil logger is replaced by a no-op logger.
func NewHandler(counter *salelink.SalesCounter, importer *salelink.Importer, catalog salelink.ProductCatalog,
	confirmer salelink.OrderConfirmer, auth *Authenticator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		counter:   counter,
		importer:  importer,
		catalog:   catalog,
		confirmer: confirmer,
		auth:      auth,
		logger:    logger,
	}
}

// RegisterRoutes mounts the authenticated /api/v1 routes on r.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Get("/products/{kind}/{id}/sale-lines-count", h.saleLinesCount) // GET  /api/v1/products/variant/8/sale-lines-count
		r.Get("/products/{kind}/sale-lines-counts", h.saleLinesCounts)    // GET  /api/v1/products/variant/sale-lines-counts?ids=8,9
		r.Post("/orders/{id}/import", h.importLines)                      // POST /api/v1/orders/3/import
		r.Post("/orders/{id}/confirm", h.confirmOrder)                    // POST /api/v1/orders/3/confirm
	})
}

// ImportRequest is the body of the import endpoint. ProductIDs stages each
// product at the default quantity and is used only when Items is empty.
type ImportRequest struct {
	Items      []salelink.Item `json:"items"`
	ProductIDs []int64         `json:"product_ids"`
}

// ImportResponse reports a Created outcome.
type ImportResponse struct {
	WorkingSetID uuid.UUID            `json:"working_set_id"`
	LinesCreated int                  `json:"lines_created"`
	Skipped      int                  `json:"skipped"`
	Lines        []salelink.OrderLine `json:"lines"`
}

// SaleLinesCountResponse is the product with its computed count.
type SaleLinesCountResponse struct {
	Product        salelink.Product `json:"product"`
	SaleLinesCount int              `json:"sale_lines_count"`
}

// SaleLinesCountsResponse lists the counts of several products of one kind.
type SaleLinesCountsResponse struct {
	Kind   salelink.ProductKind `json:"kind"`
	Counts []ProductCount       `json:"counts"`
}

// ProductCount is one entry of SaleLinesCountsResponse.
type ProductCount struct {
	ID             int64 `json:"id"`
	SaleLinesCount int   `json:"sale_lines_count"`
}

func (h *Handler) saleLinesCount(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	product, err := h.catalog.Product(r.Context(), kind, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.counter.Compute(r.Context(), product, principal); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, SaleLinesCountResponse{Product: *product, SaleLinesCount: product.SaleLinesCount})
}

func (h *Handler) saleLinesCounts(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	ids, err := queryIDs(r.URL.Query().Get("ids"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	products := make([]salelink.Product, 0, len(ids))
	for _, id := range ids {
		product, err := h.catalog.Product(r.Context(), kind, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		products = append(products, *product)
	}
	counts, err := h.counter.CountMany(r.Context(), products, principal)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := SaleLinesCountsResponse{Kind: kind, Counts: make([]ProductCount, len(ids))}
	for i, id := range ids {
		out.Counts[i] = ProductCount{ID: id, SaleLinesCount: counts[id]}
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) importLines(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())
	if !principal.Has(salelink.CapViewAllSales) && !principal.Has(salelink.CapViewOwnSales) {
		h.logger.Warn("Import refused, principal has no sales rights",
			zap.Int64("principal_id", principal.ID),
			zap.Int64("order_id", orderID),
			zap.String("op", "importLines"),
		)
		respond(w, http.StatusForbidden, map[string]string{"error": "sales rights required to import order lines"})
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var ws *salelink.WorkingSet
	if len(req.Items) == 0 && len(req.ProductIDs) > 0 {
		ws = h.importer.PrepareProducts(orderID, req.ProductIDs...)
	} else {
		ws = h.importer.Prepare(orderID, req.Items)
	}

	h.logger.Debug("Importing selections",
		zap.String("working_set_id", ws.ID.String()),
		zap.Int64("order_id", orderID),
		zap.Int64("principal_id", principal.ID),
		zap.Int("selections", ws.Len()),
		zap.String("op", "importLines"),
	)

	outcome, err := h.importer.Commit(r.Context(), ws)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if outcome.IsNoOp() {
		respond(w, http.StatusOK, odoo.CloseWindow())
		return
	}
	lines := outcome.Lines
	if lines == nil {
		lines = []salelink.OrderLine{}
	}
	respond(w, http.StatusCreated, ImportResponse{
		WorkingSetID: ws.ID,
		LinesCreated: outcome.LinesCreated(),
		Skipped:      outcome.Skipped,
		Lines:        lines,
	})
}

func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.confirmer.ConfirmOrder(r.Context(), orderID); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "order confirmed"})
}

func pathKind(w http.ResponseWriter, r *http.Request) (salelink.ProductKind, bool) {
	kind := salelink.ProductKind(chi.URLParam(r, "kind"))
	if kind != salelink.KindTemplate && kind != salelink.KindVariant {
		respond(w, http.StatusBadRequest, map[string]string{"error": "kind must be template or variant"})
		return "", false
	}
	return kind, true
}

// queryIDs parses a comma separated id list. Repeated ids are kept once.
func queryIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("ids query parameter is required")
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var authErr *salelink.AuthorizationError
	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.Is(err, salelink.ErrProductNotFound), errors.Is(err, salelink.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, salelink.ErrAlreadyCommitted),
		errors.Is(err, salelink.ErrNegativeQuantity),
		errors.Is(err, salelink.ErrSelectionIndex):
		return http.StatusUnprocessableEntity
	case errors.Is(err, salelink.ErrMixedProductKinds):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
	}
	respond(w, status, map[string]string{"error": err.Error()})
}
