package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ilcreatore32/salelink"
	"github.com/ilcreatore32/salelink/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store    *memstore.Store
	server   *httptest.Server
	auth     *Authenticator
	template salelink.Product
	red      salelink.Product
	blue     salelink.Product
	order    salelink.SaleOrder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	tmpl := store.AddTemplate("Chair", decimal.NewFromInt(70))
	red, err := store.AddVariant(tmpl.ID, "Chair (Red)", decimal.Zero)
	require.NoError(t, err)
	blue, err := store.AddVariant(tmpl.ID, "Chair (Blue)", decimal.NewFromInt(5))
	require.NoError(t, err)
	order := store.AddOrder("S00001", 10)

	auth := NewAuthenticator("test-secret", "salelink-test")
	counter := salelink.NewSalesCounter(store, salelink.CapabilityAuthorizer{})
	importer := salelink.NewImporter(store, store, salelink.PriceLineDeriver{Prices: store})
	h := NewHandler(counter, importer, store, store, auth, zap.NewNop())

	srv := httptest.NewServer(NewRouter(h, zap.NewNop()))
	t.Cleanup(srv.Close)
	return &fixture{store: store, server: srv, auth: auth, template: tmpl, red: red, blue: blue, order: order}
}

func (f *fixture) token(t *testing.T, p salelink.Principal) string {
	t.Helper()
	tok, err := f.auth.IssueToken(p, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

var manager = salelink.Principal{ID: 10, Login: "manager", Active: true,
	Capabilities: []salelink.Capability{salelink.CapViewAllSales}}

func TestImportThenCount(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, manager)

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":4},{"product_id":%d,"quantity":6}]}`, f.red.ID, f.blue.ID)
	resp, out := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/import", f.order.ID), tok, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2.0, out["lines_created"])
	assert.NotEmpty(t, out["working_set_id"])

	// Quotation lines are not counted yet.
	resp, out = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/template/%d/sale-lines-count", f.template.ID), tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, out["sale_lines_count"])

	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/confirm", f.order.ID), tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/template/%d/sale-lines-count", f.template.ID), tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.0, out["sale_lines_count"])

	resp, out = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/variant/%d/sale-lines-count", f.blue.ID), tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, out["sale_lines_count"])
}

func TestImportWithoutTargetClosesWindow(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, manager)

	body := fmt.Sprintf(`{"product_ids":[%d]}`, f.red.ID)
	resp, out := f.do(t, http.MethodPost, "/api/v1/orders/0/import", tok, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ir.actions.act_window_close", out["type"])

	order, err := f.store.Order(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Empty(t, order.Lines)
}

func TestCountWithoutSalesRights(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.CreateLines(context.Background(), f.order.ID, []salelink.LineValues{{ProductID: f.red.ID, Quantity: 1}})
	require.NoError(t, err)
	require.NoError(t, f.store.ConfirmOrder(context.Background(), f.order.ID))

	employee := salelink.Principal{ID: 11, Login: "employee", Active: true}
	resp, out := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/variant/%d/sale-lines-count", f.red.ID), f.token(t, employee), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, out["sale_lines_count"])
}

func TestSaleLinesCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.CreateLines(ctx, f.order.ID, []salelink.LineValues{
		{ProductID: f.red.ID, Quantity: 1},
		{ProductID: f.red.ID, Quantity: 2},
		{ProductID: f.blue.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.NoError(t, f.store.ConfirmOrder(ctx, f.order.ID))
	tok := f.token(t, manager)

	resp, out := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/variant/sale-lines-counts?ids=%d,%d,%d", f.blue.ID, f.red.ID, f.blue.ID), tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "variant", out["kind"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"id": float64(f.blue.ID), "sale_lines_count": 1.0},
		map[string]interface{}{"id": float64(f.red.ID), "sale_lines_count": 2.0},
	}, out["counts"])

	resp, out = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/template/sale-lines-counts?ids=%d", f.template.ID), tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"id": float64(f.template.ID), "sale_lines_count": 3.0},
	}, out["counts"])

	resp, _ = f.do(t, http.MethodGet, "/api/v1/products/variant/sale-lines-counts", tok, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/products/variant/sale-lines-counts?ids=1,x", tok, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/variant/sale-lines-counts?ids=%d,9999", f.red.ID), tok, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImportWithoutSalesRights(t *testing.T) {
	f := newFixture(t)
	employee := salelink.Principal{ID: 11, Login: "employee", Active: true}

	body := fmt.Sprintf(`{"product_ids":[%d]}`, f.red.ID)
	resp, out := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/import", f.order.ID), f.token(t, employee), body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NotEmpty(t, out["error"])

	order, err := f.store.Order(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Empty(t, order.Lines)
}

func TestRequestErrors(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, manager)

	resp, _ := f.do(t, http.MethodGet, "/api/v1/products/variant/1/sale-lines-count", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	other := NewAuthenticator("other-secret", "salelink-test")
	forged, err := other.IssueToken(manager, time.Hour)
	require.NoError(t, err)
	resp, _ = f.do(t, http.MethodGet, "/api/v1/products/variant/1/sale-lines-count", forged, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/products/bundle/1/sale-lines-count", tok, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/products/variant/9999/sale-lines-count", tok, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/import", f.order.ID), tok, "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/orders/9999/confirm", tok, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthenticator_RoundTrip(t *testing.T) {
	a := NewAuthenticator("secret", "")
	p := salelink.Principal{ID: 42, Login: "bob", Active: true,
		Capabilities: []salelink.Capability{salelink.CapViewOwnSales}}
	tok, err := a.IssueToken(p, time.Minute)
	require.NoError(t, err)

	got, err := a.Principal(tok)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	expired, err := a.IssueToken(p, -time.Minute)
	require.NoError(t, err)
	_, err = a.Principal(expired)
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, statusFor(&salelink.AuthorizationError{Reason: "inactive"}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(salelink.ErrAlreadyCommitted))
	assert.Equal(t, http.StatusBadRequest, statusFor(salelink.ErrMixedProductKinds))
	assert.Equal(t, http.StatusNotFound, statusFor(&salelink.StorageError{Op: "CreateLines", Err: salelink.ErrOrderNotFound}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(&salelink.StorageError{Op: "FindByProduct", Err: fmt.Errorf("db down")}))
}
