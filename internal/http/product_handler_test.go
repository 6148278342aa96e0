package http

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/inventory-service/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-service/internal/config"
	"github.com/tuanvumaihuynh/inventory-service/internal/model"
	"github.com/tuanvumaihuynh/inventory-service/internal/repository/repositorytest"
	"github.com/tuanvumaihuynh/inventory-service/internal/service"
	"github.com/tuanvumaihuynh/inventory-service/pkg/correlationid"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
	Stack []string `json:"stack"`
}

type testServer struct {
	t       *testing.T
	store   *repositorytest.MemoryStore
	handler http.Handler
}

func newTestServer(t *testing.T, appEnv string) *testServer {
	t.Helper()

	store := repositorytest.NewMemoryStore()
	svc, err := New(
		config.HTTP{Swagger: false, CorsAllowedOrigins: []string{"*"}},
		config.App{Env: appEnv},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		service.NewProductService(store),
		store,
	)
	require.NoError(t, err)

	return &testServer{t: t, store: store, handler: svc.Handler()}
}

func (ts *testServer) do(method, target string, body any) (*httptest.ResponseRecorder, testEnvelope) {
	ts.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	ts.handler.ServeHTTP(resp, req)

	var env testEnvelope
	if resp.Header().Get("Content-Type") == "application/json" {
		require.NoError(ts.t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	}
	return resp, env
}

func (ts *testServer) createProduct(body map[string]any) model.Product {
	ts.t.Helper()

	resp, env := ts.do(http.MethodPost, "/api/products", body)
	require.Equal(ts.t, http.StatusCreated, resp.Code, resp.Body.String())

	var product model.Product
	require.NoError(ts.t, json.Unmarshal(env.Data, &product))
	return product
}

func widgetBody() map[string]any {
	return map[string]any{
		"name":        "Widget Pro",
		"description": "A very fine widget indeed",
		"price":       9.99,
		"category":    "electronics",
		"stock":       5,
	}
}

func TestCreateProduct(t *testing.T) {
	ts := newTestServer(t, "")

	resp, env := ts.do(http.MethodPost, "/api/products", widgetBody())
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, resp.Header().Get(correlationid.Header))

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, true, data["isActive"])
	assert.Equal(t, "Widget Pro", data["name"])
	assert.EqualValues(t, 5, data["stock"])
}

func TestCreateProduct_DuplicateName(t *testing.T) {
	ts := newTestServer(t, "")
	ts.createProduct(widgetBody())

	body := widgetBody()
	body["name"] = "widget pro"
	resp, env := ts.do(http.MethodPost, "/api/products", body)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.False(t, env.Success)
	assert.Equal(t, apperr.ProductNameConflictCode, env.Code)
}

func TestCreateProduct_Price(t *testing.T) {
	tests := []struct {
		price      float64
		wantStatus int
	}{
		{price: 0, wantStatus: http.StatusBadRequest},
		{price: 0.005, wantStatus: http.StatusBadRequest},
		{price: -1, wantStatus: http.StatusBadRequest},
		{price: 0.01, wantStatus: http.StatusCreated},
		{price: 0.015, wantStatus: http.StatusBadRequest},
		{price: 9999999999.99, wantStatus: http.StatusCreated},
		{price: 1e10, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.price), func(t *testing.T) {
			ts := newTestServer(t, "")
			body := widgetBody()
			body["price"] = tt.price

			resp, _ := ts.do(http.MethodPost, "/api/products", body)
			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}
}

func TestCreateProduct_ValidationMessage(t *testing.T) {
	ts := newTestServer(t, "")

	resp, env := ts.do(http.MethodPost, "/api/products", map[string]any{
		"name":     "ab",
		"price":    1,
		"category": "weapons",
	})

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, apperr.ValidationErrorCode, env.Code)
	assert.Contains(t, env.Message, "name must be at least 3 characters long")
	assert.Contains(t, env.Message, "description is required")
	assert.Contains(t, env.Message, "category")
	assert.Len(t, env.Details, 3)
}

func TestCreateProduct_BadBody(t *testing.T) {
	ts := newTestServer(t, "")

	t.Run("unknown field", func(t *testing.T) {
		body := widgetBody()
		body["isActive"] = false
		resp, env := ts.do(http.MethodPost, "/api/products", body)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, apperr.InvalidRequestBodyCode, env.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp, env := ts.do(http.MethodPost, "/api/products", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, apperr.InvalidRequestBodyCode, env.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		resp, _ := ts.do(http.MethodPost, "/api/products", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestGetProduct(t *testing.T) {
	ts := newTestServer(t, "")
	product := ts.createProduct(widgetBody())

	resp, env := ts.do(http.MethodGet, "/api/products/"+product.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var got model.Product
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, product.ID, got.ID)

	resp, env = ts.do(http.MethodGet, "/api/products/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, apperr.InvalidProductIDCode, env.Code)

	resp, env = ts.do(http.MethodGet, "/api/products/0191a8e4-6b6e-7c3a-9d1f-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, apperr.ProductNotFoundCode, env.Code)
}

func TestUpdateProduct(t *testing.T) {
	ts := newTestServer(t, "")
	product := ts.createProduct(widgetBody())
	other := widgetBody()
	other["name"] = "Gizmo"
	ts.createProduct(other)

	resp, env := ts.do(http.MethodPut, "/api/products/"+product.ID, map[string]any{"price": 12.5, "name": "widget max"})
	require.Equal(t, http.StatusOK, resp.Code)
	var updated model.Product
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, "Widget max", updated.Name)

	resp, env = ts.do(http.MethodPut, "/api/products/"+product.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, apperr.ValidationErrorCode, env.Code)

	resp, _ = ts.do(http.MethodPut, "/api/products/"+product.ID, map[string]any{"isActive": true})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp, _ = ts.do(http.MethodPut, "/api/products/"+product.ID, map[string]any{"name": "GIZMO"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestDeleteProduct(t *testing.T) {
	ts := newTestServer(t, "")
	product := ts.createProduct(widgetBody())

	resp, env := ts.do(http.MethodDelete, "/api/products/"+product.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var deleted model.Product
	require.NoError(t, json.Unmarshal(env.Data, &deleted))
	assert.False(t, deleted.IsActive)

	resp, env = ts.do(http.MethodDelete, "/api/products/"+product.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, apperr.ProductInactiveCode, env.Code)

	resp, _ = ts.do(http.MethodGet, "/api/products/"+product.ID, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, _ = ts.do(http.MethodDelete, "/api/products/"+product.ID+"/permanent", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, _ = ts.do(http.MethodGet, "/api/products/"+product.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAdjustStock(t *testing.T) {
	ts := newTestServer(t, "")
	product := ts.createProduct(widgetBody())

	resp, env := ts.do(http.MethodPatch, "/api/products/"+product.ID+"/stock", map[string]any{"quantity": -2})
	require.Equal(t, http.StatusOK, resp.Code)
	var adjusted model.Product
	require.NoError(t, json.Unmarshal(env.Data, &adjusted))
	assert.Equal(t, 3, adjusted.Stock)

	resp, env = ts.do(http.MethodPatch, "/api/products/"+product.ID+"/stock", map[string]any{"quantity": -4})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, apperr.InsufficientStockCode, env.Code)

	resp, _ = ts.do(http.MethodPatch, "/api/products/"+product.ID+"/stock", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp, _ = ts.do(http.MethodPatch, "/api/products/"+product.ID+"/stock", `{"quantity": 1.5}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp, env = ts.do(http.MethodGet, "/api/products/"+product.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(env.Data, &adjusted))
	assert.Equal(t, 3, adjusted.Stock)
}

func TestAdjustStock_OutOfRangeQuantity(t *testing.T) {
	ts := newTestServer(t, "")
	product := ts.createProduct(widgetBody())

	for _, body := range []string{
		`{"quantity": -9223372036854775808}`,
		`{"quantity": -2147483648}`,
		`{"quantity": 2147483648}`,
	} {
		t.Run(body, func(t *testing.T) {
			resp, env := ts.do(http.MethodPatch, "/api/products/"+product.ID+"/stock", body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, apperr.ValidationErrorCode, env.Code)
		})
	}

	resp, env := ts.do(http.MethodPatch, "/api/products/"+product.ID+"/stock", map[string]any{"quantity": 2147483647})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, apperr.StockLimitCode, env.Code)

	resp, env = ts.do(http.MethodGet, "/api/products/"+product.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var current model.Product
	require.NoError(t, json.Unmarshal(env.Data, &current))
	assert.Equal(t, 5, current.Stock)
}

func TestListProducts(t *testing.T) {
	ts := newTestServer(t, "")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 15 {
		ts.store.Seed(model.Product{
			Name:      fmt.Sprintf("Item %02d", i),
			Category:  model.CategoryBooks,
			Price:     float64(i + 1),
			IsActive:  true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	resp, env := ts.do(http.MethodGet, "/api/products?page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var page service.ListProductsResult
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Products, 5)
	assert.Equal(t, service.Pagination{Page: 2, Limit: 10, Total: 15, TotalPages: 2, HasMore: false}, page.Pagination)
	assert.Equal(t, "Item 04", page.Products[0].Name)

	resp, env = ts.do(http.MethodGet, "/api/products?minPrice=3&maxPrice=5&sortBy=price&sortOrder=asc", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Products, 3)
	assert.Equal(t, 3.0, page.Products[0].Price)

	resp, env = ts.do(http.MethodGet, "/api/products?search=item%2014", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Products, 1)
}

func TestListProducts_InvalidQuery(t *testing.T) {
	ts := newTestServer(t, "")

	for _, query := range []string{
		"page=0",
		"page=1000001",
		"page=92233720368547760&limit=100",
		"limit=101",
		"page=abc",
		"sortBy=color",
		"sortOrder=up",
		"category=weapons",
		"isActive=maybe",
		"minPrice=-1",
		"minPrice=10&maxPrice=5",
	} {
		t.Run(query, func(t *testing.T) {
			resp, env := ts.do(http.MethodGet, "/api/products?"+query, nil)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, apperr.ValidationErrorCode, env.Code)
		})
	}
}

func TestListByCategoryAndLowStock(t *testing.T) {
	ts := newTestServer(t, "")
	ts.store.Seed(
		model.Product{Name: "Ball", Category: model.CategorySports, Stock: 3, Price: 1, IsActive: true},
		model.Product{Name: "Bat", Category: model.CategorySports, Stock: 30, Price: 1, IsActive: true},
	)

	resp, env := ts.do(http.MethodGet, "/api/products/category/sports", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var products []model.Product
	require.NoError(t, json.Unmarshal(env.Data, &products))
	assert.Len(t, products, 2)

	resp, _ = ts.do(http.MethodGet, "/api/products/category/weapons", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp, env = ts.do(http.MethodGet, "/api/products/low-stock", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(env.Data, &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Ball", products[0].Name)

	resp, env = ts.do(http.MethodGet, "/api/products/low-stock?threshold=50", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(env.Data, &products))
	assert.Len(t, products, 2)

	resp, _ = ts.do(http.MethodGet, "/api/products/low-stock?threshold=-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetStatistics(t *testing.T) {
	ts := newTestServer(t, "")
	ts.store.Seed(
		model.Product{Name: "Ball", Category: model.CategorySports, Stock: 3, Price: 2.5, IsActive: true},
		model.Product{Name: "Old", Category: model.CategoryToys, Stock: 1, Price: 1, IsActive: false},
	)

	resp, env := ts.do(http.MethodGet, "/api/products/statistics", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var stats model.ProductStatistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 2, stats.TotalProducts)
	assert.Equal(t, 1, stats.ActiveProducts)
	assert.Equal(t, 1, stats.InactiveProducts)
	assert.Equal(t, 1, stats.LowStockProducts)
	assert.InDelta(t, 8.5, stats.TotalInventoryValue, 1e-9)
	assert.Len(t, stats.CategoryCounts, len(model.Categories))
}

func TestRoutingErrors(t *testing.T) {
	ts := newTestServer(t, "")

	resp, env := ts.do(http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, apperr.RouteNotFoundCode, env.Code)

	resp, env = ts.do(http.MethodPost, "/api/products/statistics", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Equal(t, apperr.MethodNotAllowedCode, env.Code)
}

func TestErrorStackOnlyInDevelopment(t *testing.T) {
	prod := newTestServer(t, "production")
	_, env := prod.do(http.MethodGet, "/api/products/not-an-id", nil)
	assert.Empty(t, env.Stack)

	dev := newTestServer(t, config.EnvDevelopment)
	_, env = dev.do(http.MethodGet, "/api/products/not-an-id", nil)
	assert.NotEmpty(t, env.Stack)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")

	resp, env := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, env.Success)

	ts.store.Unhealthy = true
	resp, env = ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, apperr.StoreUnavailableCode, env.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, "")
	ts.do(http.MethodGet, "/health", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	ts.handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRateLimit_SkipsHealthAndMetrics(t *testing.T) {
	store := repositorytest.NewMemoryStore()
	svc, err := New(
		config.HTTP{RateLimitRequests: 1, RateLimitWindow: time.Minute},
		config.App{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		service.NewProductService(store),
		store,
	)
	require.NoError(t, err)
	ts := &testServer{t: t, store: store, handler: svc.Handler()}

	resp, _ := ts.do(http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp, env := ts.do(http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, apperr.RateLimitedCode, env.Code)

	for range 3 {
		resp, _ = ts.do(http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, resp.Code)

		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
