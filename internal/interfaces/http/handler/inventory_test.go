package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manuerp/backend/internal/application/apptest"
	"github.com/manuerp/backend/internal/application/catalog"
	appinv "github.com/manuerp/backend/internal/application/inventory"
	apporder "github.com/manuerp/backend/internal/application/order"
	appprod "github.com/manuerp/backend/internal/application/production"
	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/infrastructure/cache"
	"github.com/manuerp/backend/internal/infrastructure/config"
	"github.com/manuerp/backend/internal/interfaces/http/handler"
	"github.com/manuerp/backend/internal/interfaces/http/middleware"
	"github.com/manuerp/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	engine *gin.Engine
	repos  *apptest.Repos
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := apptest.NewRepos()
	scope := &apptest.Scope{R: repos}
	log := zap.NewNop()
	policy := appinv.DefaultPolicy()

	ledger := appinv.NewLedgerService(scope, nil, log, policy)
	reservations := appinv.NewReservationService(scope, nil, log, policy)
	resolver := appinv.NewResolverService(scope)

	handlers := router.Handlers{
		System:     handler.NewSystemHandler(nil),
		Catalog:    handler.NewCatalogHandler(catalog.NewService(scope, log)),
		Inventory:  handler.NewInventoryHandler(ledger, resolver),
		Orders:     handler.NewOrderHandler(apporder.NewService(scope, ledger, reservations, nil, log)),
		Production: handler.NewProductionHandler(appprod.NewService(scope, ledger, nil, log)),
	}

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		App:         config.AppConfig{Env: "test"},
		Idempotency: config.IdempotencyConfig{Enabled: true, TTL: time.Hour},
	}

	return &testServer{
		engine: router.New(cfg, log, handlers, store),
		repos:  repos,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	envelope := decodeEnvelope(t, w)
	errInfo, ok := envelope["error"].(map[string]any)
	require.True(t, ok, "expected error in response: %s", w.Body.String())
	return errInfo["code"].(string)
}

func TestRecordInwardEndpoint(t *testing.T) {
	t.Run("records inward stock", func(t *testing.T) {
		srv := newTestServer(t)
		srv.repos.SeedMaster(1, "Bottle", product.ProductTypeFG, decimal.Zero)
		srv.repos.SeedSKU(10, 1, "Bottle 1L x12", decimal.NewFromInt(12))

		w := srv.do(t, http.MethodPost, "/api/v1/inventory/inward",
			`{"product_id":10,"quantity":"5","weight_kg":"60","inward_id":3}`, nil)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		envelope := decodeEnvelope(t, w)
		assert.Equal(t, true, envelope["success"])

		ref := product.FGRef(10)
		assert.True(t, srv.repos.StockAt(ref, inventory.FieldAvailable).Equal(decimal.NewFromInt(5)))
		assert.Len(t, srv.repos.LedgerRows, 1)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.do(t, http.MethodPost, "/api/v1/inventory/inward", `{"quantity":"5"}`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_INPUT", errorCode(t, w))
	})

	t.Run("unknown product maps to 404", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.do(t, http.MethodPost, "/api/v1/inventory/inward",
			`{"product_id":99,"quantity":"5","inward_id":3}`, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", errorCode(t, w))
	})
}

func TestDiscardEndpointInsufficientStock(t *testing.T) {
	srv := newTestServer(t)
	srv.repos.SeedMaster(1, "Bottle", product.ProductTypeFG, decimal.Zero)
	srv.repos.SeedSKU(10, 1, "Bottle 1L x12", decimal.NewFromInt(12))
	srv.repos.SetStock(product.FGRef(10), inventory.FieldAvailable, decimal.NewFromInt(2))

	w := srv.do(t, http.MethodPost, "/api/v1/inventory/discards",
		`{"product_id":10,"quantity":"5","discard_id":7}`, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, w))
	envelope := decodeEnvelope(t, w)
	message := envelope["error"].(map[string]any)["message"].(string)
	assert.Contains(t, message, "Bottle 1L x12")
	assert.Contains(t, message, "requested 5")
	assert.Contains(t, message, "available 2")
}

func TestIdempotencyReplay(t *testing.T) {
	srv := newTestServer(t)
	srv.repos.SeedMaster(1, "Bottle", product.ProductTypeFG, decimal.Zero)
	srv.repos.SeedSKU(10, 1, "Bottle 1L x12", decimal.NewFromInt(12))

	headers := map[string]string{middleware.IdempotencyKeyHeader: "retry-123"}
	body := `{"product_id":10,"quantity":"5","weight_kg":"60","inward_id":3}`

	first := srv.do(t, http.MethodPost, "/api/v1/inventory/inward", body, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(middleware.ReplayHeader))

	second := srv.do(t, http.MethodPost, "/api/v1/inventory/inward", body, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.ReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// the replay performed no additional stock or ledger writes
	assert.True(t, srv.repos.StockAt(product.FGRef(10), inventory.FieldAvailable).Equal(decimal.NewFromInt(5)))
	assert.Len(t, srv.repos.LedgerRows, 1)

	// a different key executes normally
	third := srv.do(t, http.MethodPost, "/api/v1/inventory/inward", body,
		map[string]string{middleware.IdempotencyKeyHeader: "retry-456"})
	require.Equal(t, http.StatusCreated, third.Code)
	assert.Len(t, srv.repos.LedgerRows, 2)
}

func TestResolveProductEndpoint(t *testing.T) {
	srv := newTestServer(t)
	// material master and SKU deliberately share id 7
	srv.repos.SeedMaster(7, "Resin", product.ProductTypeRM, decimal.Zero)
	srv.repos.SeedMaster(1, "Bottle", product.ProductTypeFG, decimal.Zero)
	srv.repos.SeedSKU(7, 1, "Bottle 1L x12", decimal.NewFromInt(12))

	w := srv.do(t, http.MethodGet, "/api/v1/products/7/type", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "RM", data["kind"])
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t)
	srv.repos.SeedMaster(1, "Bottle", product.ProductTypeFG, decimal.Zero)
	srv.repos.SeedSKU(10, 1, "Bottle 1L x12", decimal.NewFromInt(12))
	srv.repos.SetStock(product.FGRef(10), inventory.FieldAvailable, decimal.NewFromInt(100))

	created := srv.do(t, http.MethodPost, "/api/v1/orders",
		`{"customer_name":"Acme","lines":[{"product_id":10,"quantity":"6"}]}`, nil)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	data := decodeEnvelope(t, created)["data"].(map[string]any)
	orderID := int64(data["ID"].(float64))
	require.NotZero(t, orderID)

	for _, step := range []string{"accept", "schedule", "ready", "dispatch", "deliver"} {
		w := srv.do(t, http.MethodPost,
			"/api/v1/orders/"+strconvItoa(orderID)+"/"+step, "", nil)
		require.Equal(t, http.StatusOK, w.Code, "step %s: %s", step, w.Body.String())
	}

	assert.True(t, srv.repos.StockAt(product.FGRef(10), inventory.FieldAvailable).Equal(decimal.NewFromInt(94)))
	assert.True(t, srv.repos.StockAt(product.FGRef(10), inventory.FieldReserved).IsZero())

	// delivered orders cannot be cancelled
	w := srv.do(t, http.MethodPost, "/api/v1/orders/"+strconvItoa(orderID)+"/cancel", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))
}

func strconvItoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
