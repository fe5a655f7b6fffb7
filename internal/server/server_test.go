package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/event"
	"storefront/internal/infra/metrics"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/shipping"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	jwtSecret     = "server-test-secret"
	callbackToken = "cb-token"
)

type uuidGen struct{}

func (uuidGen) NewID() string { return uuid.NewString() }

type clock struct{}

func (clock) Now() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

type app struct {
	e       *echo.Echo
	db      *gorm.DB
	buyer   model.User
	other   model.User
	admin   model.User
	product model.Product
}

func newApp(t *testing.T) *app {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig(zap.NewNop(), "error"))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(gdb))

	ctx := context.Background()
	users := infraRepo.NewUserGormRepository(gdb)
	a := &app{db: gdb}
	for i, u := range []*model.User{&a.buyer, &a.other, &a.admin} {
		*u = model.User{Email: "user" + strconv.Itoa(i) + "@example.com", Role: model.RoleUser, IsActive: true}
		if u == &a.admin {
			u.Role = model.RoleAdmin
		}
		require.NoError(t, users.Create(ctx, u))
	}

	products := infraRepo.NewProductGormRepository(gdb)
	a.product, err = products.Create(ctx, model.Product{
		Name:         "Tee",
		SKU:          "TEE",
		Price:        decimal.RequireFromString("10000"),
		TrackStock:   true,
		IsActive:     true,
		SizeVariants: []model.SizeVariant{{Size: "M", StockQuantity: 5}},
	})
	require.NoError(t, err)

	log := zap.NewNop()
	txm := infraRepo.NewTxManagerGorm(gdb)
	m := metrics.New()
	events := event.NopPublisher{}

	productUC := usecase.NewProductUsecase(txm, products, infraRepo.NewCategoryGormRepository(gdb))
	orderUC := usecase.NewOrderUsecase(txm, decimal.Zero, uuidGen{}, clock{}, events, m, log)
	paymentUC := usecase.NewPaymentUsecase(txm, clock{}, events, m, callbackToken, log)
	shippingUC := usecase.NewShippingUsecase(
		shipping.NewRajaOngkirClient("http://127.0.0.1:1", "k", nil),
		shipping.NewMemoryCache(),
		usecase.ShippingUsecaseConfig{Couriers: []string{"jne"}, DefaultOrigin: "501", CacheTTL: time.Minute},
		m, log,
	)

	a.e = server.New(server.Deps{
		Log:           log,
		JWTSecret:     jwtSecret,
		Users:         users,
		Metrics:       m.Handler(),
		Health:        handler.NewHealthHandler(sqlDB),
		Products:      handler.NewProductHandler(productUC),
		Cart:          handler.NewCartHandler(usecase.NewCartUsecase(txm, log)),
		Orders:        handler.NewOrderHandler(orderUC),
		Addresses:     handler.NewAddressHandler(usecase.NewAddressUsecase(txm)),
		Shipping:      handler.NewShippingHandler(shippingUC),
		Payments:      handler.NewPaymentHandler(paymentUC),
		AdminOrders:   handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(txm, clock{}, events, m, log), orderUC, paymentUC),
		AdminProducts: handler.NewAdminProductHandler(productUC),
		AdminUsers:    handler.NewAdminUserHandler(usecase.NewAdminUserUsecase(txm, log), usecase.NewAuditLogUsecase(txm)),
	})
	return a
}

func tokenFor(t *testing.T, u model.User) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.ID,
		"role": string(u.Role),
		"tv":   u.TokenVersion,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

func (a *app) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

type orderBody struct {
	ID            int64            `json:"id"`
	OrderNumber   string           `json:"order_number"`
	Status        string           `json:"status"`
	PaymentStatus *string          `json:"payment_status"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	Items         []map[string]any `json:"items"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var shippingAddress = map[string]any{
	"name":        "Taro",
	"postal_code": "100-0001",
	"prefecture":  "Tokyo",
	"city":        "Chiyoda",
	"line1":       "1-1",
}

func TestServer_Healthz(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestServer_RequiresToken(t *testing.T) {
	a := newApp(t)

	for _, path := range []string{"/cart", "/orders", "/addresses", "/admin/orders"} {
		rec := a.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestServer_AdminOnly(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/admin/orders", tokenFor(t, a.buyer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodGet, "/admin/orders", tokenFor(t, a.admin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ForceLogoutInvalidatesToken(t *testing.T) {
	a := newApp(t)
	buyerToken := tokenFor(t, a.buyer)

	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/cart", buyerToken, nil).Code)

	rec := a.do(t, http.MethodPost, "/admin/users/"+strconv.FormatInt(a.buyer.ID, 10)+"/force-logout", tokenFor(t, a.admin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/cart", buyerToken, nil).Code)

	rec = a.do(t, http.MethodGet, "/admin/audit-logs?action=force_logout&resource_type=user", tokenFor(t, a.admin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logs := decode[struct {
		Items []model.AuditLog `json:"items"`
		Total int64            `json:"total"`
	}](t, rec)
	require.Equal(t, int64(1), logs.Total)
	assert.Equal(t, a.buyer.ID, logs.Items[0].ResourceID)
	assert.Equal(t, `{"token_version":1}`, logs.Items[0].AfterJSON)

	rec = a.do(t, http.MethodGet, "/admin/audit-logs?action=nope", tokenFor(t, a.admin), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CheckoutLifecycle(t *testing.T) {
	a := newApp(t)
	buyerToken := tokenFor(t, a.buyer)
	adminToken := tokenFor(t, a.admin)

	// 入力エラーは400
	rec := a.do(t, http.MethodPost, "/cart", buyerToken, map[string]any{"product_id": a.product.ID, "quantity": 0, "size": "M"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[errorBody](t, rec).Code)

	// 在庫超過は409
	rec = a.do(t, http.MethodPost, "/cart", buyerToken, map[string]any{"product_id": a.product.ID, "quantity": 6, "size": "M"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", decode[errorBody](t, rec).Code)

	rec = a.do(t, http.MethodPost, "/cart", buyerToken, map[string]any{"product_id": a.product.ID, "quantity": 2, "size": "m"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// 空カートの人は注文できない
	rec = a.do(t, http.MethodPost, "/orders", tokenFor(t, a.other), map[string]any{"shipping_address": shippingAddress, "payment_method": "bank_transfer"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_cart", decode[errorBody](t, rec).Code)

	rec = a.do(t, http.MethodPost, "/orders", buyerToken, map[string]any{"shipping_address": shippingAddress, "payment_method": "bank_transfer"}, "X-Idempotency-Key", "checkout-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[orderBody](t, rec)
	assert.Equal(t, "pending", order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(20000)))
	assert.Len(t, order.Items, 1)
	orderPath := "/orders/" + strconv.FormatInt(order.ID, 10)

	// 同じキーで再送しても同じ注文
	rec = a.do(t, http.MethodPost, "/orders", buyerToken, map[string]any{"shipping_address": shippingAddress, "payment_method": "bank_transfer"}, "X-Idempotency-Key", "checkout-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, order.ID, decode[orderBody](t, rec).ID)

	// 他人の注文は見えない
	rec = a.do(t, http.MethodGet, orderPath, tokenFor(t, a.other), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPut, "/admin"+orderPath+"/status", adminToken, map[string]any{"status": "shipped"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[errorBody](t, rec).Code)

	rec = a.do(t, http.MethodPut, "/admin"+orderPath+"/status", adminToken, map[string]any{"status": "processing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "processing", decode[orderBody](t, rec).Status)

	// 遷移できる状態なら追跡番号の欠落は400
	rec = a.do(t, http.MethodPut, "/admin"+orderPath+"/status", adminToken, map[string]any{"status": "shipped"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[errorBody](t, rec).Code)

	// コールバックは共有トークンが必要
	cb := map[string]any{"order_number": order.OrderNumber, "payment_status": "paid", "payment_reference": "TX-1"}
	rec = a.do(t, http.MethodPost, "/payments/callback", "", cb)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/payments/callback", "", cb, "X-Callback-Token", callbackToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[orderBody](t, rec)
	require.NotNil(t, paid.PaymentStatus)
	assert.Equal(t, "paid", *paid.PaymentStatus)

	rec = a.do(t, http.MethodPost, orderPath+"/cancel", buyerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[orderBody](t, rec).Status)

	rec = a.do(t, http.MethodPost, orderPath+"/cancel", buyerToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// キャンセルで在庫が戻っている
	var v model.SizeVariant
	require.NoError(t, a.db.First(&v, "product_id = ?", a.product.ID).Error)
	assert.Equal(t, int64(5), v.StockQuantity)

	rec = a.do(t, http.MethodDelete, orderPath, buyerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_orders_created_total 1")
	assert.Contains(t, rec.Body.String(), "storefront_orders_cancelled_total 1")
}

func TestServer_PublicProducts(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/products?q=tee", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"TEE"`)

	rec = a.do(t, http.MethodGet, "/products?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
