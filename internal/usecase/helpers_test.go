package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// =====================
// 固定の部品
// =====================

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%08x-1111-4222-8333-444444444444", g.n)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []model.OrderEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.OrderEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type countingMetrics struct {
	mu          sync.Mutex
	created     int
	cancelled   int
	rejected    int
	transitions map[string]int
	payments    map[model.PaymentStatus]int
	shipping    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		transitions: map[string]int{},
		payments:    map[model.PaymentStatus]int{},
		shipping:    map[string]int{},
	}
}

func (m *countingMetrics) OrderCreated()   { m.mu.Lock(); m.created++; m.mu.Unlock() }
func (m *countingMetrics) OrderCancelled() { m.mu.Lock(); m.cancelled++; m.mu.Unlock() }
func (m *countingMetrics) StockRejected()  { m.mu.Lock(); m.rejected++; m.mu.Unlock() }

func (m *countingMetrics) StatusTransition(from, to model.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[string(from)+"->"+string(to)]++
}

func (m *countingMetrics) PaymentRecorded(status model.PaymentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[status]++
}

func (m *countingMetrics) ShippingUpstreamFailure(courier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shipping[courier]++
}

// =====================
// SQLite上の実リポジトリ
// =====================

type testEnv struct {
	db      *gorm.DB
	tx      *infraRepo.TxManagerGorm
	clock   *fixedClock
	events  *recordingPublisher
	metrics *countingMetrics

	cart     *usecase.CartUsecase
	orders   *usecase.OrderUsecase
	admin    *usecase.AdminOrderUsecase
	payments *usecase.PaymentUsecase
	products *usecase.ProductUsecase
}

var (
	buyer   = model.Principal{UserID: 1, Role: model.RoleUser}
	other   = model.Principal{UserID: 2, Role: model.RoleUser}
	admin   = model.Principal{UserID: 99, Role: model.RoleAdmin}
	tokyo   = &usecase.AddressInput{Name: "Taro", PostalCode: "100-0001", Prefecture: "Tokyo", City: "Chiyoda", Line1: "1-1"}
	testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
)

const callbackToken = "cb-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig(zap.NewNop(), "error"))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// :memory: は接続ごとに別DBになるので1本に固定する
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

func newTestEnv(t *testing.T, taxRate string) *testEnv {
	t.Helper()

	gdb := newTestDB(t)
	env := &testEnv{
		db:      gdb,
		tx:      infraRepo.NewTxManagerGorm(gdb),
		clock:   &fixedClock{now: testNow},
		events:  &recordingPublisher{},
		metrics: newCountingMetrics(),
	}
	log := zap.NewNop()

	env.cart = usecase.NewCartUsecase(env.tx, log)
	env.orders = usecase.NewOrderUsecase(env.tx, decimal.RequireFromString(taxRate), &seqIDGen{}, env.clock, env.events, env.metrics, log)
	env.admin = usecase.NewAdminOrderUsecase(env.tx, env.clock, env.events, env.metrics, log)
	env.payments = usecase.NewPaymentUsecase(env.tx, env.clock, env.events, env.metrics, callbackToken, log)
	env.products = usecase.NewProductUsecase(env.tx, infraRepo.NewProductGormRepository(gdb), infraRepo.NewCategoryGormRepository(gdb))
	return env
}

// seedProduct はサイズ付き（sizesが空ならサイズなし）の公開商品を作る。
func (env *testEnv) seedProduct(t *testing.T, sku, price string, trackStock bool, sizes map[string]int64) model.Product {
	t.Helper()

	p := model.Product{
		Name:       "Product " + sku,
		SKU:        sku,
		Price:      decimal.RequireFromString(price),
		TrackStock: trackStock,
		IsActive:   true,
	}
	for size, stock := range sizes {
		p.SizeVariants = append(p.SizeVariants, model.SizeVariant{Size: size, StockQuantity: stock})
	}

	created, err := infraRepo.NewProductGormRepository(env.db).Create(context.Background(), p)
	require.NoError(t, err)

	got, err := infraRepo.NewProductGormRepository(env.db).FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	return got
}

func (env *testEnv) variantID(t *testing.T, p model.Product, size string) int64 {
	t.Helper()
	v, ok := p.VariantBySize(size)
	require.True(t, ok, "size %s not found", size)
	return v.ID
}

func (env *testEnv) stockOf(t *testing.T, variantID int64) int64 {
	t.Helper()
	v, err := infraRepo.NewInventoryGormRepository(env.db).FindVariant(context.Background(), variantID)
	require.NoError(t, err)
	return v.StockQuantity
}

func (env *testEnv) addToCart(t *testing.T, p model.Principal, productID, qty int64, size string) usecase.CartView {
	t.Helper()
	opts := model.ProductOptions{}
	if size != "" {
		opts[model.OptionSize] = size
	}
	view, err := env.cart.AddItem(context.Background(), p, usecase.AddCartItemInput{
		ProductID: productID,
		Quantity:  qty,
		Options:   opts,
	})
	require.NoError(t, err)
	return view
}

func (env *testEnv) checkout(p model.Principal, key string) (usecase.OrderOutput, error) {
	return env.orders.CreateOrder(context.Background(), p, usecase.CheckoutInput{
		ShippingAddress: tokyo,
		PaymentMethod:   "bank_transfer",
		IdempotencyKey:  key,
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireKind(t *testing.T, err error, kind usecase.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, usecase.KindOf(err), "err=%v", err)
}
