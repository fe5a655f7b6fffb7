package usecase_test

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestProductUsecase_ListPublicProducts(t *testing.T) {
	env := newTestEnv(t, "0")
	ctx := context.Background()

	env.seedProduct(t, "TEE-1", "1500.00", true, map[string]int64{"M": 1})
	env.seedProduct(t, "TEE-2", "3000.00", false, nil)
	env.seedProduct(t, "MUG-1", "800.00", false, nil)
	hidden, err := env.products.AdminCreateProduct(ctx, admin, usecase.AdminProductInput{
		Name: "Hidden Tee", SKU: "TEE-X", Price: dec("100"), IsActive: false,
	})
	require.NoError(t, err)

	out, err := env.products.ListPublicProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 20, Sort: "price_asc"})
	require.NoError(t, err)
	require.Equal(t, int64(3), out.Total)
	assert.Equal(t, "MUG-1", out.Items[0].SKU)
	assert.Equal(t, "TEE-2", out.Items[2].SKU)

	// 名前の部分一致（大文字小文字を区別しない）
	out, err = env.products.ListPublicProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 20, Q: "product tee"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)

	out, err = env.products.ListPublicProducts(ctx, usecase.ListProductsInput{
		Page: 1, Limit: 20, MinPrice: decPtr("1000"), MaxPrice: decPtr("2000"),
	})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "TEE-1", out.Items[0].SKU)
	require.Len(t, out.Items[0].SizeVariants, 1)

	_, err = env.products.GetProductDetail(ctx, hidden.ID)
	requireKind(t, err, usecase.KindNotFound)
}

func TestProductUsecase_ListPublicProducts_InvalidInput(t *testing.T) {
	env := newTestEnv(t, "0")
	ctx := context.Background()

	tests := []struct {
		name string
		in   usecase.ListProductsInput
		want string
	}{
		{"page", usecase.ListProductsInput{Page: 0, Limit: 20}, "invalid page"},
		{"limit", usecase.ListProductsInput{Page: 1, Limit: 101}, "invalid limit"},
		{"sort", usecase.ListProductsInput{Page: 1, Limit: 20, Sort: "popular"}, "invalid sort"},
		{"price range", usecase.ListProductsInput{Page: 1, Limit: 20, MinPrice: decPtr("10"), MaxPrice: decPtr("5")}, "min_price must be <= max_price"},
		{"negative", usecase.ListProductsInput{Page: 1, Limit: 20, MinPrice: decPtr("-1")}, "min_price must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.products.ListPublicProducts(ctx, tt.in)
			assertErrContains(t, err, tt.want)
		})
	}
}

func TestProductUsecase_AdminCreateProduct(t *testing.T) {
	env := newTestEnv(t, "0")
	ctx := context.Background()

	cat, err := env.products.AdminCreateCategory(ctx, admin, usecase.AdminCategoryInput{Name: "Shirts", Slug: "Shirts", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "shirts", cat.Slug)

	in := usecase.AdminProductInput{
		CategoryID:  &cat.ID,
		Name:        "Oxford Shirt",
		SKU:         "OX-1",
		Price:       dec("4900.50"),
		WeightGrams: 300,
		TrackStock:  true,
		IsActive:    true,
		Variants:    []usecase.VariantInput{{Size: "M", StockQuantity: 3}, {Size: "L", StockQuantity: 0}},
	}
	p, err := env.products.AdminCreateProduct(ctx, admin, in)
	require.NoError(t, err)
	assert.Len(t, p.SizeVariants, 2)

	_, err = env.products.AdminCreateProduct(ctx, admin, in)
	requireKind(t, err, usecase.KindConflict)

	_, err = env.products.AdminCreateProduct(ctx, buyer, in)
	requireKind(t, err, usecase.KindForbidden)

	bad := in
	bad.SKU = "OX-2"
	bad.Price = dec("1.005")
	_, err = env.products.AdminCreateProduct(ctx, admin, bad)
	assertErrContains(t, err, "2 decimal places")

	bad = in
	bad.SKU = "OX-3"
	bad.Variants = []usecase.VariantInput{{Size: "M"}, {Size: "m"}}
	_, err = env.products.AdminCreateProduct(ctx, admin, bad)
	assertErrContains(t, err, "duplicate size")

	bad = in
	bad.SKU = "OX-4"
	bad.Variants = nil
	_, err = env.products.AdminCreateProduct(ctx, admin, bad)
	requireKind(t, err, usecase.KindValidation)

	missing := int64(999)
	bad = in
	bad.SKU = "OX-5"
	bad.CategoryID = &missing
	_, err = env.products.AdminCreateProduct(ctx, admin, bad)
	assertErrContains(t, err, "category 999 does not exist")

	_, err = env.products.AdminCreateCategory(ctx, admin, usecase.AdminCategoryInput{Name: "Dup", Slug: "shirts"})
	requireKind(t, err, usecase.KindConflict)

	cats, err := env.products.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestProductUsecase_AdminUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t, "0")
	ctx := context.Background()
	p := env.seedProduct(t, "UPD", "100.00", false, nil)

	err := env.products.AdminUpdateProduct(ctx, admin, p.ID, usecase.AdminProductInput{
		Name: "Renamed", SKU: "UPD", Price: dec("120"), IsActive: true,
	})
	require.NoError(t, err)

	got, err := env.products.GetProductDetail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.Price.Equal(dec("120")))

	err = env.products.AdminUpdateProduct(ctx, admin, 9999, usecase.AdminProductInput{Name: "x", SKU: "x", Price: dec("1")})
	requireKind(t, err, usecase.KindNotFound)

	require.NoError(t, env.products.AdminDeleteProduct(ctx, admin, p.ID))
	_, err = env.products.GetProductDetail(ctx, p.ID)
	requireKind(t, err, usecase.KindNotFound)
	requireKind(t, env.products.AdminDeleteProduct(ctx, admin, p.ID), usecase.KindNotFound)
}

func TestProductUsecase_AdminSetVariantStock(t *testing.T) {
	env := newTestEnv(t, "0")
	ctx := context.Background()
	p := env.seedProduct(t, "STK", "100.00", true, map[string]int64{"M": 4})
	vID := env.variantID(t, p, "M")

	_, err := env.products.AdminSetVariantStock(ctx, admin, vID, -1, "oops")
	requireKind(t, err, usecase.KindValidation)
	_, err = env.products.AdminSetVariantStock(ctx, admin, vID, 10, " ")
	assertErrContains(t, err, "reason required")
	_, err = env.products.AdminSetVariantStock(ctx, admin, 9999, 10, "restock")
	requireKind(t, err, usecase.KindNotFound)

	v, err := env.products.AdminSetVariantStock(ctx, admin, vID, 10, "restock")
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.StockQuantity)
	assert.Equal(t, int64(10), env.stockOf(t, vID))

	var adj []model.InventoryAdjustment
	require.NoError(t, env.db.Find(&adj).Error)
	require.Len(t, adj, 1)
	assert.Equal(t, int64(6), adj[0].Delta)

	var logs []model.AuditLog
	require.NoError(t, env.db.Where("action = ?", model.AuditActionUpdateStock).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, `{"stock_quantity":4}`, logs[0].BeforeJSON)
}
