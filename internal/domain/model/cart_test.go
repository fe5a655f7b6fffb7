package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductOptions_Key(t *testing.T) {
	a := ProductOptions{"Size": " M ", "color": "Navy"}
	b := ProductOptions{"color": "navy", "size": "m", "engraving": " "}

	assert.Equal(t, "color=navy;size=m", a.Key())
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "", ProductOptions(nil).Key())
}

func TestProductOptions_Normalize(t *testing.T) {
	n := ProductOptions{" SIZE ": " L ", "note": ""}.Normalize()
	assert.Equal(t, ProductOptions{"size": "L"}, n)
	assert.Equal(t, "L", n.Size())
}

func TestProductOptions_ValueScan(t *testing.T) {
	v, err := ProductOptions(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	v, err = ProductOptions{"size": "M"}.Value()
	require.NoError(t, err)

	var fromString ProductOptions
	require.NoError(t, fromString.Scan(v))
	assert.Equal(t, ProductOptions{"size": "M"}, fromString)

	var fromBytes ProductOptions
	require.NoError(t, fromBytes.Scan([]byte(`{"color":"red"}`)))
	assert.Equal(t, "red", fromBytes["color"])

	var fromNil ProductOptions
	require.NoError(t, fromNil.Scan(nil))
	assert.NotNil(t, fromNil)

	var bad ProductOptions
	assert.Error(t, bad.Scan(42))
}

func TestComputeCartTotals(t *testing.T) {
	items := []CartItem{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("10000")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("5000")},
		{Quantity: 3, UnitPrice: decimal.RequireFromString("0.10")},
	}

	got := ComputeCartTotals(items)
	assert.Equal(t, int64(6), got.TotalQty)
	assert.Equal(t, int64(3), got.TotalItems)
	assert.Equal(t, "25000.30", got.Subtotal.StringFixed(2))
	assert.True(t, got.GrandTotal.Equal(got.Subtotal))

	empty := ComputeCartTotals(nil)
	assert.True(t, empty.Subtotal.IsZero())
	assert.Equal(t, int64(0), empty.TotalItems)

	var c Cart
	c.ApplyTotals(got)
	assert.Equal(t, got.TotalQty, c.TotalQty)
}

func TestProduct_VariantBySize(t *testing.T) {
	p := Product{SizeVariants: []SizeVariant{{ID: 1, Size: "M"}, {ID: 2, Size: "XL"}}}

	v, ok := p.VariantBySize(" xl ")
	assert.True(t, ok)
	assert.Equal(t, int64(2), v.ID)

	_, ok = p.VariantBySize("S")
	assert.False(t, ok)
	assert.True(t, p.HasVariants())
	assert.False(t, Product{}.HasVariants())
}
