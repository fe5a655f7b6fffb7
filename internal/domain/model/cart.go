package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 1ユーザーにつきカートは1つ。
// 合計系のカラムは明細から毎回再計算する（直接更新しない）。
type Cart struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64           `gorm:"not null;uniqueIndex" json:"user_id"`
	TotalQty   int64           `gorm:"not null;default:0" json:"total_qty"`
	TotalItems int64           `gorm:"not null;default:0" json:"total_items"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	GrandTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"grand_total"`

	//ゲストカート用。ログインユーザーのカートでは使わない
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// CartTotals は明細から導出した合計値。
type CartTotals struct {
	TotalQty   int64
	TotalItems int64
	Subtotal   decimal.Decimal
	GrandTotal decimal.Decimal
}

// ComputeCartTotals は明細全体から合計を求める。
func ComputeCartTotals(items []CartItem) CartTotals {
	t := CartTotals{Subtotal: decimal.Zero}
	for _, it := range items {
		t.TotalQty += it.Quantity
		t.TotalItems++
		t.Subtotal = t.Subtotal.Add(it.TotalPrice())
	}
	//割引・送料はカートでは扱わない
	t.GrandTotal = t.Subtotal
	return t
}

func (c *Cart) ApplyTotals(t CartTotals) {
	c.TotalQty = t.TotalQty
	c.TotalItems = t.TotalItems
	c.Subtotal = t.Subtotal
	c.GrandTotal = t.GrandTotal
}
