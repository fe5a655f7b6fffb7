package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細は作成時のスナップショット。商品を編集・削除しても変わらない。
type OrderItem struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        int64           `gorm:"not null;index" json:"order_id"`
	ProductID      int64           `gorm:"not null;index" json:"product_id"`
	SizeVariantID  *int64          `gorm:"index" json:"size_variant_id,omitempty"`
	ProductName    string          `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductSKU     string          `gorm:"column:product_sku;type:varchar(100);not null" json:"product_sku"`
	ProductOptions ProductOptions  `gorm:"type:text;not null" json:"product_options"`
	Quantity       int64           `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
