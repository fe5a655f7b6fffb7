package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	IsActive  bool      `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  *int64          `gorm:"index" json:"category_id,omitempty"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	SKU         string          `gorm:"column:sku;type:varchar(100);not null;uniqueIndex" json:"sku"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	WeightGrams int64           `gorm:"not null" json:"weight_grams"`

	// falseなら在庫を見ない（受注生産など）
	TrackStock bool `gorm:"not null" json:"track_stock"`
	IsActive   bool `gorm:"not null;default:false" json:"is_active"`

	SizeVariants []SizeVariant `gorm:"foreignKey:ProductID" json:"size_variants"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// VariantBySize はサイズ名でバリアントを探す（大文字小文字は無視）。
func (p Product) VariantBySize(size string) (SizeVariant, bool) {
	size = strings.TrimSpace(size)
	for _, v := range p.SizeVariants {
		if strings.EqualFold(v.Size, size) {
			return v, true
		}
	}
	return SizeVariant{}, false
}

func (p Product) HasVariants() bool {
	return len(p.SizeVariants) > 0
}

// サイズごとの在庫
type SizeVariant struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID     int64     `gorm:"not null;uniqueIndex:idx_size_variants_product_size" json:"product_id"`
	Size          string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_size_variants_product_size" json:"size"`
	StockQuantity int64     `gorm:"not null;check:chk_size_variants_stock,stock_quantity >= 0" json:"stock_quantity"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
