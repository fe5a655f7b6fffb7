package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductOptions はサイズ・色などの選択肢。
// キーは小文字・前後空白なしに正規化して保存する。
type ProductOptions map[string]string

const OptionSize = "size"

// Normalize はキーを小文字化し、空の値を落とす。
func (o ProductOptions) Normalize() ProductOptions {
	out := ProductOptions{}
	for k, v := range o {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func (o ProductOptions) Size() string {
	return o[OptionSize]
}

// Key は同一明細判定用の正規化済み文字列（k=v をキー順に連結）。
func (o ProductOptions) Key() string {
	n := o.Normalize()
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.ToLower(n[k]))
	}
	return strings.Join(parts, ";")
}

func (o ProductOptions) Value() (driver.Value, error) {
	if o == nil {
		return "{}", nil
	}
	// encoding/json はmapのキーをソートして出力する
	b, err := json.Marshal(map[string]string(o))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (o *ProductOptions) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*o = ProductOptions{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("product options: unsupported type %T", src)
	}
	m := map[string]string{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
	}
	*o = m
	return nil
}

// カートの明細
// 追加時点の価格を保存する。同じ商品+オプションを再追加したときだけ現在価格に更新。
type CartItem struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID        int64           `gorm:"not null;index;uniqueIndex:idx_cart_items_line" json:"cart_id"`
	ProductID     int64           `gorm:"not null;index;uniqueIndex:idx_cart_items_line" json:"product_id"`
	SizeVariantID *int64          `gorm:"index" json:"size_variant_id,omitempty"`
	Quantity      int64           `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Options       ProductOptions  `gorm:"type:text;not null" json:"options"`
	OptionsKey    string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_cart_items_line" json:"-"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (i CartItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}
