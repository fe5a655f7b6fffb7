package model

import "github.com/shopspring/decimal"

// 配送業者が返す1サービス分の送料
type ShippingOption struct {
	CourierCode string          `json:"courier_code"`
	Service     string          `json:"service"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	ETD         string          `json:"etd"`
}
