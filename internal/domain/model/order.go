package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// AllOrderStatuses は状態の一覧（テーブル駆動テスト用にも使う）。
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// 許可する遷移。ここにないものは全部NG（同じ状態への遷移も含む）。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range AllOrderStatuses {
		if v == st {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, to := range orderTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) IsCancellable() bool {
	return s.CanTransitionTo(OrderStatusCancelled)
}

// 支払い状態。配送ステータスとは独立して動く。
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusExpired  PaymentStatus = "expired"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	ps := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch ps {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired, PaymentStatusRefunded:
		return ps, true
	}
	return "", false
}

// 注文時点の住所のコピー。元の住所を編集しても過去の注文は変わらない。
type AddressSnapshot struct {
	Name       string `gorm:"type:varchar(255)" json:"name"`
	Phone      string `gorm:"type:varchar(30)" json:"phone"`
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`
	Prefecture string `gorm:"type:varchar(100)" json:"prefecture"`
	City       string `gorm:"type:varchar(255)" json:"city"`
	Line1      string `gorm:"type:varchar(255)" json:"line1"`
	Line2      string `gorm:"type:varchar(255)" json:"line2"`
}

func (a AddressSnapshot) IsZero() bool {
	return a == AddressSnapshot{}
}

type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string      `gorm:"type:varchar(40);not null;uniqueIndex" json:"order_number"`
	UserID      int64       `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency" json:"user_id"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	PaymentMethod    *string        `gorm:"type:varchar(50)" json:"payment_method"`
	PaymentStatus    *PaymentStatus `gorm:"type:varchar(20);index" json:"payment_status"`
	PaymentReference *string        `gorm:"type:varchar(255)" json:"payment_reference"`
	PaidAt           *time.Time     `json:"paid_at"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	ShippingAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`

	ShippingCourier string `gorm:"type:varchar(50)" json:"shipping_courier"`
	ShippingService string `gorm:"type:varchar(100)" json:"shipping_service"`

	ShippingAddress AddressSnapshot `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  AddressSnapshot `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`

	TrackingNumber *string    `gorm:"type:varchar(100)" json:"tracking_number"`
	ShippedAt      *time.Time `json:"shipped_at"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	CancelledAt    *time.Time `json:"cancelled_at"`
	Notes          string     `gorm:"type:text" json:"notes"`

	// 同じキーでの再送は同じ注文を返す（nullなら使わない）
	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idempotency" json:"-"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// ComputeTotal は total = subtotal - discount + tax + shipping。
func ComputeTotal(subtotal, discount, tax, shipping decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(tax).Add(shipping)
}
