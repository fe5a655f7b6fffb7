package model

import "time"

type OrderEventType string

const (
	OrderEventCreated         OrderEventType = "order.created"
	OrderEventStatusChanged   OrderEventType = "order.status_changed"
	OrderEventCancelled       OrderEventType = "order.cancelled"
	OrderEventPaymentRecorded OrderEventType = "order.payment_recorded"
	OrderEventDeleted         OrderEventType = "order.deleted"
)

// コミット後に外部へ流す注文イベント
type OrderEvent struct {
	Type          OrderEventType `json:"type"`
	OrderID       int64          `json:"order_id"`
	OrderNumber   string         `json:"order_number"`
	UserID        int64          `json:"user_id"`
	FromStatus    OrderStatus    `json:"from_status,omitempty"`
	Status        OrderStatus    `json:"status"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	TotalAmount   string         `json:"total_amount"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

func NewOrderEvent(t OrderEventType, o Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:          t,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		OccurredAt:    at,
	}
}
