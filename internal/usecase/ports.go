package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

// 注文イベントの送信先（Kafkaなど）
type EventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent) error
}

// 注文まわりのメトリクス
type OrderMetrics interface {
	OrderCreated()
	OrderCancelled()
	StatusTransition(from, to model.OrderStatus)
	StockRejected()
	PaymentRecorded(status model.PaymentStatus)
}

type ShippingMetrics interface {
	ShippingUpstreamFailure(courier string)
}

// nopMetrics はメトリクス未設定時に使う。
type nopMetrics struct{}

func (nopMetrics) OrderCreated()                               {}
func (nopMetrics) OrderCancelled()                             {}
func (nopMetrics) StatusTransition(from, to model.OrderStatus) {}
func (nopMetrics) StockRejected()                              {}
func (nopMetrics) PaymentRecorded(status model.PaymentStatus)  {}
func (nopMetrics) ShippingUpstreamFailure(courier string)      {}
