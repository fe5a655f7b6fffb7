package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page          int
	Limit         int
	Status        string
	PaymentStatus string
	UserID        *int64
	From          *time.Time
	To            *time.Time
}

// 状態遷移と同時に書き込む項目（nilは変更しない）
type OrderStatusPatch struct {
	TrackingNumber *string
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	CancelledAt    *time.Time
}

type PaymentUpdate struct {
	Status    model.PaymentStatus
	Reference *string
	PaidAt    *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// 現在のステータスがfromのときだけtoにする。更新できたらtrue
	TransitionStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, patch OrderStatusPatch) (bool, error)
	UpdatePayment(ctx context.Context, orderID int64, p PaymentUpdate) error
	Delete(ctx context.Context, orderID int64) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
