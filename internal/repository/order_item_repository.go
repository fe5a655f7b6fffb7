package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 明細は注文と同じtxでしか書かない
type OrderItemRepository interface {
	CreateForOrder(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 一覧表示用。明細のない注文は空スライスで入る
	ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error)
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
