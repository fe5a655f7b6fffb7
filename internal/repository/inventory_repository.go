package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 在庫はサイズバリアント単位で持つ。
type InventoryRepository interface {
	FindVariant(ctx context.Context, variantID int64) (model.SizeVariant, error)

	// 在庫の現在値を設定
	SetStock(ctx context.Context, variantID int64, newStock int64) error

	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）。バリアントが消えていたらfalse
	IncreaseStock(ctx context.Context, variantID int64, qty int64) (bool, error)

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
