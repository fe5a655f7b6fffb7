package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	// 初回アクセス時に空のカートを作る
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	UpdateTotals(ctx context.Context, cartID int64, totals model.CartTotals) error
	// 明細を全部消す（カート自体は残す）
	Clear(ctx context.Context, cartID int64) error
}
