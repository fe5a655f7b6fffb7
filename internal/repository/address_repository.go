package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 既定住所の付け替えは呼び出し側がWithinTxの中で行う
type AddressRepository interface {
	Create(ctx context.Context, address model.Address) (model.Address, error)
	// 既定住所が先頭、あとは作成順
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
	Update(ctx context.Context, address model.Address) error
	Delete(ctx context.Context, addressID int64) error

	ClearDefault(ctx context.Context, userID int64) error
	MarkDefault(ctx context.Context, addressID int64) error
}
