package repository

import (
	"context"

	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

// txScope は1つのgorm txに乗ったrepo群。使うものだけその場で作る
type txScope struct {
	tx *gorm.DB
}

func (s txScope) Orders() repo.OrderRepository         { return NewOrderGormRepository(s.tx) }
func (s txScope) OrderItems() repo.OrderItemRepository { return NewOrderItemGormRepository(s.tx) }
func (s txScope) Carts() repo.CartRepository           { return NewCartGormRepository(s.tx) }
func (s txScope) CartItems() repo.CartItemRepository   { return NewCartItemGormRepository(s.tx) }
func (s txScope) Inventory() repo.InventoryRepository  { return NewInventoryGormRepository(s.tx) }
func (s txScope) Products() repo.ProductRepository     { return NewProductGormRepository(s.tx) }
func (s txScope) Addresses() repo.AddressRepository    { return NewAddressGormRepository(s.tx) }
func (s txScope) AuditLogs() repo.AuditLogRepository   { return NewAuditLogGormRepository(s.tx) }
func (s txScope) Users() repo.UserRepository           { return NewUserGormRepository(s.tx) }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// WithinTx はfnがerrorを返すかpanicするとrollbackする。
// 在庫の条件付きUPDATEと注文の作成が同じcommitに入る
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txScope{tx: tx})
	})
}
