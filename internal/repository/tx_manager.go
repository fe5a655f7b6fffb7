package repository

import "context"

// TxRepos は1つのDBトランザクションに束ねたrepo群。
// WithinTxのコールバックの外へ持ち出さない
type TxRepos interface {
	Carts() CartRepository
	CartItems() CartItemRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Inventory() InventoryRepository
	Products() ProductRepository
	Addresses() AddressRepository
	Users() UserRepository
	AuditLogs() AuditLogRepository
}

type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
