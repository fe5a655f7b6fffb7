package usecase

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// reserveStock は注文明細1行分の在庫を条件付きで減らす。
// 在庫を見ない商品は何もしない。足りなければInsufficientStock
func reserveStock(ctx context.Context, r repo.TxRepos, p model.Product, ci model.CartItem) error {
	if !p.TrackStock {
		return nil
	}
	if ci.SizeVariantID == nil {
		return NewValidationError("size is required for %s", p.Name)
	}

	ok, err := r.Inventory().DecreaseStockIfEnough(ctx, *ci.SizeVariantID, ci.Quantity)
	if err != nil {
		return NewInternalError(err)
	}
	if ok {
		return nil
	}

	// エラーメッセージ用に現在の在庫を読む
	v, err := r.Inventory().FindVariant(ctx, *ci.SizeVariantID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewInsufficientStockError(p.Name, ci.Options.Size(), ci.Quantity, 0)
	}
	if err != nil {
		return NewInternalError(err)
	}
	return NewInsufficientStockError(p.Name, v.Size, ci.Quantity, v.StockQuantity)
}

// restoreStock は注文明細の数量をバリアントに戻す（キャンセル時）。
// バリアントが削除済みの行は戻し先がないのでスキップする
func restoreStock(ctx context.Context, r repo.TxRepos, log *zap.Logger, orderID int64, items []model.OrderItem) error {
	for _, it := range items {
		if it.SizeVariantID == nil {
			continue
		}
		ok, err := r.Inventory().IncreaseStock(ctx, *it.SizeVariantID, it.Quantity)
		if err != nil {
			return NewInternalError(err)
		}
		if !ok {
			log.Warn("size variant gone, stock not restored",
				zap.Int64("order_id", orderID),
				zap.Int64("size_variant_id", *it.SizeVariantID),
				zap.Int64("quantity", it.Quantity),
			)
		}
	}
	return nil
}

// cancelInTx は状態をcancelledにして在庫を戻す。両方同じTxで行う。
// CASで遷移するので、同時にキャンセルされても在庫戻しは1回だけ
func cancelInTx(ctx context.Context, r repo.TxRepos, log *zap.Logger, o model.Order, now time.Time) (model.Order, error) {
	if !o.Status.IsCancellable() {
		return model.Order{}, NewInvalidTransitionError(string(o.Status), string(model.OrderStatusCancelled))
	}

	ok, err := r.Orders().TransitionStatus(ctx, o.ID, o.Status, model.OrderStatusCancelled, repo.OrderStatusPatch{
		CancelledAt: &now,
	})
	if err != nil {
		return model.Order{}, NewInternalError(err)
	}
	if !ok {
		// 読んだ後に別リクエストが状態を変えた
		return model.Order{}, NewInvalidTransitionError(string(o.Status), string(model.OrderStatusCancelled))
	}

	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return model.Order{}, NewInternalError(err)
	}
	if err := restoreStock(ctx, r, log, o.ID, items); err != nil {
		return model.Order{}, err
	}

	o.Status = model.OrderStatusCancelled
	o.CancelledAt = &now
	o.Items = items
	return o, nil
}
