package usecase

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartUsecase は /cart の業務ロジックです。
// 更新系は全部1つのTxで行い、最後に合計を明細から再計算します。
type CartUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewCartUsecase(tx repo.TransactionManager, log *zap.Logger) *CartUsecase {
	return &CartUsecase{tx: tx, log: log.Named("cart")}
}

// price は明細に保存した単価（追加時点の価格）を返します。
type CartItemView struct {
	ID         int64                `json:"id"`
	ProductID  int64                `json:"product_id"`
	Name       string               `json:"name"`
	SKU        string               `json:"sku"`
	Options    model.ProductOptions `json:"options"`
	UnitPrice  decimal.Decimal      `json:"unit_price"`
	Quantity   int64                `json:"quantity"`
	TotalPrice decimal.Decimal      `json:"total_price"`
	// 今の在庫・公開状態で注文できるか（目安）
	Available bool `json:"available"`
}

type CartView struct {
	ID         int64           `json:"id"`
	Items      []CartItemView  `json:"items"`
	TotalQty   int64           `json:"total_qty"`
	TotalItems int64           `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type AddCartItemInput struct {
	ProductID int64
	Quantity  int64
	Options   model.ProductOptions
}

// GetCart はカート取得（無ければ作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, p model.Principal) (CartView, error) {
	if p.UserID <= 0 {
		return CartView{}, NewUnauthorizedError()
	}

	var view CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, p.UserID)
		if err != nil {
			return NewInternalError(err)
		}
		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewInternalError(err)
		}
		view, err = buildCartView(ctx, r, cart, items)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return view, nil
}

// AddItem はカートに追加。同じ商品+オプションの明細があれば数量を足す。
// 再追加したときは単価を現在価格に更新する
func (u *CartUsecase) AddItem(ctx context.Context, p model.Principal, in AddCartItemInput) (CartView, error) {
	if p.UserID <= 0 {
		return CartView{}, NewUnauthorizedError()
	}
	if in.ProductID <= 0 {
		return CartView{}, NewValidationError("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartView{}, NewValidationError("quantity must be at least 1")
	}
	opts := in.Options.Normalize()

	var view CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 商品チェック（公開のみ）
		prod, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewValidationError("product %d does not exist", in.ProductID)
		}
		if err != nil {
			return NewInternalError(err)
		}
		if !prod.IsActive {
			return NewValidationError("product %d is not available", in.ProductID)
		}

		variant, err := resolveVariant(prod, opts)
		if err != nil {
			return err
		}
		var variantID *int64
		if variant != nil {
			variantID = &variant.ID
			// ラベルの表記ゆれを揃えてから同一判定する
			opts[model.OptionSize] = variant.Size
		}
		key := opts.Key()

		cart, err := r.Carts().GetOrCreateByUserID(ctx, p.UserID)
		if err != nil {
			return NewInternalError(err)
		}

		existing, err := r.CartItems().FindLine(ctx, cart.ID, prod.ID, key)
		found := err == nil
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return NewInternalError(err)
		}

		merged := in.Quantity
		if found {
			merged += existing.Quantity
		}

		// 在庫は予約しない。注文確定時にもう一度見る
		if prod.TrackStock {
			available := int64(0)
			size := ""
			if variant != nil {
				available = variant.StockQuantity
				size = variant.Size
			}
			if available < merged {
				return NewInsufficientStockError(prod.Name, size, merged, available)
			}
		}

		if found {
			existing.Quantity = merged
			existing.UnitPrice = prod.Price
			existing.SizeVariantID = variantID
			if err := r.CartItems().Update(ctx, existing); err != nil {
				return NewInternalError(err)
			}
		} else {
			_, err := r.CartItems().Create(ctx, model.CartItem{
				CartID:        cart.ID,
				ProductID:     prod.ID,
				SizeVariantID: variantID,
				Quantity:      merged,
				UnitPrice:     prod.Price,
				Options:       opts,
				OptionsKey:    key,
			})
			// 同じ行を同時に追加した側。txは使えないので再試行させる
			if errors.Is(err, repo.ErrConflict) {
				return NewConflictError("cart line was added concurrently, retry")
			}
			if err != nil {
				return NewInternalError(err)
			}
		}

		view, err = recalcCart(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return view, nil
}

// UpdateItem は数量変更。1未満なら明細を削除する。
func (u *CartUsecase) UpdateItem(ctx context.Context, p model.Principal, cartItemID int64, quantity int64) (CartView, error) {
	if p.UserID <= 0 {
		return CartView{}, NewUnauthorizedError()
	}
	if cartItemID <= 0 {
		return CartView{}, NewValidationError("invalid id")
	}

	var view CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.CartItems().FindByID(ctx, cartItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("cart item")
		}
		if err != nil {
			return NewInternalError(err)
		}
		if err := checkItemOwner(ctx, r, cartItemID, p.UserID); err != nil {
			return err
		}

		if quantity < 1 {
			if err := r.CartItems().DeleteByID(ctx, cartItemID); err != nil {
				return NewInternalError(err)
			}
		} else {
			if quantity > item.Quantity {
				if err := checkLineStock(ctx, r, item, quantity); err != nil {
					return err
				}
			}
			item.Quantity = quantity
			if err := r.CartItems().Update(ctx, item); err != nil {
				return NewInternalError(err)
			}
		}

		cart, err := r.Carts().FindByUserID(ctx, p.UserID)
		if err != nil {
			return NewInternalError(err)
		}
		view, err = recalcCart(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return view, nil
}

// RemoveItem は明細削除。存在しないIDはno-op（リトライしやすいように）
func (u *CartUsecase) RemoveItem(ctx context.Context, p model.Principal, cartItemID int64) (CartView, error) {
	if p.UserID <= 0 {
		return CartView{}, NewUnauthorizedError()
	}
	if cartItemID <= 0 {
		return CartView{}, NewValidationError("invalid id")
	}

	var view CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.CartItems().FindByID(ctx, cartItemID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			// 何もしない
		case err != nil:
			return NewInternalError(err)
		default:
			if err := checkItemOwner(ctx, r, cartItemID, p.UserID); err != nil {
				return err
			}
			if err := r.CartItems().DeleteByID(ctx, cartItemID); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return NewInternalError(err)
			}
		}

		cart, err := r.Carts().GetOrCreateByUserID(ctx, p.UserID)
		if err != nil {
			return NewInternalError(err)
		}
		view, err = recalcCart(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return view, nil
}

// ClearCart は明細を全部消す（何度呼んでも同じ）。
func (u *CartUsecase) ClearCart(ctx context.Context, p model.Principal) (CartView, error) {
	if p.UserID <= 0 {
		return CartView{}, NewUnauthorizedError()
	}

	var view CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, p.UserID)
		if err != nil {
			return NewInternalError(err)
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewInternalError(err)
		}
		view, err = recalcCart(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}

	u.log.Debug("cart cleared", zap.Int64("user_id", p.UserID))
	return view, nil
}

// resolveVariant はoptionsのsizeからバリアントを決める。
// サイズがない商品ならnil
func resolveVariant(p model.Product, opts model.ProductOptions) (*model.SizeVariant, error) {
	if !p.HasVariants() {
		return nil, nil
	}
	size := opts.Size()
	if size == "" {
		return nil, NewValidationError("size is required for %s", p.Name)
	}
	v, ok := p.VariantBySize(size)
	if !ok {
		return nil, NewValidationError("unknown size %q for %s", size, p.Name)
	}
	return &v, nil
}

func checkItemOwner(ctx context.Context, r repo.TxRepos, cartItemID, userID int64) error {
	owned, err := r.CartItems().IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return NewInternalError(err)
	}
	if !owned {
		return NewForbiddenError("cart item belongs to another user")
	}
	return nil
}

// checkLineStock は数量を増やすときの在庫チェック（目安）。
func checkLineStock(ctx context.Context, r repo.TxRepos, item model.CartItem, quantity int64) error {
	prod, err := r.Products().FindByID(ctx, item.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewValidationError("product %d does not exist", item.ProductID)
	}
	if err != nil {
		return NewInternalError(err)
	}
	if !prod.IsActive {
		return NewValidationError("product %d is not available", item.ProductID)
	}
	if !prod.TrackStock {
		return nil
	}
	if item.SizeVariantID == nil {
		return NewInsufficientStockError(prod.Name, "", quantity, 0)
	}

	v, err := r.Inventory().FindVariant(ctx, *item.SizeVariantID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewInsufficientStockError(prod.Name, item.Options.Size(), quantity, 0)
	}
	if err != nil {
		return NewInternalError(err)
	}
	if v.StockQuantity < quantity {
		return NewInsufficientStockError(prod.Name, v.Size, quantity, v.StockQuantity)
	}
	return nil
}

// recalcCart は明細全体から合計を出し直して保存する（差分更新はしない）。
func recalcCart(ctx context.Context, r repo.TxRepos, cart model.Cart) (CartView, error) {
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartView{}, NewInternalError(err)
	}

	totals := model.ComputeCartTotals(items)
	if err := r.Carts().UpdateTotals(ctx, cart.ID, totals); err != nil {
		return CartView{}, NewInternalError(err)
	}
	cart.ApplyTotals(totals)

	return buildCartView(ctx, r, cart, items)
}

// 明細に商品名などを付けてCartViewを作る。
func buildCartView(ctx context.Context, r repo.TxRepos, cart model.Cart, items []model.CartItem) (CartView, error) {
	view := CartView{
		ID:         cart.ID,
		Items:      make([]CartItemView, 0, len(items)),
		TotalQty:   cart.TotalQty,
		TotalItems: cart.TotalItems,
		Subtotal:   cart.Subtotal,
		GrandTotal: cart.GrandTotal,
	}

	for _, it := range items {
		iv := CartItemView{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Options:    it.Options,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			TotalPrice: it.TotalPrice(),
		}

		prod, err := r.Products().FindByID(ctx, it.ProductID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return CartView{}, NewInternalError(err)
		}
		if err == nil {
			iv.Name = prod.Name
			iv.SKU = prod.SKU
			iv.Available = lineAvailable(prod, it)
		}
		view.Items = append(view.Items, iv)
	}
	return view, nil
}

func lineAvailable(p model.Product, it model.CartItem) bool {
	if !p.IsActive {
		return false
	}
	if !p.TrackStock {
		return true
	}
	if it.SizeVariantID == nil {
		return false
	}
	for _, v := range p.SizeVariants {
		if v.ID == *it.SizeVariantID {
			return v.StockQuantity >= it.Quantity
		}
	}
	return false
}
