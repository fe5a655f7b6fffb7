package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderUsecase struct {
	tx      repo.TransactionManager
	taxRate decimal.Decimal
	idGen   IDGenerator
	clock   Clock
	events  EventPublisher
	metrics OrderMetrics
	log     *zap.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	taxRate decimal.Decimal,
	idGen IDGenerator,
	clock Clock,
	events EventPublisher,
	metrics OrderMetrics,
	log *zap.Logger,
) *OrderUsecase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &OrderUsecase{
		tx:      tx,
		taxRate: taxRate,
		idGen:   idGen,
		clock:   clock,
		events:  events,
		metrics: metrics,
		log:     log.Named("order"),
	}
}

// AddressInput は住所を直接指定するとき用。
type AddressInput struct {
	Name       string
	Phone      string
	PostalCode string
	Prefecture string
	City       string
	Line1      string
	Line2      string
}

func (a AddressInput) snapshot() model.AddressSnapshot {
	return model.AddressSnapshot{
		Name:       strings.TrimSpace(a.Name),
		Phone:      strings.TrimSpace(a.Phone),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Prefecture: strings.TrimSpace(a.Prefecture),
		City:       strings.TrimSpace(a.City),
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
	}
}

func (a AddressInput) validate(field string) error {
	s := a.snapshot()
	switch {
	case s.Name == "":
		return NewValidationError("%s.name is required", field)
	case s.PostalCode == "":
		return NewValidationError("%s.postal_code is required", field)
	case s.Prefecture == "":
		return NewValidationError("%s.prefecture is required", field)
	case s.City == "":
		return NewValidationError("%s.city is required", field)
	case s.Line1 == "":
		return NewValidationError("%s.line1 is required", field)
	}
	return nil
}

// 保存済み住所(AddressID)か、ShippingAddressのどちらかが必要
type CheckoutInput struct {
	AddressID       int64
	ShippingAddress *AddressInput
	BillingAddress  *AddressInput
	PaymentMethod   string
	ShippingAmount  decimal.Decimal
	ShippingCourier string
	ShippingService string
	Notes           string
	IdempotencyKey  string
}

type OrderItemOutput struct {
	ID            int64                `json:"id"`
	ProductID     int64                `json:"product_id"`
	SizeVariantID *int64               `json:"size_variant_id,omitempty"`
	Name          string               `json:"product_name"`
	SKU           string               `json:"product_sku"`
	Options       model.ProductOptions `json:"product_options"`
	Quantity      int64                `json:"quantity"`
	UnitPrice     decimal.Decimal      `json:"unit_price"`
	TotalPrice    decimal.Decimal      `json:"total_price"`
}

type OrderOutput struct {
	ID               int64                 `json:"id"`
	OrderNumber      string                `json:"order_number"`
	UserID           int64                 `json:"user_id"`
	Status           string                `json:"status"`
	PaymentMethod    *string               `json:"payment_method"`
	PaymentStatus    *model.PaymentStatus  `json:"payment_status"`
	PaymentReference *string               `json:"payment_reference"`
	PaidAt           *time.Time            `json:"paid_at"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	TaxAmount        decimal.Decimal       `json:"tax_amount"`
	ShippingAmount   decimal.Decimal       `json:"shipping_amount"`
	DiscountAmount   decimal.Decimal       `json:"discount_amount"`
	TotalAmount      decimal.Decimal       `json:"total_amount"`
	ShippingCourier  string                `json:"shipping_courier"`
	ShippingService  string                `json:"shipping_service"`
	ShippingAddress  model.AddressSnapshot `json:"shipping_address"`
	BillingAddress   model.AddressSnapshot `json:"billing_address"`
	TrackingNumber   *string               `json:"tracking_number"`
	ShippedAt        *time.Time            `json:"shipped_at"`
	DeliveredAt      *time.Time            `json:"delivered_at"`
	CancelledAt      *time.Time            `json:"cancelled_at"`
	Notes            string                `json:"notes"`
	CreatedAt        time.Time             `json:"created_at"`
	Items            []OrderItemOutput     `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *OrderUsecase) validateCheckout(in *CheckoutInput) error {
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.PaymentMethod == "" || len(in.PaymentMethod) > 50 {
		return NewValidationError("invalid payment_method")
	}
	if in.AddressID < 0 {
		return NewValidationError("invalid address_id")
	}
	if in.AddressID == 0 && in.ShippingAddress == nil {
		return NewValidationError("address_id or shipping_address is required")
	}
	if in.AddressID == 0 {
		if err := in.ShippingAddress.validate("shipping_address"); err != nil {
			return err
		}
	}
	if in.BillingAddress != nil {
		if err := in.BillingAddress.validate("billing_address"); err != nil {
			return err
		}
	}
	if in.ShippingAmount.IsNegative() {
		return NewValidationError("shipping_amount must not be negative")
	}
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if len(in.IdempotencyKey) > 255 {
		return NewValidationError("invalid idempotency_key")
	}
	return nil
}

// CreateOrder はカートから注文を作る。
// 在庫減算・注文作成・明細作成・カートクリアは1つのTxで行い、どれか失敗したら何も残さない
func (u *OrderUsecase) CreateOrder(ctx context.Context, p model.Principal, in CheckoutInput) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewUnauthorizedError()
	}
	if err := u.validateCheckout(&in); err != nil {
		return OrderOutput{}, err
	}

	var (
		out     OrderOutput
		created *model.Order
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if in.IdempotencyKey != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, p.UserID, in.IdempotencyKey)
			if err != nil {
				return NewInternalError(err)
			}
			if found {
				items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return NewInternalError(err)
				}
				out = toOrderOutput(existing, items)
				return nil
			}
		}

		shipTo, err := u.resolveShippingAddress(ctx, r, p, in)
		if err != nil {
			return err
		}
		billTo := shipTo
		if in.BillingAddress != nil {
			billTo = in.BillingAddress.snapshot()
		}

		cart, err := r.Carts().FindByUserID(ctx, p.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewEmptyCartError()
		}
		if err != nil {
			return NewInternalError(err)
		}
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewInternalError(err)
		}
		if len(cartItems) == 0 {
			return NewEmptyCartError()
		}

		//在庫を確定時に再チェックして減らす
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		subtotal := decimal.Zero
		for _, ci := range cartItems {
			prod, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && !prod.IsActive) {
				return NewValidationError("product %d is no longer available", ci.ProductID)
			}
			if err != nil {
				return NewInternalError(err)
			}

			if err := reserveStock(ctx, r, prod, ci); err != nil {
				if KindOf(err) == KindInsufficientStock {
					u.metrics.StockRejected()
				}
				return err
			}

			//スナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID:      ci.ProductID,
				SizeVariantID:  ci.SizeVariantID,
				ProductName:    prod.Name,
				ProductSKU:     prod.SKU,
				ProductOptions: ci.Options,
				Quantity:       ci.Quantity,
				UnitPrice:      ci.UnitPrice,
				TotalPrice:     ci.TotalPrice(),
			})
			subtotal = subtotal.Add(ci.TotalPrice())
		}

		tax := subtotal.Mul(u.taxRate).Round(2)
		discount := decimal.Zero
		shipping := in.ShippingAmount.Round(2)

		o := model.Order{
			OrderNumber:     u.newOrderNumber(),
			UserID:          p.UserID,
			Status:          model.OrderStatusPending,
			PaymentMethod:   &in.PaymentMethod,
			Subtotal:        subtotal,
			TaxAmount:       tax,
			ShippingAmount:  shipping,
			DiscountAmount:  discount,
			TotalAmount:     model.ComputeTotal(subtotal, discount, tax, shipping),
			ShippingCourier: strings.TrimSpace(in.ShippingCourier),
			ShippingService: strings.TrimSpace(in.ShippingService),
			ShippingAddress: shipTo,
			BillingAddress:  billTo,
			Notes:           strings.TrimSpace(in.Notes),
		}
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			o.IdempotencyKey = &key
		}

		orderID, err := r.Orders().Create(ctx, o)
		if errors.Is(err, repo.ErrConflict) {
			return NewConflictError("order with the same idempotency key is being created")
		}
		if err != nil {
			return NewInternalError(err)
		}
		o.ID = orderID

		//注文明細一括作成
		if err := r.OrderItems().CreateForOrder(ctx, orderID, orderItems); err != nil {
			return NewInternalError(err)
		}

		//カートは消さずに明細だけ空にする
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewInternalError(err)
		}
		if err := r.Carts().UpdateTotals(ctx, cart.ID, model.ComputeCartTotals(nil)); err != nil {
			return NewInternalError(err)
		}

		o.CreatedAt = u.clock.Now()
		out = toOrderOutput(o, orderItems)
		created = &o
		return nil
	})

	if err != nil {
		// 同じキーの同時リクエストは、先に入った方の注文を返す
		if KindOf(err) == KindConflict && in.IdempotencyKey != "" {
			if existing, ok := u.findByIdempotencyKey(ctx, p.UserID, in.IdempotencyKey); ok {
				return existing, nil
			}
		}
		return OrderOutput{}, err
	}

	if created != nil {
		u.log.Info("order created",
			zap.Int64("order_id", created.ID),
			zap.String("order_number", created.OrderNumber),
			zap.Int64("user_id", created.UserID),
			zap.String("total_amount", created.TotalAmount.StringFixed(2)),
		)
		u.metrics.OrderCreated()
		u.publish(ctx, model.NewOrderEvent(model.OrderEventCreated, *created, u.clock.Now()))
	}
	return out, nil
}

func (u *OrderUsecase) resolveShippingAddress(ctx context.Context, r repo.TxRepos, p model.Principal, in CheckoutInput) (model.AddressSnapshot, error) {
	if in.AddressID == 0 {
		return in.ShippingAddress.snapshot(), nil
	}

	//address_idの存在確認＋所有チェック
	addr, err := r.Addresses().FindByID(ctx, in.AddressID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.AddressSnapshot{}, NewNotFoundError("address")
	}
	if err != nil {
		return model.AddressSnapshot{}, NewInternalError(err)
	}
	if !addr.OwnedBy(p.UserID) {
		return model.AddressSnapshot{}, NewForbiddenError("address belongs to another user")
	}
	return addr.Snapshot(), nil
}

func (u *OrderUsecase) findByIdempotencyKey(ctx context.Context, userID int64, key string) (OrderOutput, bool) {
	var out OrderOutput
	found := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, ok, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil || !ok {
			return err
		}
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		out = toOrderOutput(o, items)
		found = true
		return nil
	})
	return out, err == nil && found
}

// ORD-YYYYMMDD-XXXXXXXX
func (u *OrderUsecase) newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(u.idGen.NewID(), "-", ""))
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("ORD-%s-%s", u.clock.Now().Format("20060102"), id)
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, p model.Principal, page, limit int) (OrderListOutput, error) {
	if p.UserID <= 0 {
		return OrderListOutput{}, NewUnauthorizedError()
	}
	if page < 1 {
		return OrderListOutput{}, NewValidationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewValidationError("invalid limit")
	}

	out := OrderListOutput{Items: []OrderOutput{}, Page: page, Limit: limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, p.UserID, page, limit)
		if err != nil {
			return NewInternalError(err)
		}
		out.Total = total

		out.Items, err = withItems(ctx, r, orders)
		return err
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// GetOrder は本人か管理者のみ。他人の注文は「存在しない扱い」
func (u *OrderUsecase) GetOrder(ctx context.Context, p model.Principal, orderID int64) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewUnauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, NewValidationError("invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("order")
		}
		if err != nil {
			return NewInternalError(err)
		}
		if !p.CanAccess(o.UserID) {
			return NewNotFoundError("order")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewInternalError(err)
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// CancelOrder はpending/processingの注文だけ。在庫は同じTxで戻す
func (u *OrderUsecase) CancelOrder(ctx context.Context, p model.Principal, orderID int64) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewUnauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, NewValidationError("invalid id")
	}

	var (
		cancelled model.Order
		from      model.OrderStatus
	)
	now := u.clock.Now()

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("order")
		}
		if err != nil {
			return NewInternalError(err)
		}
		if !p.CanAccess(o.UserID) {
			return NewForbiddenError("order belongs to another user")
		}

		from = o.Status
		cancelled, err = cancelInTx(ctx, r, u.log, o, now)
		return err
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.Info("order cancelled",
		zap.Int64("order_id", cancelled.ID),
		zap.String("from", string(from)),
		zap.Int64("actor_user_id", p.UserID),
	)
	u.metrics.OrderCancelled()
	u.metrics.StatusTransition(from, model.OrderStatusCancelled)
	ev := model.NewOrderEvent(model.OrderEventCancelled, cancelled, now)
	ev.FromStatus = from
	u.publish(ctx, ev)

	return toOrderOutput(cancelled, cancelled.Items), nil
}

// DeleteOrder はcancelled/deliveredの注文だけ消せる。在庫には触らない
// （キャンセル時に戻し済み、または配達済み）
func (u *OrderUsecase) DeleteOrder(ctx context.Context, p model.Principal, orderID int64) error {
	if p.UserID <= 0 {
		return NewUnauthorizedError()
	}
	if orderID <= 0 {
		return NewValidationError("invalid id")
	}

	var deleted model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("order")
		}
		if err != nil {
			return NewInternalError(err)
		}
		if !p.CanAccess(o.UserID) {
			return NewForbiddenError("order belongs to another user")
		}
		if !o.Status.IsTerminal() {
			return newErr(KindInvalidTransition, "order in status %s cannot be deleted", o.Status)
		}

		if err := r.OrderItems().DeleteByOrderID(ctx, orderID); err != nil {
			return NewInternalError(err)
		}
		if err := r.Orders().Delete(ctx, orderID); err != nil {
			return NewInternalError(err)
		}

		// 管理者が他人の注文を消したときは監査ログ
		if p.IsAdmin() {
			entry := model.NewAuditLog(p.UserID, model.AuditActionDeleteOrder, model.AuditResourceOrder, orderID,
				model.AuditState{"order_number": o.OrderNumber, "status": o.Status},
				nil,
			)
			if err := r.AuditLogs().Create(ctx, entry); err != nil {
				return NewInternalError(err)
			}
		}

		deleted = o
		return nil
	})
	if err != nil {
		return err
	}

	u.log.Info("order deleted", zap.Int64("order_id", orderID), zap.Int64("actor_user_id", p.UserID))
	u.publish(ctx, model.NewOrderEvent(model.OrderEventDeleted, deleted, u.clock.Now()))
	return nil
}

// 送信失敗はログだけ（注文自体はコミット済み）
func (u *OrderUsecase) publish(ctx context.Context, ev model.OrderEvent) {
	publishEvent(ctx, u.events, u.log, ev)
}

func publishEvent(ctx context.Context, events EventPublisher, log *zap.Logger, ev model.OrderEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, ev); err != nil {
		log.Error("publish order event failed",
			zap.String("type", string(ev.Type)),
			zap.Int64("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:            it.ID,
			ProductID:     it.ProductID,
			SizeVariantID: it.SizeVariantID,
			Name:          it.ProductName,
			SKU:           it.ProductSKU,
			Options:       it.ProductOptions,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TotalPrice:    it.TotalPrice,
		})
	}

	return OrderOutput{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		Status:           string(o.Status),
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		PaymentReference: o.PaymentReference,
		PaidAt:           o.PaidAt,
		Subtotal:         o.Subtotal,
		TaxAmount:        o.TaxAmount,
		ShippingAmount:   o.ShippingAmount,
		DiscountAmount:   o.DiscountAmount,
		TotalAmount:      o.TotalAmount,
		ShippingCourier:  o.ShippingCourier,
		ShippingService:  o.ShippingService,
		ShippingAddress:  o.ShippingAddress,
		BillingAddress:   o.BillingAddress,
		TrackingNumber:   o.TrackingNumber,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt,
		Items:            outItems,
	}
}

// 一覧の明細はまとめて1クエリで引く
func withItems(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	byOrder, err := r.OrderItems().ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, NewInternalError(err)
	}

	out := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderOutput(o, byOrder[o.ID]))
	}
	return out, nil
}
