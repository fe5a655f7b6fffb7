package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx      repo.TransactionManager
	clock   Clock
	events  EventPublisher
	metrics OrderMetrics
	log     *zap.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, clock Clock, events EventPublisher, metrics OrderMetrics, log *zap.Logger) *AdminOrderUsecase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &AdminOrderUsecase{tx: tx, clock: clock, events: events, metrics: metrics, log: log.Named("admin_order")}
}

type AdminUpdateOrderStatusInput struct {
	Status         string
	TrackingNumber string
}

// 注文一覧（管理者）
func (u *AdminOrderUsecase) List(ctx context.Context, p model.Principal, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	if !p.IsAdmin() {
		return OrderListOutput{}, NewForbiddenError("admin only")
	}
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, NewValidationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewValidationError("invalid limit")
	}
	if f.Status != "" {
		st, ok := model.ParseOrderStatus(f.Status)
		if !ok {
			return OrderListOutput{}, NewValidationError("invalid status")
		}
		f.Status = string(st)
	}
	if f.PaymentStatus != "" {
		ps, ok := model.ParsePaymentStatus(f.PaymentStatus)
		if !ok {
			return OrderListOutput{}, NewValidationError("invalid payment_status")
		}
		f.PaymentStatus = string(ps)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, NewValidationError("from must be before to")
	}

	out := OrderListOutput{Items: []OrderOutput{}, Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
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

// ステータス更新。遷移できるかはOrderStatus.CanTransitionToで判定する。
// cancelledへの変更はCancelOrderと同じく在庫戻しを伴う
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, p model.Principal, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewUnauthorizedError()
	}
	if !p.IsAdmin() {
		return OrderOutput{}, NewForbiddenError("admin only")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewValidationError("invalid id")
	}

	to, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return OrderOutput{}, NewValidationError("invalid status")
	}
	tracking := strings.TrimSpace(in.TrackingNumber)
	if len(tracking) > 100 {
		return OrderOutput{}, NewValidationError("invalid tracking_number")
	}

	var (
		updated model.Order
		from    model.OrderStatus
	)
	now := u.clock.Now()

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("order")
		}
		if err != nil {
			return NewInternalError(err)
		}
		from = o.Status

		if to == model.OrderStatusCancelled {
			updated, err = cancelInTx(ctx, r, u.log, o, now)
			if err != nil {
				return err
			}
		} else {
			if !o.Status.CanTransitionTo(to) {
				return NewInvalidTransitionError(string(o.Status), string(to))
			}
			// 遷移できると分かってから必須チェック
			if to == model.OrderStatusShipped && tracking == "" {
				return NewValidationError("tracking_number is required when shipping")
			}

			var patch repo.OrderStatusPatch
			switch to {
			case model.OrderStatusShipped:
				patch.TrackingNumber = &tracking
				patch.ShippedAt = &now
				o.TrackingNumber = &tracking
				o.ShippedAt = &now
			case model.OrderStatusDelivered:
				patch.DeliveredAt = &now
				o.DeliveredAt = &now
			}

			ok, err := r.Orders().TransitionStatus(ctx, orderID, from, to, patch)
			if err != nil {
				return NewInternalError(err)
			}
			if !ok {
				return NewInvalidTransitionError(string(from), string(to))
			}

			o.Status = to
			o.Items, err = r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return NewInternalError(err)
			}
			updated = o
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		entry := model.NewAuditLog(p.UserID, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, orderID,
			model.AuditState{"status": from},
			model.AuditState{"status": to},
		)
		if err := r.AuditLogs().Create(ctx, entry); err != nil {
			return NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.Info("order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int64("actor_user_id", p.UserID),
	)
	u.metrics.StatusTransition(from, to)

	evType := model.OrderEventStatusChanged
	if to == model.OrderStatusCancelled {
		u.metrics.OrderCancelled()
		evType = model.OrderEventCancelled
	}
	ev := model.NewOrderEvent(evType, updated, now)
	ev.FromStatus = from
	publishEvent(ctx, u.events, u.log, ev)

	return toOrderOutput(updated, updated.Items), nil
}

// 期間パラメータ（RFC3339 か YYYY-MM-DD）をhandlerから受けて変換する
func ParseDateTimeParam(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, NewValidationError("invalid datetime: %s", s)
	}
	return &t, nil
}
