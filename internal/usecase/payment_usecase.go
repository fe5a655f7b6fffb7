package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// 支払い状態は配送ステータスと独立して更新する（pendingのままpaidもあり得る）
type PaymentUsecase struct {
	tx            repo.TransactionManager
	clock         Clock
	events        EventPublisher
	metrics       OrderMetrics
	callbackToken string
	log           *zap.Logger
}

func NewPaymentUsecase(tx repo.TransactionManager, clock Clock, events EventPublisher, metrics OrderMetrics, callbackToken string, log *zap.Logger) *PaymentUsecase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &PaymentUsecase{
		tx:            tx,
		clock:         clock,
		events:        events,
		metrics:       metrics,
		callbackToken: callbackToken,
		log:           log.Named("payment"),
	}
}

type RecordPaymentInput struct {
	Status    string
	Reference *string
	PaidAt    *time.Time
}

// 決済サービスからの通知
type PaymentCallbackInput struct {
	OrderNumber string
	Status      string
	Reference   *string
	PaidAt      *time.Time
}

// RecordPayment は管理者が支払い状態を記録する。
func (u *PaymentUsecase) RecordPayment(ctx context.Context, p model.Principal, orderID int64, in RecordPaymentInput) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewUnauthorizedError()
	}
	if !p.IsAdmin() {
		return OrderOutput{}, NewForbiddenError("admin only")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewValidationError("invalid id")
	}

	return u.apply(ctx, in, p.UserID, func(r repo.TxRepos) (model.Order, error) {
		return r.Orders().FindByID(ctx, orderID)
	})
}

// HandleCallback は共有トークンを確認してから注文番号で支払い状態を更新する。
func (u *PaymentUsecase) HandleCallback(ctx context.Context, token string, in PaymentCallbackInput) (OrderOutput, error) {
	// トークン未設定ならコールバックは受け付けない
	if u.callbackToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(u.callbackToken)) != 1 {
		return OrderOutput{}, NewUnauthorizedError()
	}
	number := strings.TrimSpace(in.OrderNumber)
	if number == "" {
		return OrderOutput{}, NewValidationError("order_number is required")
	}

	return u.apply(ctx, RecordPaymentInput{
		Status:    in.Status,
		Reference: in.Reference,
		PaidAt:    in.PaidAt,
	}, 0, func(r repo.TxRepos) (model.Order, error) {
		return r.Orders().FindByOrderNumber(ctx, number)
	})
}

// actorUserIDが0ならコールバック（監査ログなし）
func (u *PaymentUsecase) apply(ctx context.Context, in RecordPaymentInput, actorUserID int64, load func(r repo.TxRepos) (model.Order, error)) (OrderOutput, error) {
	status, ok := model.ParsePaymentStatus(in.Status)
	if !ok {
		return OrderOutput{}, NewValidationError("invalid payment status")
	}
	if in.Reference != nil {
		ref := strings.TrimSpace(*in.Reference)
		if len(ref) > 255 {
			return OrderOutput{}, NewValidationError("invalid payment_reference")
		}
		in.Reference = &ref
	}

	var out OrderOutput
	var updated model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := load(r)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("order")
		}
		if err != nil {
			return NewInternalError(err)
		}

		// 指定がなければ今の値を残す
		upd := repo.PaymentUpdate{
			Status:    status,
			Reference: o.PaymentReference,
			PaidAt:    o.PaidAt,
		}
		if in.Reference != nil {
			upd.Reference = in.Reference
		}
		if in.PaidAt != nil {
			upd.PaidAt = in.PaidAt
		} else if status == model.PaymentStatusPaid && o.PaidAt == nil {
			now := u.clock.Now()
			upd.PaidAt = &now
		}

		if err := r.Orders().UpdatePayment(ctx, o.ID, upd); err != nil {
			return NewInternalError(err)
		}

		if actorUserID > 0 {
			// 未記録ならnull
			entry := model.NewAuditLog(actorUserID, model.AuditActionRecordPayment, model.AuditResourceOrder, o.ID,
				model.AuditState{"payment_status": o.PaymentStatus},
				model.AuditState{"payment_status": status},
			)
			if err := r.AuditLogs().Create(ctx, entry); err != nil {
				return NewInternalError(err)
			}
		}

		o.PaymentStatus = &status
		o.PaymentReference = upd.Reference
		o.PaidAt = upd.PaidAt

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewInternalError(err)
		}
		out = toOrderOutput(o, items)
		updated = o
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.Info("payment recorded",
		zap.Int64("order_id", updated.ID),
		zap.String("payment_status", string(status)),
		zap.Bool("callback", actorUserID == 0),
	)
	u.metrics.PaymentRecorded(status)
	publishEvent(ctx, u.events, u.log, model.NewOrderEvent(model.OrderEventPaymentRecorded, updated, u.clock.Now()))
	return out, nil
}
