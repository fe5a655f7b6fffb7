package usecase_test

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func placeOrder(t *testing.T, env *testEnv) usecase.OrderOutput {
	t.Helper()
	a := env.seedProduct(t, "PAY-"+t.Name(), "1500.00", false, nil)
	env.addToCart(t, buyer, a.ID, 1, "")
	out, err := env.checkout(buyer, "")
	require.NoError(t, err)
	return out
}

func strPtr(s string) *string { return &s }

func TestPaymentUsecase_RecordPayment(t *testing.T) {
	env := newTestEnv(t, "0")
	ctx := context.Background()
	order := placeOrder(t, env)

	_, err := env.payments.RecordPayment(ctx, buyer, order.ID, usecase.RecordPaymentInput{Status: "paid"})
	requireKind(t, err, usecase.KindForbidden)

	_, err = env.payments.RecordPayment(ctx, admin, order.ID, usecase.RecordPaymentInput{Status: "settled"})
	requireKind(t, err, usecase.KindValidation)

	_, err = env.payments.RecordPayment(ctx, admin, 9999, usecase.RecordPaymentInput{Status: "paid"})
	requireKind(t, err, usecase.KindNotFound)

	// paid_at未指定なら今の時刻を入れる
	out, err := env.payments.RecordPayment(ctx, admin, order.ID, usecase.RecordPaymentInput{
		Status:    "PAID",
		Reference: strPtr(" TRX-1 "),
	})
	require.NoError(t, err)
	require.NotNil(t, out.PaymentStatus)
	assert.Equal(t, model.PaymentStatusPaid, *out.PaymentStatus)
	assert.Equal(t, "TRX-1", *out.PaymentReference)
	require.NotNil(t, out.PaidAt)
	assert.True(t, out.PaidAt.Equal(testNow))

	// 支払いは配送ステータスに影響しない
	assert.Equal(t, string(model.OrderStatusPending), out.Status)

	// 返金: 参照番号と支払日時は残る
	out, err = env.payments.RecordPayment(ctx, admin, order.ID, usecase.RecordPaymentInput{Status: "refunded"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, *out.PaymentStatus)
	assert.Equal(t, "TRX-1", *out.PaymentReference)
	require.NotNil(t, out.PaidAt)

	got, err := env.orders.GetOrder(ctx, buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, *got.PaymentStatus)
	assert.Equal(t, "TRX-1", *got.PaymentReference)

	var logs []model.AuditLog
	require.NoError(t, env.db.Where("action = ?", model.AuditActionRecordPayment).Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, `{"payment_status":null}`, logs[0].BeforeJSON)
	assert.Equal(t, `{"payment_status":"paid"}`, logs[1].BeforeJSON)

	assert.Equal(t, 1, env.metrics.payments[model.PaymentStatusPaid])
	assert.Equal(t, 1, env.metrics.payments[model.PaymentStatusRefunded])
}

func TestPaymentUsecase_HandleCallback(t *testing.T) {
	env := newTestEnv(t, "0")
	ctx := context.Background()
	order := placeOrder(t, env)
	paidAt := time.Date(2026, 3, 15, 1, 2, 3, 0, time.UTC)

	in := usecase.PaymentCallbackInput{
		OrderNumber: order.OrderNumber,
		Status:      "paid",
		Reference:   strPtr("GW-42"),
		PaidAt:      &paidAt,
	}

	_, err := env.payments.HandleCallback(ctx, "", in)
	requireKind(t, err, usecase.KindUnauthorized)
	_, err = env.payments.HandleCallback(ctx, "wrong", in)
	requireKind(t, err, usecase.KindUnauthorized)

	_, err = env.payments.HandleCallback(ctx, callbackToken, usecase.PaymentCallbackInput{OrderNumber: "ORD-00000000-XXXXXXXX", Status: "paid"})
	requireKind(t, err, usecase.KindNotFound)

	out, err := env.payments.HandleCallback(ctx, callbackToken, in)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, *out.PaymentStatus)
	assert.True(t, out.PaidAt.Equal(paidAt))

	// コールバックは監査ログを書かない
	var count int64
	require.NoError(t, env.db.Model(&model.AuditLog{}).Where("action = ?", model.AuditActionRecordPayment).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	assert.Contains(t, env.events.types(), model.OrderEventPaymentRecorded)
}

func TestPaymentUsecase_HandleCallback_NoTokenConfigured(t *testing.T) {
	env := newTestEnv(t, "0")
	order := placeOrder(t, env)

	uc := usecase.NewPaymentUsecase(env.tx, env.clock, nil, nil, "", zap.NewNop())
	_, err := uc.HandleCallback(context.Background(), "", usecase.PaymentCallbackInput{OrderNumber: order.OrderNumber, Status: "paid"})
	requireKind(t, err, usecase.KindUnauthorized)
}
