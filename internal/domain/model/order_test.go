package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo_AllPairs(t *testing.T) {
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderStatusPending:    {OrderStatusProcessing: true, OrderStatusCancelled: true},
		OrderStatusProcessing: {OrderStatusShipped: true, OrderStatusCancelled: true},
		OrderStatusShipped:    {OrderStatusDelivered: true},
	}

	for _, from := range AllOrderStatuses {
		for _, to := range AllOrderStatuses {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_Flags(t *testing.T) {
	tests := []struct {
		status      OrderStatus
		terminal    bool
		cancellable bool
	}{
		{OrderStatusPending, false, true},
		{OrderStatusProcessing, false, true},
		{OrderStatusShipped, false, false},
		{OrderStatusDelivered, true, false},
		{OrderStatusCancelled, true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.terminal, tt.status.IsTerminal(), tt.status)
		assert.Equal(t, tt.cancellable, tt.status.IsCancellable(), tt.status)
	}
}

func TestParseOrderStatus(t *testing.T) {
	st, ok := ParseOrderStatus(" Shipped ")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusShipped, st)

	_, ok = ParseOrderStatus("paid")
	assert.False(t, ok)
}

func TestParsePaymentStatus(t *testing.T) {
	ps, ok := ParsePaymentStatus("REFUNDED")
	assert.True(t, ok)
	assert.Equal(t, PaymentStatusRefunded, ps)

	_, ok = ParsePaymentStatus("shipped")
	assert.False(t, ok)
}

func TestComputeTotal(t *testing.T) {
	got := ComputeTotal(
		decimal.RequireFromString("25000"),
		decimal.RequireFromString("500"),
		decimal.RequireFromString("2695"),
		decimal.RequireFromString("18000"),
	)
	assert.Equal(t, "45195.00", got.StringFixed(2))
}

func TestNewOrderEvent(t *testing.T) {
	paid := PaymentStatusPaid
	o := Order{ID: 3, OrderNumber: "ORD-20260101-ABCDEF12", UserID: 9, Status: OrderStatusShipped, PaymentStatus: &paid, TotalAmount: decimal.NewFromInt(1200)}

	ev := NewOrderEvent(OrderEventStatusChanged, o, o.CreatedAt)
	assert.Equal(t, "1200.00", ev.TotalAmount)
	assert.Equal(t, o.OrderNumber, ev.OrderNumber)
	assert.Equal(t, &paid, ev.PaymentStatus)
}

func TestPrincipal_CanAccess(t *testing.T) {
	user := Principal{UserID: 1, Role: RoleUser}
	admin := Principal{UserID: 2, Role: RoleAdmin}

	assert.True(t, user.CanAccess(1))
	assert.False(t, user.CanAccess(3))
	assert.True(t, admin.CanAccess(3))
}
