package handler

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc       *usecase.AdminOrderUsecase
	orders   *usecase.OrderUsecase
	payments *usecase.PaymentUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase, orders *usecase.OrderUsecase, payments *usecase.PaymentUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, orders: orders, payments: payments}
}

type OrderStatusUpdateRequest struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
}

type PaymentUpdateRequest struct {
	PaymentStatus    string     `json:"payment_status" validate:"required"`
	PaymentReference *string    `json:"payment_reference" validate:"omitempty,max=255"`
	PaidAt           *time.Time `json:"paid_at"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, admin []echo.MiddlewareFunc) {
	g := e.Group("/admin", admin...)

	g.GET("/orders", h.list)
	g.GET("/orders/:id", h.detail)
	g.DELETE("/orders/:id", h.delete)
	g.PUT("/orders/:id/status", h.updateStatus)
	g.PUT("/orders/:id/payment", h.updatePayment)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	var userID *int64
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		userID = &id
	}

	from, err := usecase.ParseDateTimeParam(c.QueryParam("from"))
	if err != nil {
		return writeError(c, err)
	}
	to, err := usecase.ParseDateTimeParam(c.QueryParam("to"))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), p, repository.AdminOrderListFilter{
		Page:          page,
		Limit:         limit,
		Status:        c.QueryParam("status"),
		PaymentStatus: c.QueryParam("payment_status"),
		UserID:        userID,
		From:          from,
		To:            to,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.orders.GetOrder(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) delete(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.orders.DeleteOrder(c.Request().Context(), p, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	// ★操作した管理者（監査ログ用）
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), p, orderID, usecase.AdminUpdateOrderStatusInput{
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updatePayment(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req PaymentUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.payments.RecordPayment(c.Request().Context(), p, orderID, usecase.RecordPaymentInput{
		Status:    req.PaymentStatus,
		Reference: req.PaymentReference,
		PaidAt:    req.PaidAt,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
