package handler

import (
	"net/http"
	"strings"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type AddressRequest struct {
	Name       string `json:"name" validate:"required,notblank,max=255"`
	Phone      string `json:"phone" validate:"max=30"`
	PostalCode string `json:"postal_code" validate:"required,notblank,max=20"`
	Prefecture string `json:"prefecture" validate:"required,notblank,max=100"`
	City       string `json:"city" validate:"required,notblank,max=255"`
	Line1      string `json:"line1" validate:"required,notblank,max=255"`
	Line2      string `json:"line2" validate:"max=255"`
}

func (r *AddressRequest) toInput() *usecase.AddressInput {
	if r == nil {
		return nil
	}
	return &usecase.AddressInput{
		Name:       r.Name,
		Phone:      r.Phone,
		PostalCode: r.PostalCode,
		Prefecture: r.Prefecture,
		City:       r.City,
		Line1:      r.Line1,
		Line2:      r.Line2,
	}
}

// address_idかshipping_addressのどちらか
type OrderCreateRequest struct {
	AddressID       int64           `json:"address_id" validate:"gte=0"`
	ShippingAddress *AddressRequest `json:"shipping_address"`
	BillingAddress  *AddressRequest `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method" validate:"required,notblank,max=50"`
	ShippingAmount  decimal.Decimal `json:"shipping_amount"`
	ShippingCourier string          `json:"shipping_courier" validate:"max=50"`
	ShippingService string          `json:"shipping_service" validate:"max=100"`
	Notes           string          `json:"notes" validate:"max=1000"`
	IdempotencyKey  string          `json:"idempotency_key" validate:"max=100"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, auth []echo.MiddlewareFunc) {
	g := e.Group("/orders", auth...)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/cancel", h.cancel)
}

func (h *OrderHandler) create(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	//二重送信防止キーはヘッダー優先
	idemKey := strings.TrimSpace(c.Request().Header.Get("X-Idempotency-Key"))
	if idemKey == "" {
		idemKey = req.IdempotencyKey
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), p, usecase.CheckoutInput{
		AddressID:       req.AddressID,
		ShippingAddress: req.ShippingAddress.toInput(),
		BillingAddress:  req.BillingAddress.toInput(),
		PaymentMethod:   req.PaymentMethod,
		ShippingAmount:  req.ShippingAmount,
		ShippingCourier: req.ShippingCourier,
		ShippingService: req.ShippingService,
		Notes:           req.Notes,
		IdempotencyKey:  idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), p, page, limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetOrder(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.CancelOrder(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) delete(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.DeleteOrder(c.Request().Context(), p, id); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
