package handler

import (
	"net/http"
	"time"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const callbackTokenHeader = "X-Callback-Token"

// 決済サービスからのコールバック（JWTではなく共有トークン）
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type PaymentCallbackRequest struct {
	OrderNumber      string     `json:"order_number" validate:"required,notblank,max=50"`
	PaymentStatus    string     `json:"payment_status" validate:"required"`
	PaymentReference *string    `json:"payment_reference" validate:"omitempty,max=255"`
	PaidAt           *time.Time `json:"paid_at"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/payments/callback", h.callback)
}

func (h *PaymentHandler) callback(c echo.Context) error {
	var req PaymentCallbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.HandleCallback(c.Request().Context(), c.Request().Header.Get(callbackTokenHeader), usecase.PaymentCallbackInput{
		OrderNumber: req.OrderNumber,
		Status:      req.PaymentStatus,
		Reference:   req.PaymentReference,
		PaidAt:      req.PaidAt,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
