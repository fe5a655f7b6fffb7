package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ShippingHandler struct {
	uc *usecase.ShippingUsecase
}

func NewShippingHandler(uc *usecase.ShippingUsecase) *ShippingHandler {
	return &ShippingHandler{uc: uc}
}

type shippingErrorResponse struct {
	ErrorResponse
	usecase.ShippingQuote
}

func (h *ShippingHandler) RegisterRoutes(e *echo.Echo, auth []echo.MiddlewareFunc) {
	e.GET("/shipping/options", h.options, auth...)
}

// GET /shipping/options?destination=..&weight=..(&origin=..)
func (h *ShippingHandler) options(c echo.Context) error {
	weight, err := strconv.ParseInt(c.QueryParam("weight"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid weight")
	}

	quote, err := h.uc.GetShippingOptions(c.Request().Context(), usecase.ShippingQuery{
		OriginID:      c.QueryParam("origin"),
		DestinationID: c.QueryParam("destination"),
		WeightGrams:   weight,
	})
	if err != nil {
		// 全業者失敗時も失敗内訳は返す
		if ae, ok := usecase.AsAppError(err); ok && ae.Kind == usecase.KindUpstream {
			return c.JSON(http.StatusBadGateway, shippingErrorResponse{
				ErrorResponse: ErrorResponse{Error: ae.Message, Code: string(ae.Kind)},
				ShippingQuote: quote,
			})
		}
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, quote)
}
