package handler

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/infra/logger"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorKindからHTTPステータスへ
func statusFor(kind usecase.ErrorKind) int {
	switch kind {
	case usecase.KindValidation, usecase.KindEmptyCart:
		return http.StatusBadRequest
	case usecase.KindUnauthorized:
		return http.StatusUnauthorized
	case usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindInsufficientStock, usecase.KindInvalidTransition, usecase.KindConflict:
		return http.StatusConflict
	case usecase.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	ae, ok := usecase.AsAppError(err)
	if !ok || ae.Kind == usecase.KindInternal {
		//500（中身は返さずログにだけ出す）
		logger.FromContext(c.Request().Context(), zap.NewNop()).Error("internal error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: string(usecase.KindInternal)})
	}
	return c.JSON(statusFor(ae.Kind), ErrorResponse{Error: ae.Message, Code: string(ae.Kind)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: string(usecase.KindValidation)})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: string(usecase.KindUnauthorized)})
}

// bind + validate。失敗は400
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewValidationError("invalid body")
	}
	if err := c.Validate(req); err != nil {
		return usecase.NewValidationError("%s", err.Error())
	}
	return nil
}

// :id などのパスパラメータ
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// クエリの整数。空ならdef
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func getPrincipal(c echo.Context) (model.Principal, bool) {
	return middleware.PrincipalFromContext(c)
}
