package usecase

import (
	"errors"
	"fmt"
)

// ErrorKind はhandlerがステータスコードを決めるための分類。
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindForbidden         ErrorKind = "forbidden"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindEmptyCart         ErrorKind = "empty_cart"
	KindUpstream          ErrorKind = "upstream"
	KindConflict          ErrorKind = "conflict"
	KindInternal          ErrorKind = "internal"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

// KindOf はAppError以外ならinternal。
func KindOf(err error) ErrorKind {
	if ae, ok := AsAppError(err); ok {
		return ae.Kind
	}
	return KindInternal
}

func newErr(kind ErrorKind, format string, args ...any) error {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...any) error {
	return newErr(KindValidation, format, args...)
}

func NewNotFoundError(what string) error {
	return newErr(KindNotFound, "%s not found", what)
}

func NewForbiddenError(format string, args ...any) error {
	return newErr(KindForbidden, format, args...)
}

func NewUnauthorizedError() error {
	return newErr(KindUnauthorized, "unauthorized")
}

// 足りない明細（商品・サイズ・数量）をメッセージに含める
func NewInsufficientStockError(product, size string, requested, available int64) error {
	if size == "" {
		return newErr(KindInsufficientStock, "insufficient stock for %s: requested %d, available %d", product, requested, available)
	}
	return newErr(KindInsufficientStock, "insufficient stock for %s (size %s): requested %d, available %d", product, size, requested, available)
}

func NewInvalidTransitionError(from, to string) error {
	return newErr(KindInvalidTransition, "cannot change order status from %s to %s", from, to)
}

func NewEmptyCartError() error {
	return newErr(KindEmptyCart, "cart is empty")
}

func NewUpstreamError(format string, args ...any) error {
	return newErr(KindUpstream, format, args...)
}

func NewConflictError(format string, args ...any) error {
	return newErr(KindConflict, format, args...)
}

// DB由来などの想定外エラー。元のエラーは保持するがレスポンスには出さない
func NewInternalError(err error) error {
	return &AppError{Kind: KindInternal, Message: "internal error", Err: err}
}
