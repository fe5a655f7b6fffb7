package middleware

import (
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

// TokenVersionGuard はAuthJWTの後ろに置く。
// 強制ログアウトでtoken_versionが上がっていたら、古いトークンは401にする
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c)
			if !ok {
				return unauthorized(c)
			}
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok {
				return unauthorized(c)
			}

			u, err := users.FindByID(c.Request().Context(), p.UserID)
			switch {
			case err != nil, u == nil:
				return unauthorized(c)
			case !u.IsActive, u.TokenVersion != tv:
				return unauthorized(c)
			}
			return next(c)
		}
	}
}
