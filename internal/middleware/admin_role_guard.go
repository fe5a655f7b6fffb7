package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// contextに入っているroleがADMINかどうかを確認します。
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c)
			if !ok {
				return unauthorized(c)
			}

			//USERは拒否、ADMINだけ許可
			if !p.IsAdmin() {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "admin only", Code: "forbidden"})
			}

			return next(c)
		}
	}
}
