package server

import (
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, d Deps) {
	// ログイン必須（JWT + token_version一致）
	auth := []echo.MiddlewareFunc{
		middleware.AuthJWT(d.JWTSecret),
		middleware.TokenVersionGuard(d.Users),
	}
	admin := append(append([]echo.MiddlewareFunc{}, auth...), middleware.AdminRoleGuard())

	d.Health.RegisterRoutes(e)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	d.Products.RegisterRoutes(e)
	d.Payments.RegisterRoutes(e)

	d.Cart.RegisterRoutes(e, auth)
	d.Orders.RegisterRoutes(e, auth)
	d.Addresses.RegisterRoutes(e, auth)
	d.Shipping.RegisterRoutes(e, auth)

	d.AdminOrders.RegisterRoutes(e, admin)
	d.AdminProducts.RegisterRoutes(e, admin)
	d.AdminUsers.RegisterRoutes(e, admin)
}
