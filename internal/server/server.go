package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/handler"
	"storefront/internal/infra/logger"
	"storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Deps はルーティングに必要なもの一式（main.goで組み立てる）
type Deps struct {
	Log       *zap.Logger
	JWTSecret string
	Users     repository.UserRepository
	Metrics   http.Handler

	Health        *handler.HealthHandler
	Products      *handler.ProductHandler
	Cart          *handler.CartHandler
	Orders        *handler.OrderHandler
	Addresses     *handler.AddressHandler
	Shipping      *handler.ShippingHandler
	Payments      *handler.PaymentHandler
	AdminOrders   *handler.AdminOrderHandler
	AdminProducts *handler.AdminProductHandler
	AdminUsers    *handler.AdminUserHandler
}

func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logger.RequestLogger(d.Log))

	RegisterRoutes(e, d)
	return e
}

// Start はctxがキャンセルされるまで待ち受け、その後graceful shutdownする。
func Start(ctx context.Context, e *echo.Echo, addr string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("http server shutting down")
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
