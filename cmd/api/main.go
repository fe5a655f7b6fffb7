package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/event"
	"storefront/internal/infra/logger"
	"storefront/internal/infra/metrics"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/shipping"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now().UTC()
}

func main() {
	//.envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.GoEnv, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg, log)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	m := metrics.New()

	//注文イベント（ブローカー未設定なら送らない）
	var events usecase.EventPublisher = event.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		defer kp.Close()
		events = kp
		log.Info("order events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	}

	//送料キャッシュ（Redis or メモリ）
	var shippingCache usecase.ShippingCache = shipping.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb, err := shipping.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		shippingCache = shipping.NewRedisCache(rdb, "storefront:")
	}
	rajaOngkir := shipping.NewRajaOngkirClient(cfg.Shipping.APIBaseURL, cfg.Shipping.APIKey, nil)

	//Usecase生成
	productUC := usecase.NewProductUsecase(txm, productRepo, categoryRepo)
	cartUC := usecase.NewCartUsecase(txm, log)
	orderUC := usecase.NewOrderUsecase(txm, cfg.TaxRate(), idGen, clock, events, m, log)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, clock, events, m, log)
	paymentUC := usecase.NewPaymentUsecase(txm, clock, events, m, cfg.PaymentCallbackToken, log)
	addressUC := usecase.NewAddressUsecase(txm)
	adminUserUC := usecase.NewAdminUserUsecase(txm, log)
	shippingUC := usecase.NewShippingUsecase(rajaOngkir, shippingCache, usecase.ShippingUsecaseConfig{
		Couriers:      cfg.Shipping.Couriers,
		DefaultOrigin: cfg.Shipping.OriginID,
		RequestDelay:  cfg.Shipping.RequestDelay,
		CacheTTL:      cfg.Shipping.CacheTTL,
	}, m, log)

	//Handler生成
	e := server.New(server.Deps{
		Log:           log,
		JWTSecret:     cfg.JWTSecret,
		Users:         userRepo,
		Metrics:       m.Handler(),
		Health:        handler.NewHealthHandler(sqlDB),
		Products:      handler.NewProductHandler(productUC),
		Cart:          handler.NewCartHandler(cartUC),
		Orders:        handler.NewOrderHandler(orderUC),
		Addresses:     handler.NewAddressHandler(addressUC),
		Shipping:      handler.NewShippingHandler(shippingUC),
		Payments:      handler.NewPaymentHandler(paymentUC),
		AdminOrders:   handler.NewAdminOrderHandler(adminOrderUC, orderUC, paymentUC),
		AdminProducts: handler.NewAdminProductHandler(productUC),
		AdminUsers:    handler.NewAdminUserHandler(adminUserUC, usecase.NewAuditLogUsecase(txm)),
	})

	//Server起動
	return server.Start(ctx, e, cfg.Addr(), log)
}
