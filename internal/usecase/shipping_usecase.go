package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 外部の送料API（1回のリクエストで1配送業者）
type ShippingProvider interface {
	Cost(ctx context.Context, originID, destinationID string, weightGrams int64, courier string) ([]model.ShippingOption, error)
}

// 送料キャッシュ（Redis or メモリ）
type ShippingCache interface {
	Get(ctx context.Context, key string) ([]model.ShippingOption, bool, error)
	Set(ctx context.Context, key string, options []model.ShippingOption, ttl time.Duration) error
}

type ShippingQuery struct {
	OriginID      string
	DestinationID string
	WeightGrams   int64
}

type ShippingFailure struct {
	Courier string `json:"courier"`
	Error   string `json:"error"`
}

type ShippingQuote struct {
	Options  []model.ShippingOption `json:"options"`
	Failures []ShippingFailure      `json:"failures"`
	Cached   bool                   `json:"cached"`
}

type ShippingUsecaseConfig struct {
	Couriers      []string
	DefaultOrigin string
	RequestDelay  time.Duration
	CacheTTL      time.Duration
}

type ShippingUsecase struct {
	provider ShippingProvider
	cache    ShippingCache
	cfg      ShippingUsecaseConfig
	limiter  *rate.Limiter
	metrics  ShippingMetrics
	log      *zap.Logger
}

func NewShippingUsecase(provider ShippingProvider, cache ShippingCache, cfg ShippingUsecaseConfig, metrics ShippingMetrics, log *zap.Logger) *ShippingUsecase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	// 上流のレート制限対策。全リクエストで1つのlimiterを共有する
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &ShippingUsecase{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		metrics:  metrics,
		log:      log.Named("shipping"),
	}
}

func shippingCacheKey(q ShippingQuery) string {
	return fmt.Sprintf("shipping:%s:%s:%d", q.OriginID, q.DestinationID, q.WeightGrams)
}

// GetShippingOptions は配送業者ごとに順番に問い合わせて送料候補をまとめる。
// 全業者が成功したときだけキャッシュする
func (u *ShippingUsecase) GetShippingOptions(ctx context.Context, q ShippingQuery) (ShippingQuote, error) {
	q.OriginID = strings.TrimSpace(q.OriginID)
	q.DestinationID = strings.TrimSpace(q.DestinationID)
	if q.OriginID == "" {
		q.OriginID = u.cfg.DefaultOrigin
	}
	if q.OriginID == "" || q.DestinationID == "" {
		return ShippingQuote{}, NewValidationError("origin and destination are required")
	}
	if q.WeightGrams <= 0 || q.WeightGrams > 30000 {
		return ShippingQuote{}, NewValidationError("weight must be between 1 and 30000 grams")
	}
	if len(u.cfg.Couriers) == 0 {
		return ShippingQuote{}, NewUpstreamError("no couriers configured")
	}

	key := shippingCacheKey(q)
	if u.cache != nil {
		opts, ok, err := u.cache.Get(ctx, key)
		if err != nil {
			// キャッシュ障害は上流に問い合わせて続行
			u.log.Warn("shipping cache get failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return ShippingQuote{Options: opts, Failures: []ShippingFailure{}, Cached: true}, nil
		}
	}

	quote := ShippingQuote{Options: []model.ShippingOption{}, Failures: []ShippingFailure{}}
	for _, courier := range u.cfg.Couriers {
		if err := u.limiter.Wait(ctx); err != nil {
			return ShippingQuote{}, NewUpstreamError("shipping lookup aborted: %v", err)
		}

		opts, err := u.provider.Cost(ctx, q.OriginID, q.DestinationID, q.WeightGrams, courier)
		if err != nil {
			u.log.Warn("shipping courier failed", zap.String("courier", courier), zap.Error(err))
			u.metrics.ShippingUpstreamFailure(courier)
			quote.Failures = append(quote.Failures, ShippingFailure{Courier: courier, Error: err.Error()})
			continue
		}
		quote.Options = append(quote.Options, opts...)
	}

	if len(quote.Failures) == len(u.cfg.Couriers) {
		return quote, NewUpstreamError("all couriers failed")
	}

	if len(quote.Failures) == 0 && u.cache != nil {
		if err := u.cache.Set(ctx, key, quote.Options, u.cfg.CacheTTL); err != nil {
			u.log.Warn("shipping cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return quote, nil
}
