package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string `env:"PORT" env-default:"8080"`
	GoEnv string `env:"GO_ENV" env-default:"dev" env-description:"local|dev|prod"`

	// DATABASE_URL があれば最優先で使う
	DatabaseURL string `env:"DATABASE_URL"`
	Postgres    PostgresConfig

	JWTSecret string `env:"JWT_SECRET" env-required:"true"` // JWT署名シークレット
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`

	// 税率（例: 0.11）。小数の文字列で受ける
	TaxRateRaw string `env:"TAX_RATE" env-default:"0"`

	Shipping ShippingConfig

	RedisAddr string `env:"REDIS_ADDR"` // 空ならメモリキャッシュ

	KafkaBrokers    []string `env:"KAFKA_BROKERS" env-separator:","` // 空ならイベント送信しない
	KafkaOrderTopic string   `env:"KAFKA_ORDER_TOPIC" env-default:"orders"`

	// 決済コールバックの共有トークン（X-Callback-Token）
	PaymentCallbackToken string `env:"PAYMENT_CALLBACK_TOKEN"`
}

type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     int    `env:"POSTGRES_PORT" env-default:"5432"`
	User     string `env:"POSTGRES_USER" env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DB       string `env:"POSTGRES_DB" env-default:"app"`
	SSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// 送料API（RajaOngkir互換）
type ShippingConfig struct {
	APIBaseURL   string        `env:"SHIPPING_API_BASE_URL" env-default:"https://api.rajaongkir.com/starter"`
	APIKey       string        `env:"SHIPPING_API_KEY"`
	Couriers     []string      `env:"SHIPPING_COURIERS" env-separator:"," env-default:"jne,pos,tiki"`
	OriginID     string        `env:"SHIPPING_ORIGIN_ID"`
	RequestDelay time.Duration `env:"SHIPPING_REQUEST_DELAY" env-default:"300ms"`
	CacheTTL     time.Duration `env:"SHIPPING_CACHE_TTL" env-default:"1h"`
}

// Loadは環境変数から読む。.envの読み込みはmain側で行う
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	switch cfg.GoEnv {
	case "local", "dev", "prod":
	default:
		return Config{}, fmt.Errorf("GO_ENV must be one of local|dev|prod: %q", cfg.GoEnv)
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.TaxRateRaw))
	if err != nil {
		return Config{}, fmt.Errorf("TAX_RATE must be decimal: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("TAX_RATE must be in [0, 1): %s", rate)
	}

	cfg.Shipping.Couriers = normalizeCouriers(cfg.Shipping.Couriers)
	return cfg, nil
}

// TaxRate はLoad済みの税率。
func (c Config) TaxRate() decimal.Decimal {
	r, err := decimal.NewFromString(strings.TrimSpace(c.TaxRateRaw))
	if err != nil {
		return decimal.Zero
	}
	return r
}

// DSN はpostgres接続文字列。
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	p := c.Postgres
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DB, p.SSLMode,
	)
}

func normalizeCouriers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Addr はlisten用のアドレス。PORTは "8080" でも ":8080" でもよい
func (c Config) Addr() string {
	p := strings.TrimSpace(c.Port)
	if p == "" {
		return ":8080"
	}
	if p[0] != ':' {
		return ":" + p
	}
	return p
}
