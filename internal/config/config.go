package config

import (
	"flag"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Config содержит конфигурацию приложения.
type Config struct {
	RunAddress             string
	DatabaseURI            string
	ProviderAddress        string
	ProviderSecretKey      string
	ProviderPublishableKey string
	OrderServiceAddress    string
	WebhookSecret          string
	JWTSecret              string
	SiteURL                string
	Currency               string
	FeePercent             decimal.Decimal
	PaymentTTL             time.Duration
	TokenExpiration        time.Duration
}

// Load загружает конфигурацию из флагов командной строки и переменных окружения.
// Приоритет: переменные окружения > флаги > значения по умолчанию.
func Load() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "адрес и порт запуска сервиса")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "строка подключения к PostgreSQL")
	flag.StringVar(&cfg.ProviderAddress, "p", "", "адрес платёжного провайдера")
	flag.StringVar(&cfg.OrderServiceAddress, "o", "", "адрес сервиса заказов")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		cfg.RunAddress = envRunAddr
	}
	if envDBURI := os.Getenv("DATABASE_URI"); envDBURI != "" {
		cfg.DatabaseURI = envDBURI
	}
	if envProvider := os.Getenv("CHECKOUT_PROVIDER_ADDRESS"); envProvider != "" {
		cfg.ProviderAddress = envProvider
	}
	if envOrders := os.Getenv("ORDER_SERVICE_ADDRESS"); envOrders != "" {
		cfg.OrderServiceAddress = envOrders
	}

	cfg.ProviderSecretKey = os.Getenv("CHECKOUT_SECRET_KEY")
	cfg.ProviderPublishableKey = os.Getenv("CHECKOUT_PUBLISHABLE_KEY")
	cfg.WebhookSecret = os.Getenv("WEBHOOK_SECRET")

	// Секрет JWT общий с сервисом аккаунтов
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "default-secret-change-in-production"
	}

	cfg.SiteURL = os.Getenv("SITE_URL")
	if cfg.SiteURL == "" {
		cfg.SiteURL = "http://localhost:8080"
	}

	cfg.Currency = os.Getenv("CURRENCY")
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}

	// Комиссия площадки в процентах
	cfg.FeePercent = decimal.NewFromInt(10)
	if envFee := os.Getenv("PLATFORM_FEE_PERCENT"); envFee != "" {
		if fee, err := decimal.NewFromString(envFee); err == nil && fee.IsPositive() {
			cfg.FeePercent = fee
		}
	}

	// Время жизни незавершённого платежа
	cfg.PaymentTTL = 24 * time.Hour
	if envTTL := os.Getenv("PAYMENT_TTL"); envTTL != "" {
		if ttl, err := time.ParseDuration(envTTL); err == nil && ttl > 0 {
			cfg.PaymentTTL = ttl
		}
	}

	// Время жизни токена
	cfg.TokenExpiration = 24 * time.Hour

	return cfg
}
