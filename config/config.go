package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	API      APIConfig
	Pricing  PricingConfig
	Redis    RedisConfig
	Return   ReturnConfig
	Log      LogConfig
	Checkout CheckoutConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token       string // customer storefront bot
	AdminToken  string // admin panel bot
	AdminID     int64
	BotUsername string // used for t.me deep links after payment return
}

type APIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RegionsURL string
}

type PricingConfig struct {
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

type RedisConfig struct {
	URL        string // empty disables the catalog cache
	CatalogTTL time.Duration
}

type ReturnConfig struct {
	Addr string
}

type LogConfig struct {
	Level  string
	Format string
}

type CheckoutConfig struct {
	DefaultCountry string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))

	adminID, err := strconv.ParseInt(getEnv("ADMIN_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_ID: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("API_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("API_TIMEOUT: %w", err)
	}
	catalogTTL, err := time.ParseDuration(getEnv("CATALOG_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("CATALOG_TTL: %w", err)
	}
	shippingFee, err := decimal.NewFromString(getEnv("SHIPPING_FEE", "40.00"))
	if err != nil {
		return nil, fmt.Errorf("SHIPPING_FEE: %w", err)
	}
	if !shippingFee.IsPositive() {
		return nil, fmt.Errorf("SHIPPING_FEE must be > 0, got %s", shippingFee)
	}
	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.10"))
	if err != nil {
		return nil, fmt.Errorf("TAX_RATE: %w", err)
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("TAX_RATE must be >= 0, got %s", taxRate)
	}

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "foodies"),
		},
		Telegram: TelegramConfig{
			Token:       getEnv("TOKEN", ""),
			AdminToken:  getEnv("ADMIN_TOKEN", ""),
			AdminID:     adminID,
			BotUsername: getEnv("BOT_USERNAME", ""),
		},
		API: APIConfig{
			BaseURL:    getEnv("API_BASE_URL", "http://localhost:8080/api"),
			Timeout:    timeout,
			RegionsURL: getEnv("REGIONS_URL", "https://raw.githubusercontent.com/kongvut/thai-province-data/master/api_province.json"),
		},
		Pricing: PricingConfig{
			ShippingFee: shippingFee,
			TaxRate:     taxRate,
		},
		Redis: RedisConfig{
			URL:        getEnv("REDIS_URL", ""),
			CatalogTTL: catalogTTL,
		},
		Return: ReturnConfig{
			Addr: getEnv("RETURN_ADDR", ":8081"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Checkout: CheckoutConfig{
			DefaultCountry: getEnv("DEFAULT_COUNTRY", "ประเทศไทย"),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
