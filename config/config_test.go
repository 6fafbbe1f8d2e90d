package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"API_BASE_URL", "API_TIMEOUT", "SHIPPING_FEE", "TAX_RATE", "CATALOG_TTL", "ADMIN_ID", "REDIS_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "40", cfg.Pricing.ShippingFee.String())
	assert.Equal(t, "0.1", cfg.Pricing.TaxRate.String())
	assert.Equal(t, 5*time.Minute, cfg.Redis.CatalogTTL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, int64(0), cfg.Telegram.AdminID)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://foodies.example/api")
	t.Setenv("SHIPPING_FEE", "25.5")
	t.Setenv("TAX_RATE", "0.07")
	t.Setenv("ADMIN_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://foodies.example/api", cfg.API.BaseURL)
	assert.Equal(t, "25.5", cfg.Pricing.ShippingFee.String())
	assert.Equal(t, "0.07", cfg.Pricing.TaxRate.String())
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero shipping fee", "SHIPPING_FEE", "0"},
		{"bad shipping fee", "SHIPPING_FEE", "forty"},
		{"negative tax", "TAX_RATE", "-0.1"},
		{"bad timeout", "API_TIMEOUT", "soon"},
		{"bad admin id", "ADMIN_ID", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
