package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-promo/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                 "",
		"REDIS_URL":            "",
		"PROMO_HALF_PRICE_BPS": "",
		"PROMO_BULK_THRESHOLD": "",
		"PROMO_BULK_RATE_BPS":  "",
		"QUOTE_CACHE_TTL":      "",
		"CURRENCY_LOCALE":      "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, "es-AR", cfg.CurrencyLocale)
	require.Equal(t, 10*time.Minute, cfg.QuoteCacheTTL)

	rules := cfg.PromotionRules()
	require.Equal(t, "0.5", rules.HalfPriceRate.String())
	require.Equal(t, "30000", rules.BulkThreshold.String())
	require.Equal(t, "0.1", rules.BulkRate.String())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                 ":9090",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example ,",
		"PROMO_BULK_THRESHOLD": "50000",
		"PROMO_BULK_RATE_BPS":  "1500",
		"QUOTE_CACHE_TTL":      "not-a-duration",
		"RATE_LIMIT_MAX":       "25",
		"SECURITY_HEADERS":     "off",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, int64(50000), cfg.PromoBulkThreshold)
	require.Equal(t, "0.15", cfg.PromotionRules().BulkRate.String())
	require.Equal(t, 10*time.Minute, cfg.QuoteCacheTTL)
	require.Equal(t, 25, cfg.RateLimitMax)
	require.False(t, cfg.SecurityHeaders)
}

func TestLoadRejectsOutOfRangeRates(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"PROMO_BULK_RATE_BPS": "20000"})
	require.ErrorContains(t, err, "PROMO_BULK_RATE_BPS")

	_, err = config.LoadForTests(map[string]string{"PROMO_BULK_THRESHOLD": "-1"})
	require.ErrorContains(t, err, "PROMO_BULK_THRESHOLD")
}
