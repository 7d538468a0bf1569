package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg := fromViper(newTestViper())

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Oversight.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Oversight.CacheTTL)
	assert.Equal(t, time.Hour, cfg.Exports.SignedURLTTL)
	assert.Equal(t, 24*time.Hour, cfg.RiskRefresh.Interval)
	assert.Equal(t, 3, cfg.RiskRefresh.WorkerRetries)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OVERSIGHT_CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ENABLE_RISK_REFRESH", "true")
	t.Setenv("RISK_REFRESH_WORKERS", "4")

	cfg := fromViper(newTestViper())

	assert.Equal(t, 90*time.Second, cfg.Oversight.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.RiskRefresh.Enabled)
	assert.Equal(t, 4, cfg.RiskRefresh.WorkerConcurrency)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}
