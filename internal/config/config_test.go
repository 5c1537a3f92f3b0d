package config

import (
	"bytes"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMarketConfig_Defaults(t *testing.T) {
	t.Setenv("MARKET_COMMISSION_RATE", "")
	t.Setenv("SELLER_AUTO_APPROVE", "")

	c, err := LoadMarketConfig()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.05").Equal(c.CommissionRate))
	assert.True(t, c.SellerAutoApprove)
}

func TestLoadMarketConfig_Overrides(t *testing.T) {
	t.Setenv("MARKET_COMMISSION_RATE", "0.1")
	t.Setenv("SELLER_AUTO_APPROVE", "false")

	c, err := LoadMarketConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.1", c.CommissionRate.String())
	assert.False(t, c.SellerAutoApprove)
}

func TestLoadMarketConfig_RejectsBadRate(t *testing.T) {
	t.Setenv("MARKET_COMMISSION_RATE", "1.5")
	_, err := LoadMarketConfig()
	assert.Error(t, err)
}

func TestLoadBrokerConfig(t *testing.T) {
	t.Setenv("EVENT_BROKER", "NATS")
	c, err := LoadBrokerConfig()
	require.NoError(t, err)
	assert.Equal(t, BrokerNATS, c.Kind)

	t.Setenv("EVENT_BROKER", "kafka")
	_, err = LoadBrokerConfig()
	assert.Error(t, err)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
}

func TestLoadCacheConfig_Methods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.False(t, c.Methods["POST"])
}

func TestLoadRedisConfig_HostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "ON")
	assert.True(t, envBool("X_FLAG", false))
	t.Setenv("X_FLAG", "garbage")
	assert.False(t, envBool("X_FLAG", false))
}

func TestEnvIntAndDur_WarnOnMalformed(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	t.Setenv("HUB_SHARDS", "sixteen")
	t.Setenv("CACHE_TTL", "5 seconds")
	assert.Equal(t, 16, envInt("HUB_SHARDS", 16))
	assert.Equal(t, 5*time.Second, envDur("CACHE_TTL", 5*time.Second))
	assert.Contains(t, buf.String(), `invalid int for HUB_SHARDS: "sixteen"`)
	assert.Contains(t, buf.String(), `invalid duration for CACHE_TTL: "5 seconds"`)

	buf.Reset()
	t.Setenv("HUB_SHARDS", "8")
	assert.Equal(t, 8, envInt("HUB_SHARDS", 16))
	assert.Empty(t, buf.String())
}
