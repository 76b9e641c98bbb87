package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, LedgerMemory, cfg.Ledger)
	assert.Equal(t, time.Millisecond, cfg.ShippingLatency)
	assert.Equal(t, 3*time.Second, cfg.ShippingRemoteLatency)
	assert.Equal(t, 5, cfg.ReportConcurrency)
	assert.Equal(t, Limit{Permits: 10, Window: 5 * time.Second, Queue: 10}, cfg.ProductLimit)
	assert.Zero(t, cfg.ReserveLimit.Permits)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.SeedDemo)
}

func TestOverrides(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"LEDGER":             "Redis",
		"REDIS_ADDR":         "localhost:6379",
		"KAFKA_ADDR":         "k1:9092, k2:9092,",
		"REPORT_CONCURRENCY": "8",
		"SHIPPING_LATENCY":   "0s",
		"RESERVE_PERMITS":    "100",
		"SEED_DEMO":          "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, LedgerRedis, cfg.Ledger)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 8, cfg.ReportConcurrency)
	assert.Zero(t, cfg.ShippingLatency)
	assert.Equal(t, 100, cfg.ReserveLimit.Permits)
	assert.False(t, cfg.SeedDemo)
}

func TestInvalidValues(t *testing.T) {
	_, err := load(env(map[string]string{
		"REPORT_CONCURRENCY": "many",
		"PRODUCT_WINDOW":     "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORT_CONCURRENCY")
	assert.Contains(t, err.Error(), "PRODUCT_WINDOW")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"redis ledger without redis", map[string]string{"LEDGER": "redis"}, "REDIS_ADDR"},
		{"postgres ledger without url", map[string]string{"LEDGER": "postgres"}, "PG_URL"},
		{"unknown ledger", map[string]string{"LEDGER": "etcd"}, "unknown LEDGER"},
		{"kafka without redis", map[string]string{"KAFKA_ADDR": "k:9092"}, "KAFKA_ADDR"},
		{"zero report concurrency", map[string]string{"REPORT_CONCURRENCY": "0"}, "REPORT_CONCURRENCY"},
		{"zero product permits", map[string]string{"PRODUCT_PERMITS": "0"}, "PRODUCT_PERMITS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(env(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
