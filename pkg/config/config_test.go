package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int           `env:"TEST_CFG_PORT" envDefault:"8011"`
	Brokers  []string      `env:"TEST_CFG_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	TTL      time.Duration `env:"TEST_CFG_TTL" envDefault:"24h"`
	LogLevel string        `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8011, cfg.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 24*time.Hour, cfg.TTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TEST_CFG_TTL", "90m")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, 90*time.Minute, cfg.TTL)
}

func TestLoadFrom_IgnoresProcessEnv(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")

	var cfg testConfig
	require.NoError(t, LoadFrom(&cfg, map[string]string{"TEST_CFG_LOG_LEVEL": "debug"}))

	assert.Equal(t, 8011, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFrom_InvalidValue(t *testing.T) {
	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{"TEST_CFG_PORT": "not-a-number"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
