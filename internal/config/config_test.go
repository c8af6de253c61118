package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvDefault(t *testing.T) {
	t.Setenv("SHOPCLIENT_TEST_KEY", "set")

	assert.Equal(t, "set", EnvDefault("SHOPCLIENT_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", EnvDefault("SHOPCLIENT_TEST_MISSING", "fallback"))
}

func TestEnvIntDefault(t *testing.T) {
	t.Setenv("SHOPCLIENT_TEST_INT", "42")
	t.Setenv("SHOPCLIENT_TEST_BAD_INT", "not-a-number")

	assert.Equal(t, 42, EnvIntDefault("SHOPCLIENT_TEST_INT", 7))
	assert.Equal(t, 7, EnvIntDefault("SHOPCLIENT_TEST_BAD_INT", 7))
	assert.Equal(t, 7, EnvIntDefault("SHOPCLIENT_TEST_MISSING_INT", 7))
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8090", cfg.CallbackAddr)
	assert.Equal(t, "INR", cfg.Currency)
	assert.True(t, cfg.ShippingFee.IsPositive())
}
