package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EnvOverridesFlags(t *testing.T) {
	t.Setenv("RUN_ADDRESS", "127.0.0.1:9090")
	t.Setenv("DATABASE_URI", "postgres://localhost/stitchmart")
	t.Setenv("PAYMENT_GATEWAY_ADDRESS", "gateway.example:443")
	t.Setenv("PROFILE_SERVICE_ADDRESS", "profiles.example:8081")
	t.Setenv("AUTH_SECRET", "env-secret")
	t.Setenv("PERMISSIVE_TRANSITIONS", "true")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.RunAddress)
	assert.Equal(t, "postgres://localhost/stitchmart", cfg.DatabaseURI)
	assert.Equal(t, "gateway.example:443", cfg.PaymentGatewayAddress)
	assert.Equal(t, "profiles.example:8081", cfg.ProfileServiceAddress)
	assert.Equal(t, "env-secret", cfg.AuthSecret)
	assert.True(t, cfg.PermissiveTransitions)
}
