package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("CASHFREE_APP_ID", "app-id")
	t.Setenv("CASHFREE_SECRET_KEY", "secret")
	t.Setenv("CASHFREE_ENVIRONMENT", "sandbox")
	t.Setenv("ADMIN_JWT_SECRET", "admin-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://sandbox.cashfree.com", cfg.Cashfree.APIBaseURL())
	assert.Equal(t, 15*time.Second, cfg.Cashfree.Timeout)
	assert.Equal(t, WebhookSchemeTimestamp, cfg.Cashfree.WebhookScheme)
	assert.Equal(t, "INR", cfg.Cashfree.Currency)
	assert.Equal(t, 30*time.Minute, cfg.PendingSession.TTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_ProductionURL(t *testing.T) {
	setRequired(t)
	t.Setenv("CASHFREE_ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.cashfree.com", cfg.Cashfree.APIBaseURL())
}

func TestLoad_MissingCredentialsIsFatal(t *testing.T) {
	setRequired(t)
	t.Setenv("CASHFREE_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsUnknownEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("CASHFREE_ENVIRONMENT", "staging")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CASHFREE_ENVIRONMENT")
}

func TestLoad_RejectsUnknownWebhookScheme(t *testing.T) {
	setRequired(t)
	t.Setenv("CASHFREE_WEBHOOK_SCHEME", "md5")

	_, err := Load()
	require.Error(t, err)
}
