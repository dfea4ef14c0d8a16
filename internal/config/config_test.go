package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.ProviderTimeout)
	assert.False(t, cfg.StrictRecord)
	assert.True(t, cfg.HostedForm.Sandbox)
	assert.Zero(t, cfg.CardLink.WebhookTolerance)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("STRICT_PAYMENT_RECORD", "true")
	t.Setenv("CARDLINK_SECRET_KEY", "sk_test_123")
	t.Setenv("CARDLINK_WEBHOOK_TOLERANCE", "5m")
	t.Setenv("HOSTEDFORM_SANDBOX", "false")
	t.Setenv("QRPAY_MERCHANT_ID", "M-42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
	assert.True(t, cfg.StrictRecord)
	assert.Equal(t, "sk_test_123", cfg.CardLink.SecretKey)
	assert.Equal(t, 5*time.Minute, cfg.CardLink.WebhookTolerance)
	assert.False(t, cfg.HostedForm.Sandbox)
	assert.Equal(t, "M-42", cfg.QRPay.MerchantID)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}
