package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string        `envconfig:"PORT" default:"8082"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	RedisURL        string        `envconfig:"REDIS_URL" default:"localhost:6379"`
	KafkaBrokers    string        `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	NatsURL         string        `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	JaegerEndpoint  string        `envconfig:"JAEGER_ENDPOINT"`
	SiteURL         string        `envconfig:"SITE_URL" default:"http://localhost:5173"`
	AuthURL         string        `envconfig:"AUTH_URL"`
	AuthAPIKey      string        `envconfig:"AUTH_API_KEY"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"15s"`
	StrictRecord    bool          `envconfig:"STRICT_PAYMENT_RECORD" default:"false"`

	// Embedded so their variables keep the unprefixed names.
	CardLink
	QRPay
	HostedForm
}

type CardLink struct {
	SecretKey        string        `envconfig:"CARDLINK_SECRET_KEY"`
	WebhookSecret    string        `envconfig:"CARDLINK_WEBHOOK_SECRET"`
	BaseURL          string        `envconfig:"CARDLINK_BASE_URL"`
	WebhookTolerance time.Duration `envconfig:"CARDLINK_WEBHOOK_TOLERANCE" default:"0s"`
}

type QRPay struct {
	MerchantID string `envconfig:"QRPAY_MERCHANT_ID"`
	APIKey     string `envconfig:"QRPAY_API_KEY"`
}

type HostedForm struct {
	MerchantID  string `envconfig:"HOSTEDFORM_MERCHANT_ID"`
	MerchantKey string `envconfig:"HOSTEDFORM_MERCHANT_KEY"`
	Passphrase  string `envconfig:"HOSTEDFORM_PASSPHRASE"`
	Sandbox     bool   `envconfig:"HOSTEDFORM_SANDBOX" default:"true"`
	NotifyURL   string `envconfig:"HOSTEDFORM_NOTIFY_URL"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
