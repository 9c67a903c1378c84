package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	API         *APIConfig         `mapstructure:"api"`
	Gin         *GinConfig         `mapstructure:"gin"`
	Postgres    *PostgresConfig    `mapstructure:"postgres"`
	MercadoPago *MercadoPagoConfig `mapstructure:"mercadopago"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// MercadoPagoConfig carries everything the payment gateway adapter and the
// webhook endpoint need. AllowUnverifiedWebhooks must be set explicitly in
// the config file to accept unsigned notifications; it is never implied by
// a missing secret.
type MercadoPagoConfig struct {
	AppID                   string `mapstructure:"app_id"`
	AccessToken             string `mapstructure:"access_token"`
	WebhookSecret           string `mapstructure:"webhook_secret"`
	RedirectURL             string `mapstructure:"redirect_url"`
	BackURLBase             string `mapstructure:"back_url_base"`
	CurrencyID              string `mapstructure:"currency_id"`
	TimeoutSeconds          int    `mapstructure:"timeout_seconds"`
	AllowUnverifiedWebhooks bool   `mapstructure:"allow_unverified_webhooks"`
}

func Load(configFile string) (*AppConfig, error) {
	viper.SetConfigFile(configFile)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("viper.ReadInConfig -> %w", err)
	}

	// Secrets come from the environment, never from the checked-in yaml.
	viper.AutomaticEnv()
	bindings := map[string]string{
		"api.jwt_signing_key":        "JWT_SIGNING_KEY",
		"mercadopago.app_id":         "MERCADOPAGO_APP_ID",
		"mercadopago.access_token":   "MERCADOPAGO_ACCESS_TOKEN",
		"mercadopago.webhook_secret": "MERCADOPAGO_WEBHOOK_SECRET",
		"postgres.password":          "POSTGRES_PASSWORD",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("viper.BindEnv(%v) -> %w", key, err)
		}
	}

	conf := &AppConfig{}
	if err := viper.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("viper.Unmarshal -> %w", err)
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if err := viper.Unmarshal(conf); err != nil {
			zap.L().Error("failed to reload config", zap.String("file", e.Name), zap.Error(err))
			return
		}
		zap.L().Info("config reloaded", zap.String("file", e.Name))
	})
	viper.WatchConfig()

	return conf, nil
}
