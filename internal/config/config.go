package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	SMTP     SMTPConfig
	CMS      CMSConfig
	Admin    AdminConfig
	Checkout CheckoutConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type CMSConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type AdminConfig struct {
	JWTSecret string
}

type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser, err := requireEnv("POSTGRES_USER")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresPassword, err := requireEnv("POSTGRES_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresDB, err := requireEnv("POSTGRES_DB")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	stripeKey, err := requireEnv("STRIPE_SECRET_KEY")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stripeWebhookSecret, err := requireEnv("STRIPE_WEBHOOK_SECRET")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	smtpPort, err := intEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	adminSecret, err := requireEnv("ADMIN_JWT_SECRET")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	successURL, err := requireEnv("CHECKOUT_SUCCESS_URL")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cancelURL, err := requireEnv("CHECKOUT_CANCEL_URL")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	currency := os.Getenv("CHECKOUT_CURRENCY")
	if currency == "" {
		currency = "nok"
	}

	return &Config{
		Server: ServerConfig{
			Host: serverHost,
			Port: serverPort,
		},
		Postgres: PostgresConfig{
			User:     postgresUser,
			Password: postgresPassword,
			Name:     postgresDB,
			Host:     postgresHost,
			Port:     postgresPort,
			SSLMode:  postgresSSLMode,
		},
		Redis: RedisConfig{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Stripe: StripeConfig{
			SecretKey:     stripeKey,
			WebhookSecret: stripeWebhookSecret,
			Timeout:       5 * time.Second,
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			FromName: os.Getenv("SMTP_FROM_NAME"),
		},
		CMS: CMSConfig{
			BaseURL: os.Getenv("CMS_BASE_URL"),
			Token:   os.Getenv("CMS_TOKEN"),
			Timeout: 10 * time.Second,
		},
		Admin: AdminConfig{
			JWTSecret: adminSecret,
		},
		Checkout: CheckoutConfig{
			Currency:   currency,
			SuccessURL: successURL,
			CancelURL:  cancelURL,
		},
	}, nil
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("missing %s", key)
	}
	return v, nil
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
