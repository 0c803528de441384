package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Env     string
	Port    int
	LogJSON bool

	// JWTSecret verifies access tokens issued by the auth backend.
	JWTSecret string

	DatabaseURL    string
	MigrationsDir  string
	RedisAddr      string
	IdempotencyTTL time.Duration

	CashfreeClientID     string
	CashfreeClientSecret string
	// CashfreeEnv is "sandbox" or "production". It alone selects the base URL.
	CashfreeEnv        string
	CashfreeBaseURL    string
	CashfreeAPIVersion string
	CashfreeTokenURL   string
	CashfreeCheckout   string
	GatewayTimeout     time.Duration

	PublicBaseURL string
	ReturnPath    string
	NotifyURL     string

	MockMode          bool
	MockRedirectDelay time.Duration
	ConfirmOnVerify   bool
	WebhookReconcile  bool

	DeliveryCharge decimal.Decimal
	CORSOrigin     string
}

func Default() Config {
	return Config{
		Env:                "dev",
		Port:               5000,
		LogJSON:            true,
		MigrationsDir:      "./migrations",
		IdempotencyTTL:     24 * time.Hour,
		CashfreeEnv:        "sandbox",
		CashfreeAPIVersion: "2023-08-01",
		GatewayTimeout:     10 * time.Second,
		PublicBaseURL:      "http://localhost:5173",
		ReturnPath:         "/payment/return",
		MockRedirectDelay:  1500 * time.Millisecond,
		ConfirmOnVerify:    true,
		DeliveryCharge:     decimal.NewFromInt(70),
		CORSOrigin:         "*",
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	if v := os.Getenv("FELIXMART_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("FELIXMART_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	boolVar(&c.LogJSON, "FELIXMART_LOG_JSON")
	if v := os.Getenv("FELIXMART_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("FELIXMART_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("FELIXMART_MIGRATIONS_DIR"); v != "" {
		c.MigrationsDir = v
	}
	if v := os.Getenv("FELIXMART_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	durationVar(&c.IdempotencyTTL, "FELIXMART_IDEMPOTENCY_TTL")
	if v := os.Getenv("CASHFREE_CLIENT_ID"); v != "" {
		c.CashfreeClientID = v
	}
	if v := os.Getenv("CASHFREE_CLIENT_SECRET"); v != "" {
		c.CashfreeClientSecret = v
	}
	if v := os.Getenv("CASHFREE_ENV"); v != "" {
		c.CashfreeEnv = strings.ToLower(v)
	}
	if v := os.Getenv("CASHFREE_BASE_URL"); v != "" {
		c.CashfreeBaseURL = v
	}
	if v := os.Getenv("CASHFREE_API_VERSION"); v != "" {
		c.CashfreeAPIVersion = v
	}
	if v := os.Getenv("CASHFREE_TOKEN_URL"); v != "" {
		c.CashfreeTokenURL = v
	}
	if v := os.Getenv("CASHFREE_CHECKOUT_URL"); v != "" {
		c.CashfreeCheckout = v
	}
	durationVar(&c.GatewayTimeout, "FELIXMART_GATEWAY_TIMEOUT")
	if v := os.Getenv("FELIXMART_PUBLIC_BASE_URL"); v != "" {
		c.PublicBaseURL = v
	}
	if v := os.Getenv("FELIXMART_RETURN_PATH"); v != "" {
		c.ReturnPath = v
	}
	if v := os.Getenv("FELIXMART_NOTIFY_URL"); v != "" {
		c.NotifyURL = v
	}
	boolVar(&c.MockMode, "FELIXMART_MOCK_MODE")
	durationVar(&c.MockRedirectDelay, "FELIXMART_MOCK_REDIRECT_DELAY")
	boolVar(&c.ConfirmOnVerify, "FELIXMART_CONFIRM_ON_VERIFY")
	boolVar(&c.WebhookReconcile, "FELIXMART_WEBHOOK_RECONCILE")
	if v := os.Getenv("FELIXMART_DELIVERY_CHARGE"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			c.DeliveryCharge = d
		}
	}
	if v := os.Getenv("FELIXMART_CORS_ORIGIN"); v != "" {
		c.CORSOrigin = v
	}
	return c
}

func boolVar(dst *bool, key string) {
	switch os.Getenv(key) {
	case "1", "true", "TRUE":
		*dst = true
	case "0", "false", "FALSE":
		*dst = false
	}
}

func durationVar(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

// ReturnURL is where the gateway sends the buyer back. The session id is
// only known once the gateway has answered, so it may be empty.
func (c Config) ReturnURL(orderID, paymentSessionID string) string {
	q := url.Values{}
	q.Set("order_id", orderID)
	if paymentSessionID != "" {
		q.Set("payment_session_id", paymentSessionID)
	}
	return strings.TrimRight(c.PublicBaseURL, "/") + "/" + strings.TrimLeft(c.ReturnPath, "/") + "?" + q.Encode()
}

// CheckoutURL is the gateway's hosted payment page.
func (c Config) CheckoutURL() string {
	if c.CashfreeCheckout != "" {
		return c.CashfreeCheckout
	}
	if c.CashfreeEnv == "production" || c.CashfreeEnv == "prod" {
		return "https://api.cashfree.com/pg/view/sessions/checkout"
	}
	return "https://sandbox.cashfree.com/pg/view/sessions/checkout"
}

// Redacted returns a copy safe to print or log.
func (c Config) Redacted() Config {
	c.JWTSecret = mask(c.JWTSecret)
	c.CashfreeClientSecret = mask(c.CashfreeClientSecret)
	c.CashfreeClientID = mask(c.CashfreeClientID)
	c.DatabaseURL = mask(c.DatabaseURL)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
