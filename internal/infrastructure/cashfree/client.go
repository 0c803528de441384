package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"felixmart/internal/domain"
)

const (
	SandboxBaseURL    = "https://sandbox.cashfree.com/pg"
	ProductionBaseURL = "https://api.cashfree.com/pg"

	defaultAPIVersion = "2023-08-01"
	defaultTimeout    = 10 * time.Second
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidRequest     = errors.New("invalid gateway request")
)

// GatewayRequestFailed is a non-2xx answer from the gateway.
type GatewayRequestFailed struct {
	Status int
	Body   string
}

func (e *GatewayRequestFailed) Error() string {
	return fmt.Sprintf("gateway request failed: status %d: %s", e.Status, e.Body)
}

type Config struct {
	ClientID     string
	ClientSecret string
	// Environment is "sandbox" or "production".
	Environment string
	// BaseURL overrides the environment's URL (tests, proxies).
	BaseURL    string
	APIVersion string
	// TokenURL enables bearer-token auth. Empty means API-key headers only.
	TokenURL string
	Timeout  time.Duration
	HTTP     *http.Client
	Logger   *slog.Logger
}

type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	apiVersion   string
	tokenURL     string
	hc           *http.Client
	cb           *gobreaker.CircuitBreaker[*rawResponse]
	log          *slog.Logger
}

// callerGone marks a failure caused by the caller's own context ending.
type callerGone struct{ err error }

func (e *callerGone) Error() string { return e.err.Error() }

func (e *callerGone) Unwrap() error { return e.err }

type rawResponse struct {
	status int
	body   []byte
}

func BaseURLFor(environment string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "", "sandbox", "test":
		return SandboxBaseURL, nil
	case "production", "prod":
		return ProductionBaseURL, nil
	default:
		return "", fmt.Errorf("unknown cashfree environment %q", environment)
	}
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("cashfree credentials incomplete")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		u, err := BaseURLFor(cfg.Environment)
		if err != nil {
			return nil, err
		}
		base = u
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	hc := cfg.HTTP
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        "cashfree",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A caller that gave up says nothing about the gateway's health.
		IsExcluded: func(err error) bool {
			var gone *callerGone
			return errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      base,
		apiVersion:   apiVersion,
		tokenURL:     cfg.TokenURL,
		hc:           hc,
		cb:           cb,
		log:          log,
	}, nil
}

type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type CreateOrderRequest struct {
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	Customer  CustomerDetails
	ReturnURL string
	NotifyURL string
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type createOrderBody struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     json.Number     `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderMeta       *orderMeta      `json:"order_meta,omitempty"`
}

// RemoteOrder is the gateway's order record. Raw keeps every field the
// gateway sent, typed or not.
type RemoteOrder struct {
	OrderID          string          `json:"order_id"`
	CFOrderID        string          `json:"cf_order_id,omitempty"`
	PaymentSessionID string          `json:"payment_session_id"`
	OrderStatus      string          `json:"order_status"`
	OrderAmount      decimal.Decimal `json:"order_amount"`
	OrderCurrency    string          `json:"order_currency"`
	PaymentLinks     json.RawMessage `json:"payment_links,omitempty"`
	Raw              json.RawMessage `json:"-"`
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Customer.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customer id required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, fmt.Errorf("%w: order id required", ErrInvalidRequest)
	}
	currency := req.Currency
	if currency == "" {
		currency = domain.Currency
	}
	body := createOrderBody{
		OrderID:         req.OrderID,
		OrderAmount:     json.Number(req.Amount.StringFixed(2)),
		OrderCurrency:   currency,
		CustomerDetails: req.Customer,
	}
	if req.ReturnURL != "" || req.NotifyURL != "" {
		body.OrderMeta = &orderMeta{ReturnURL: req.ReturnURL, NotifyURL: req.NotifyURL}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/orders", raw, "")
	if err != nil {
		return nil, err
	}
	var out RemoteOrder
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("decode create order response: %w", err)
	}
	if strings.TrimSpace(out.PaymentSessionID) == "" {
		return nil, &GatewayRequestFailed{Status: resp.status, Body: "missing payment_session_id"}
	}
	out.Raw = json.RawMessage(resp.body)
	return &out, nil
}

type tokenResp struct {
	Token string `json:"token"`
	Data  struct {
		Token string `json:"token"`
	} `json:"data"`
}

// FetchAccessToken returns a bearer token when a token endpoint is
// configured, and an empty token otherwise.
func (c *Client) FetchAccessToken(ctx context.Context) (string, error) {
	if c.tokenURL == "" {
		return "", nil
	}
	resp, err := c.do(ctx, http.MethodPost, c.tokenURL, nil, "")
	if err != nil {
		return "", err
	}
	var out tokenResp
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	tok := out.Data.Token
	if tok == "" {
		tok = out.Token
	}
	if tok == "" {
		return "", &GatewayRequestFailed{Status: resp.status, Body: "missing token"}
	}
	return tok, nil
}

type paymentEntity struct {
	PaymentStatus   string          `json:"payment_status"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"`
	PaymentCurrency string          `json:"payment_currency"`
	PaymentTime     string          `json:"payment_time"`
}

func (c *Client) FetchPaymentStatus(ctx context.Context, orderID, token string) (*domain.PaymentResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order id required", ErrInvalidRequest)
	}
	u := c.baseURL + "/orders/" + url.PathEscape(orderID) + "/payments"
	resp, err := c.do(ctx, http.MethodGet, u, nil, token)
	if err != nil {
		return nil, err
	}
	var payments []paymentEntity
	if err := json.Unmarshal(resp.body, &payments); err != nil {
		return nil, fmt.Errorf("decode payments response: %w", err)
	}
	return pickPayment(orderID, payments), nil
}

// pickPayment prefers a successful attempt, then the most recent one.
func pickPayment(orderID string, payments []paymentEntity) *domain.PaymentResult {
	res := &domain.PaymentResult{OrderID: orderID, Status: domain.PaymentPending}
	if len(payments) == 0 {
		return res
	}
	sorted := make([]paymentEntity, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return parseTime(sorted[i].PaymentTime).After(parseTime(sorted[j].PaymentTime))
	})
	chosen := sorted[0]
	for _, p := range sorted {
		if NormalizeStatus(p.PaymentStatus) == domain.PaymentSuccess {
			chosen = p
			break
		}
	}
	res.Status = NormalizeStatus(chosen.PaymentStatus)
	res.Amount = chosen.PaymentAmount
	res.Currency = chosen.PaymentCurrency
	res.Time = parseTime(chosen.PaymentTime)
	return res
}

// NormalizeStatus maps the gateway vocabulary onto PaymentStatus. Unknown
// values are PENDING, never a success.
func NormalizeStatus(s string) domain.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS":
		return domain.PaymentSuccess
	case "FAILED", "VOID":
		return domain.PaymentFailed
	case "CANCELLED", "USER_DROPPED":
		return domain.PaymentCancelled
	default:
		return domain.PaymentPending
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, token string) (*rawResponse, error) {
	start := time.Now()
	resp, err := c.cb.Execute(func() (*rawResponse, error) {
		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rdr)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("x-client-id", c.clientID)
		req.Header.Set("x-client-secret", c.clientSecret)
		req.Header.Set("x-api-version", c.apiVersion)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		r, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &callerGone{err: err}
			}
			return nil, err
		}
		defer r.Body.Close()
		b, err := io.ReadAll(r.Body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &callerGone{err: err}
			}
			return nil, err
		}
		out := &rawResponse{status: r.StatusCode, body: b}
		if r.StatusCode >= 500 {
			// counted by the breaker
			return out, &GatewayRequestFailed{Status: r.StatusCode, Body: strings.TrimSpace(string(b))}
		}
		return out, nil
	})
	path := u
	if pu, perr := url.Parse(u); perr == nil {
		path = pu.Path
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.log.Warn("gateway call rejected", "method", method, "path", path, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if err != nil {
		c.log.Error("gateway call failed", "method", method, "path", path, "duration", time.Since(start), "err", err)
		return nil, err
	}
	c.log.Debug("gateway call", "method", method, "path", path, "status", resp.status, "duration", time.Since(start))
	if resp.status < 200 || resp.status >= 300 {
		return nil, &GatewayRequestFailed{Status: resp.status, Body: strings.TrimSpace(string(resp.body))}
	}
	return resp, nil
}
