package cashfree

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felixmart/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{
		ClientID:     "TEST_ID",
		ClientSecret: "cfsk_test",
		BaseURL:      srv.URL + "/pg",
		HTTP:         srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func validOrder() CreateOrderRequest {
	return CreateOrderRequest{
		OrderID:   "ord-1",
		Amount:    decimal.RequireFromString("270.00"),
		Customer:  CustomerDetails{CustomerID: "user-1", CustomerEmail: "a@b.in", CustomerPhone: "9999999999"},
		ReturnURL: "https://felixmart.in/payment/return?order_id=ord-1",
	}
}

func TestBaseURLFor(t *testing.T) {
	u, err := BaseURLFor("production")
	require.NoError(t, err)
	assert.Equal(t, ProductionBaseURL, u)

	u, err = BaseURLFor("sandbox")
	require.NoError(t, err)
	assert.Equal(t, SandboxBaseURL, u)

	_, err = BaseURLFor("staging")
	assert.Error(t, err)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{ClientID: "id"})
	assert.Error(t, err)
}

func TestCreateOrder_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pg/orders", r.URL.Path)
		assert.Equal(t, "TEST_ID", r.Header.Get("x-client-id"))
		assert.Equal(t, "cfsk_test", r.Header.Get("x-client-secret"))
		assert.Equal(t, defaultAPIVersion, r.Header.Get("x-api-version"))

		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "ord-1", body["order_id"])
		assert.Equal(t, 270.0, body["order_amount"])
		assert.Equal(t, "INR", body["order_currency"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cf_order_id":"2149460581","order_id":"ord-1","payment_session_id":"session_abc","order_status":"ACTIVE","order_amount":270.00,"order_currency":"INR","payment_links":{"web":"https://payments.cashfree.com/x"}}`))
	})

	out, err := c.CreateOrder(context.Background(), validOrder())
	require.NoError(t, err)
	assert.Equal(t, "ord-1", out.OrderID)
	assert.Equal(t, "session_abc", out.PaymentSessionID)
	assert.True(t, out.OrderAmount.Equal(decimal.NewFromInt(270)))
	assert.Contains(t, string(out.Raw), "cf_order_id")
	assert.Contains(t, string(out.PaymentLinks), "payments.cashfree.com")
}

func TestCreateOrder_RejectsBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	req := validOrder()
	req.Amount = decimal.Zero
	_, err := c.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	req = validOrder()
	req.Amount = decimal.NewFromInt(-5)
	_, err = c.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	req = validOrder()
	req.Customer.CustomerID = " "
	_, err = c.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Equal(t, int32(0), calls.Load())
}

func TestCreateOrder_Non2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"authentication Failed","code":"request_failed","type":"authentication_error"}`))
	})

	_, err := c.CreateOrder(context.Background(), validOrder())
	var gf *GatewayRequestFailed
	require.ErrorAs(t, err, &gf)
	assert.Equal(t, http.StatusUnauthorized, gf.Status)
	assert.Contains(t, gf.Body, "authentication Failed")
}

func TestFetchPaymentStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus domain.PaymentStatus
		wantAmount string
	}{
		{"no attempts", `[]`, domain.PaymentPending, "0"},
		{"success", `[{"payment_status":"SUCCESS","payment_amount":270,"payment_currency":"INR","payment_time":"2024-03-01T10:00:00+05:30"}]`, domain.PaymentSuccess, "270"},
		{"success wins over later failure", `[{"payment_status":"FAILED","payment_amount":270,"payment_time":"2024-03-01T11:00:00+05:30"},{"payment_status":"SUCCESS","payment_amount":270,"payment_time":"2024-03-01T10:00:00+05:30"}]`, domain.PaymentSuccess, "270"},
		{"latest attempt", `[{"payment_status":"FAILED","payment_amount":270,"payment_time":"2024-03-01T09:00:00+05:30"},{"payment_status":"USER_DROPPED","payment_amount":270,"payment_time":"2024-03-01T10:00:00+05:30"}]`, domain.PaymentCancelled, "270"},
		{"unknown vocabulary", `[{"payment_status":"FLAGGED","payment_amount":270}]`, domain.PaymentPending, "270"},
		{"missing status", `[{"payment_amount":270}]`, domain.PaymentPending, "270"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/pg/orders/ord-1/payments", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})
			res, err := c.FetchPaymentStatus(context.Background(), "ord-1", "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.True(t, res.Amount.Equal(decimal.RequireFromString(tt.wantAmount)), "amount %s", res.Amount)
			assert.Equal(t, "ord-1", res.OrderID)
		})
	}
}

func TestFetchAccessToken(t *testing.T) {
	var sawBearer atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			_, _ = w.Write([]byte(`{"status":"SUCCESS","data":{"token":"tok-123"}}`))
		default:
			sawBearer.Store(r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c, err := NewClient(Config{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL, TokenURL: srv.URL + "/token", HTTP: srv.Client()})
	require.NoError(t, err)

	tok, err := c.FetchAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)

	_, err = c.FetchPaymentStatus(context.Background(), "ord-1", tok)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", sawBearer.Load())
}

func TestFetchAccessToken_NotConfigured(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call to %s", r.URL.Path)
	})
	tok, err := c.FetchAccessToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	for i := 0; i < 5; i++ {
		_, err := c.FetchPaymentStatus(context.Background(), "ord-1", "")
		var gf *GatewayRequestFailed
		require.ErrorAs(t, err, &gf)
	}
	_, err := c.FetchPaymentStatus(context.Background(), "ord-1", "")
	assert.True(t, errors.Is(err, ErrGatewayUnavailable))
	assert.Equal(t, int32(5), calls.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	for i := 0; i < 7; i++ {
		_, err := c.FetchPaymentStatus(context.Background(), "ord-1", "")
		var gf *GatewayRequestFailed
		require.ErrorAs(t, err, &gf)
	}
	assert.Equal(t, int32(7), calls.Load())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(200 * time.Millisecond):
		}
		_, _ = w.Write([]byte(`[]`))
	})
	for i := 0; i < 6; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := c.FetchPaymentStatus(ctx, "ord-1", "")
		cancel()
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
		assert.False(t, errors.Is(err, ErrGatewayUnavailable))
	}

	res, err := c.FetchPaymentStatus(context.Background(), "ord-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, res.Status)
	assert.Equal(t, int32(7), calls.Load())
}

func TestVerifyWebhook(t *testing.T) {
	c, err := NewClient(Config{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`)
	sig := sign("secret", "1700000000", body)

	assert.NoError(t, c.VerifyWebhook("1700000000", body, sig))
	assert.ErrorIs(t, c.VerifyWebhook("1700000001", body, sig), ErrBadSignature)
	assert.ErrorIs(t, c.VerifyWebhook("", body, sig), ErrBadSignature)
}

func TestParseWebhook(t *testing.T) {
	ev, err := ParseWebhook([]byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"ord-1","order_amount":270},"payment":{"payment_status":"SUCCESS","payment_amount":270,"payment_currency":"INR"}}}`))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSuccess, ev.Type)
	assert.Equal(t, "ord-1", ev.Data.Order.OrderID)
	assert.True(t, ev.Data.Payment.PaymentAmount.Equal(decimal.NewFromInt(270)))

	_, err = ParseWebhook([]byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{}}`))
	assert.Error(t, err)
}

func TestMockGateway(t *testing.T) {
	m := NewMockGateway("secret")
	ctx := context.Background()

	res, err := m.FetchPaymentStatus(ctx, "ord-x", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, res.Status)

	out, err := m.CreateOrder(ctx, validOrder())
	require.NoError(t, err)
	assert.Equal(t, "ord-1", out.OrderID)
	assert.NotEmpty(t, out.PaymentSessionID)

	res, err = m.FetchPaymentStatus(ctx, "ord-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, res.Status)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(270)))
}
