package cashfree

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrBadSignature = errors.New("webhook signature mismatch")

// VerifyWebhook checks x-webhook-signature: base64(HMAC-SHA256(timestamp+body)).
func (c *Client) VerifyWebhook(timestamp string, body []byte, signature string) error {
	return verifySignature(c.clientSecret, timestamp, body, signature)
}

func verifySignature(secret, timestamp string, body []byte, signature string) error {
	if strings.TrimSpace(timestamp) == "" || strings.TrimSpace(signature) == "" {
		return ErrBadSignature
	}
	want := sign(secret, timestamp, body)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

func sign(secret, timestamp string, body []byte) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(timestamp))
	m.Write(body)
	return base64.StdEncoding.EncodeToString(m.Sum(nil))
}

const (
	EventPaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed  = "PAYMENT_FAILED_WEBHOOK"
	EventUserDropped    = "PAYMENT_USER_DROPPED_WEBHOOK"
)

type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID     string          `json:"order_id"`
			OrderAmount decimal.Decimal `json:"order_amount"`
		} `json:"order"`
		Payment struct {
			PaymentStatus   string          `json:"payment_status"`
			PaymentAmount   decimal.Decimal `json:"payment_amount"`
			PaymentCurrency string          `json:"payment_currency"`
		} `json:"payment"`
	} `json:"data"`
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	if ev.Data.Order.OrderID == "" {
		return nil, errors.New("webhook missing order id")
	}
	return &ev, nil
}
