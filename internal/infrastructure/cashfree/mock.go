package cashfree

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"felixmart/internal/domain"
)

// MockGateway stands in for the real gateway when mock mode is switched on
// at startup. Every created order reports a successful payment for the
// amount it was created with.
type MockGateway struct {
	Secret string

	mu     sync.Mutex
	orders map[string]CreateOrderRequest
}

func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{Secret: secret, orders: map[string]CreateOrderRequest{}}
}

func (m *MockGateway) CreateOrder(_ context.Context, req CreateOrderRequest) (*RemoteOrder, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Customer.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customer id required", ErrInvalidRequest)
	}
	m.mu.Lock()
	m.orders[req.OrderID] = req
	m.mu.Unlock()
	currency := req.Currency
	if currency == "" {
		currency = domain.Currency
	}
	return &RemoteOrder{
		OrderID:          req.OrderID,
		PaymentSessionID: "session_" + req.OrderID,
		OrderStatus:      "ACTIVE",
		OrderAmount:      req.Amount,
		OrderCurrency:    currency,
	}, nil
}

func (m *MockGateway) FetchAccessToken(context.Context) (string, error) {
	return "", nil
}

func (m *MockGateway) FetchPaymentStatus(_ context.Context, orderID, _ string) (*domain.PaymentResult, error) {
	m.mu.Lock()
	req, ok := m.orders[orderID]
	m.mu.Unlock()
	if !ok {
		return &domain.PaymentResult{OrderID: orderID, Status: domain.PaymentPending}, nil
	}
	return &domain.PaymentResult{
		OrderID:  orderID,
		Status:   domain.PaymentSuccess,
		Amount:   req.Amount,
		Currency: domain.Currency,
		Time:     time.Now().UTC(),
	}, nil
}

func (m *MockGateway) VerifyWebhook(timestamp string, body []byte, signature string) error {
	return verifySignature(m.Secret, timestamp, body, signature)
}
