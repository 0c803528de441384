package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"felixmart/internal/domain"
	"felixmart/internal/infrastructure/cashfree"
)

type Gateway interface {
	CreateOrder(ctx context.Context, req cashfree.CreateOrderRequest) (*cashfree.RemoteOrder, error)
	FetchAccessToken(ctx context.Context) (string, error)
	FetchPaymentStatus(ctx context.Context, orderID, token string) (*domain.PaymentResult, error)
}

type CheckoutRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	CustomerID    string          `json:"customer_id"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	OrderID       string          `json:"order_id,omitempty"`
}

type CheckoutResponse struct {
	OrderID          string          `json:"order_id"`
	PaymentSessionID string          `json:"payment_session_id"`
	PaymentLinks     json.RawMessage `json:"payment_links,omitempty"`
	OrderStatus      string          `json:"order_status,omitempty"`
	OrderAmount      json.Number     `json:"order_amount,omitempty"`
	OrderCurrency    string          `json:"order_currency,omitempty"`
}

// CheckoutService opens a hosted payment session for an order. It keeps no
// state of its own; the session id goes straight back to the caller.
type CheckoutService struct {
	Gateway Gateway
	// ReturnURL builds the page the gateway sends the shopper back to.
	ReturnURL func(orderID, paymentSessionID string) string
	NotifyURL string
	Now       func() time.Time
	Log       *slog.Logger
}

func (r CheckoutRequest) Customer() domain.Customer {
	return domain.Customer{
		ID:    strings.TrimSpace(r.CustomerID),
		Email: strings.TrimSpace(r.CustomerEmail),
		Phone: strings.TrimSpace(r.CustomerPhone),
	}
}

func (s *CheckoutService) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	cust := req.Customer()
	var missing []string
	if !req.Amount.IsPositive() {
		missing = append(missing, "amount")
	}
	if cust.ID == "" {
		missing = append(missing, "customer_id")
	}
	if len(missing) > 0 {
		return nil, &domain.ValidationError{Fields: missing, Msg: "invalid checkout request"}
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		orderID = fmt.Sprintf("order_%d", s.now().UnixMilli())
	}
	returnURL := ""
	if s.ReturnURL != nil {
		returnURL = s.ReturnURL(orderID, "")
	}
	log := s.logger().With("order_id", orderID)
	remote, err := s.Gateway.CreateOrder(ctx, cashfree.CreateOrderRequest{
		OrderID:  orderID,
		Amount:   req.Amount,
		Currency: domain.Currency,
		Customer: cashfree.CustomerDetails{
			CustomerID:    cust.ID,
			CustomerEmail: cust.Email,
			CustomerPhone: cust.Phone,
		},
		ReturnURL: returnURL,
		NotifyURL: s.NotifyURL,
	})
	if err != nil {
		log.Error("create gateway order failed", "err", err)
		return nil, err
	}
	if remote.OrderID != "" && remote.OrderID != orderID {
		log.Error("gateway returned a different order id", "gateway_order_id", remote.OrderID)
		return nil, &cashfree.GatewayRequestFailed{
			Status: http.StatusBadGateway,
			Body:   fmt.Sprintf("order_id mismatch: sent %s, got %s", orderID, remote.OrderID),
		}
	}
	log.Info("payment session created", "amount", req.Amount.StringFixed(2))
	out := &CheckoutResponse{
		OrderID:          orderID,
		PaymentSessionID: remote.PaymentSessionID,
		PaymentLinks:     remote.PaymentLinks,
		OrderStatus:      remote.OrderStatus,
		OrderCurrency:    remote.OrderCurrency,
	}
	if !remote.OrderAmount.IsZero() {
		out.OrderAmount = json.Number(remote.OrderAmount.StringFixed(2))
	}
	return out, nil
}

func (s *CheckoutService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *CheckoutService) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
