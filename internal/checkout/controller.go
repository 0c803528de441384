package checkout

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"felixmart/internal/domain"
	"felixmart/internal/usecase"
)

type Carts interface {
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
}

type Orders interface {
	Place(ctx context.Context, userID string, shipping domain.ShippingAddress, cart []domain.CartItem) (*domain.Order, error)
	Get(ctx context.Context, p domain.Principal, id string) (*domain.Order, error)
	AttachSession(ctx context.Context, id, sessionID string) error
	ConfirmPayment(ctx context.Context, id string, paid *domain.PaymentResult) (bool, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, req usecase.CheckoutRequest) (*usecase.CheckoutResponse, error)
}

type Verifier interface {
	Verify(ctx context.Context, req usecase.VerifyRequest) (*usecase.VerifyResponse, error)
}

type Options struct {
	// CheckoutURL is the gateway's hosted payment page.
	CheckoutURL string
	ReturnURL   func(orderID, paymentSessionID string) string
	MockMode    bool
	MockDelay   time.Duration
	// ConfirmOnVerify marks the order paid once the gateway reports SUCCESS.
	ConfirmOnVerify bool
}

// Controller drives a checkout attempt from shipping details to a terminal
// state. It holds no per-attempt state between requests.
type Controller struct {
	Carts    Carts
	Orders   Orders
	Sessions Sessions
	Verifier Verifier
	Opts     Options
	Log      *slog.Logger
}

// Submit places an order from the caller's cart and opens a payment session
// for it. The cart is left intact; it is cleared only once payment is
// confirmed. On error the returned attempt shows where the flow stopped.
func (c *Controller) Submit(ctx context.Context, p domain.Principal, shipping domain.ShippingAddress) (*Attempt, error) {
	a := newAttempt(StateCollecting)
	if err := shipping.Validate(); err != nil {
		a.Error = err.Error()
		return a, err
	}
	cart, err := c.Carts.List(ctx, p.UserID)
	if err != nil {
		return c.abort(a, err)
	}
	if len(cart) == 0 {
		err := &domain.ValidationError{Msg: "cart is empty"}
		a.Error = err.Error()
		return a, err
	}
	a.moveTo(StateSubmitting)

	order, err := c.Orders.Place(ctx, p.UserID, shipping, cart)
	if err != nil {
		return c.abort(a, err)
	}
	a.OrderID = order.ID
	total := order.TotalAmount
	a.Total = &total
	log := c.logger().With("order_id", order.ID, "user_id", p.UserID)

	cust := p.Customer(shipping.Phone)
	sess, err := c.Sessions.CreateSession(ctx, usecase.CheckoutRequest{
		Amount:        order.TotalAmount,
		CustomerID:    cust.ID,
		CustomerEmail: cust.Email,
		CustomerPhone: cust.Phone,
		OrderID:       order.ID,
	})
	if err != nil {
		log.Warn("checkout aborted, order left pending", "err", err)
		return c.abort(a, err)
	}
	if err := c.Orders.AttachSession(ctx, order.ID, sess.PaymentSessionID); err != nil {
		return c.abort(a, err)
	}
	a.PaymentSessionID = sess.PaymentSessionID
	a.ReturnURL = c.returnURL(order.ID, sess.PaymentSessionID)
	a.moveTo(StateAwaitingRedirect)

	if c.Opts.MockMode {
		a.RetryAfter = c.Opts.MockDelay
		a.moveTo(StatePending)
		log.Info("mock mode, skipping gateway redirect")
		return a, nil
	}
	a.RedirectURL = c.redirectURL(sess.PaymentSessionID, a.ReturnURL)
	log.Info("checkout awaiting gateway redirect")
	return a, nil
}

// Return handles the shopper coming back from the hosted payment page.
func (c *Controller) Return(ctx context.Context, p domain.Principal, orderID, paymentSessionID string) (*Attempt, error) {
	a := newAttempt(StateAwaitingRedirect)
	a.moveTo(StateReturned)
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		err := &domain.ValidationError{Fields: []string{"order_id"}, Msg: "order_id required"}
		a.Error = err.Error()
		return a, err
	}
	order, err := c.Orders.Get(ctx, p, orderID)
	if err != nil {
		a.Error = err.Error()
		return a, err
	}
	a.OrderID = order.ID
	total := order.TotalAmount
	a.Total = &total
	a.PaymentSessionID = strings.TrimSpace(paymentSessionID)
	log := c.logger().With("order_id", order.ID, "user_id", p.UserID)

	if a.PaymentSessionID == "" {
		a.moveTo(StatePending)
		log.Info("returned without payment session, payment unverified")
		return a, nil
	}

	a.moveTo(StateVerifying)
	res, err := c.Verifier.Verify(ctx, usecase.VerifyRequest{OrderID: order.ID, PaymentSessionID: a.PaymentSessionID})
	if err != nil {
		var verr *usecase.VerificationError
		if !errors.As(err, &verr) {
			return c.abort(a, err)
		}
		a.PaymentStatus = domain.PaymentUnknown
		a.Error = err.Error()
		a.moveTo(StatePending)
		return a, nil
	}
	a.PaymentStatus = res.PaymentStatus
	if res.PaymentStatus != domain.PaymentSuccess {
		a.moveTo(StateFailed)
		log.Info("payment not successful", "payment_status", string(res.PaymentStatus))
		return a, nil
	}
	if c.Opts.ConfirmOnVerify {
		confirmed, err := c.Orders.ConfirmPayment(ctx, order.ID, res.Result)
		if err != nil {
			// The gateway took the money but the order could not be marked
			// paid; leave it for reconciliation.
			log.Error("confirm payment failed", "err", err)
			a.Error = err.Error()
			a.moveTo(StatePending)
			return a, nil
		}
		if !confirmed {
			status := order.Status
			if cur, err := c.Orders.Get(ctx, p, order.ID); err == nil {
				status = cur.Status
			}
			// A webhook that got there first is not worth reporting.
			if status != domain.OrderPaid {
				a.Error = "order not pending: " + string(status)
				log.Warn("payment captured for order that is no longer pending", "status", string(status))
			}
		}
	}
	a.moveTo(StateSuccess)
	return a, nil
}

func (c *Controller) abort(a *Attempt, err error) (*Attempt, error) {
	a.Error = err.Error()
	return a, err
}

func (c *Controller) returnURL(orderID, sessionID string) string {
	if c.Opts.ReturnURL == nil {
		return ""
	}
	return c.Opts.ReturnURL(orderID, sessionID)
}

func (c *Controller) redirectURL(sessionID, returnURL string) string {
	q := url.Values{}
	q.Set("payment_session_id", sessionID)
	if returnURL != "" {
		q.Set("return_url", returnURL)
	}
	sep := "?"
	if strings.Contains(c.Opts.CheckoutURL, "?") {
		sep = "&"
	}
	return c.Opts.CheckoutURL + sep + q.Encode()
}

func (c *Controller) logger() *slog.Logger {
	if c.Log == nil {
		return slog.Default()
	}
	return c.Log
}
