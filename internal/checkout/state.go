package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"felixmart/internal/domain"
)

type State string

const (
	StateCollecting       State = "collecting-shipping-info"
	StateSubmitting       State = "submitting-order"
	StateAwaitingRedirect State = "awaiting-gateway-redirect"
	StateReturned         State = "returned-from-gateway"
	StateVerifying        State = "verifying-payment"
	StateSuccess          State = "terminal:success"
	StateFailed           State = "terminal:failed"
	StatePending          State = "terminal:pending"
)

func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed || s == StatePending
}

// next lists the legal moves out of each state.
var next = map[State][]State{
	StateCollecting:       {StateSubmitting},
	StateSubmitting:       {StateAwaitingRedirect},
	StateAwaitingRedirect: {StateReturned, StatePending},
	StateReturned:         {StateVerifying, StatePending},
	StateVerifying:        {StateSuccess, StateFailed, StatePending},
}

func canMove(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Attempt is one pass through the checkout flow as seen by a single request.
type Attempt struct {
	OrderID          string               `json:"order_id,omitempty"`
	PaymentSessionID string               `json:"payment_session_id,omitempty"`
	State            State                `json:"state"`
	History          []State              `json:"history"`
	Total            *decimal.Decimal     `json:"total_amount,omitempty"`
	RedirectURL      string               `json:"redirect_url,omitempty"`
	ReturnURL        string               `json:"return_url,omitempty"`
	PaymentStatus    domain.PaymentStatus `json:"payment_status,omitempty"`
	// RetryAfter tells a mock-mode client how long to wait before returning.
	RetryAfter time.Duration `json:"-"`
	Error      string        `json:"error,omitempty"`
}

func newAttempt(start State) *Attempt {
	return &Attempt{State: start, History: []State{start}}
}

func (a *Attempt) moveTo(s State) {
	if !canMove(a.State, s) {
		panic("checkout: illegal transition " + string(a.State) + " -> " + string(s))
	}
	a.State = s
	a.History = append(a.History, s)
}
