package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	// PaymentUnknown means the gateway could not be asked, not that the
	// payment failed.
	PaymentUnknown PaymentStatus = "UNKNOWN"
)

type PaymentResult struct {
	OrderID  string
	Status   PaymentStatus
	Amount   decimal.Decimal
	Currency string
	Time     time.Time
}
