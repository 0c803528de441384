package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const Currency = "INR"

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderPaid           OrderStatus = "paid"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderProcessing     OrderStatus = "processing"
	OrderShipped        OrderStatus = "shipped"
	OrderOutForDelivery OrderStatus = "out for delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
	OrderRefunded       OrderStatus = "refunded"
	OrderFailed         OrderStatus = "failed"
)

var orderStatuses = []OrderStatus{
	OrderPending,
	OrderPaid,
	OrderConfirmed,
	OrderProcessing,
	OrderShipped,
	OrderOutForDelivery,
	OrderDelivered,
	OrderCancelled,
	OrderRefunded,
	OrderFailed,
}

// ParseOrderStatus accepts only the known status values, spelled exactly as
// stored. Anything else is rejected rather than normalized.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range orderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

type ShippingAddress struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

// Validate reports every blank field. Formats are not checked.
func (a ShippingAddress) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"name", a.Name},
		{"address", a.Address},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"phone", a.Phone},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Msg: "shipping information incomplete"}
	}
	return nil
}

type OrderItem struct {
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Status           OrderStatus     `json:"status"`
	Shipping         ShippingAddress `json:"shipping_address"`
	Items            []OrderItem     `json:"items"`
	PaymentSessionID string          `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ItemsTotal is the sum of the line subtotals, without delivery.
func (o *Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

type OrderFilter struct {
	UserID   string
	Status   OrderStatus
	Page     int
	PageSize int
}

func (f OrderFilter) Normalize() OrderFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	return f
}
