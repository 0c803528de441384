package domain

import "strings"

// Customer is the paying principal as the gateway sees it.
type Customer struct {
	ID    string `json:"customer_id"`
	Email string `json:"customer_email"`
	Phone string `json:"customer_phone"`
}

// Principal is the authenticated caller, resolved from a backend-issued JWT.
type Principal struct {
	UserID string
	Email  string
	Admin  bool
}

// Customer pairs the principal with the phone the shopper gave at checkout.
func (p Principal) Customer(phone string) Customer {
	return Customer{ID: p.UserID, Email: p.Email, Phone: strings.TrimSpace(phone)}
}
