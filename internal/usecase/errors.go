package usecase

import (
	"errors"
	"fmt"

	"felixmart/internal/domain"
)

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrConflict string

func (e ErrConflict) Error() string { return string(e) }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

type ErrForbidden string

func (e ErrForbidden) Error() string { return string(e) }

// PersistenceError is an Order Store failure. A checkout attempt that hits
// one stops before the gateway is contacted.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// VerificationError means the payment status could not be determined.
type VerificationError struct {
	OrderID string
	Err     error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify payment for order %s: %v", e.OrderID, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

func storeErr(op, what string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotFound(what)
	}
	return &PersistenceError{Op: op, Err: err}
}
