package domain

import (
	"errors"
	"strings"
)

// ValidationError is a user-facing input problem. It is never retried.
type ValidationError struct {
	Fields []string
	Msg    string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	return e.Msg + ": " + strings.Join(e.Fields, ", ")
}

var ErrNotFound = errors.New("not found")
