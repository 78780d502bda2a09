package models

import (
	"errors"
	"strings"
)

var (
	ErrGramNotFound    = errors.New("gram not found")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not the owner of this gram")
	ErrValidation      = errors.New("validation failed")
)

// ValidationErrors collects human readable messages for a failed save.
// It matches ErrValidation under errors.Is.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(v, ", ")
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

// Messages extracts the validation messages from err, if it carries any
func Messages(err error) []string {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v
	}
	return nil
}
