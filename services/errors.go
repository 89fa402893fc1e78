package services

import (
	"errors"
	"fmt"

	"github.com/cppla/pulso/store"
)

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransactionFailure  = errors.New("transaction failure")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrTransactionFailure)
}

// storeErr classifies a persistence error. Lookups that miss become ErrNotFound,
// domain errors pass through and anything else aborts as ErrTransactionFailure.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case errors.Is(err, store.ErrNotFound):
		return notFound(op)
	default:
		return fmt.Errorf("%w: %s: %w", ErrTransactionFailure, op, err)
	}
}
