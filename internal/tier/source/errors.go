package source

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category classifies lookup failures.
type Category string

const (
	// CategoryTimeout indicates the store took too long to respond
	CategoryTimeout Category = "timeout"

	// CategoryOutage indicates the store could not be reached
	CategoryOutage Category = "outage"

	// CategoryRejected indicates a non-success response status
	CategoryRejected Category = "rejected"

	// CategoryBadData indicates an unreadable or malformed response
	CategoryBadData Category = "bad_data"

	// CategoryContractMismatch indicates a response whose result tag is unknown
	CategoryContractMismatch Category = "contract_mismatch"

	// CategoryNotFound is reported by GetCategory for ErrNotFound
	CategoryNotFound Category = "not_found"

	// CategoryInternal indicates an unexpected local failure
	CategoryInternal Category = "internal"
)

// LookupError describes a failed lookup with a normalized category.
type LookupError struct {
	Category   Category
	Source     Kind
	Message    string
	Underlying error
}

func (e *LookupError) Error() string {
	prefix := "lookup"
	if e.Source != "" {
		prefix = string(e.Source) + " lookup"
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", prefix, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s [%s]: %s", prefix, e.Category, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Underlying
}

// NewLookupError creates a categorized lookup error.
func NewLookupError(category Category, src Kind, message string, underlying error) *LookupError {
	return &LookupError{
		Category:   category,
		Source:     src,
		Message:    message,
		Underlying: underlying,
	}
}

// GetCategory extracts the failure category from err.
func GetCategory(err error) Category {
	if errors.Is(err, ErrNotFound) {
		return CategoryNotFound
	}
	var le *LookupError
	if errors.As(err, &le) {
		return le.Category
	}
	return CategoryInternal
}

// transportError classifies an error returned while talking to a store.
func transportError(ctx context.Context, src Kind, message string, err error) *LookupError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewLookupError(CategoryTimeout, src, message, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewLookupError(CategoryTimeout, src, message, err)
	}
	return NewLookupError(CategoryOutage, src, message, err)
}
