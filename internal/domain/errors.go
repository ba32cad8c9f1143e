package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

var (
	// ErrInvalidOrder is returned for malformed input. Nothing was mutated.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrContention is returned when the optimistic retry budget is exhausted. Safe to retry.
	ErrContention = errors.New("contention")

	// ErrInternalConsistency signals a broken book invariant. It indicates a logic defect.
	ErrInternalConsistency = errors.New("internal consistency violation")

	// ErrSymbolTableFull is returned when every instrument slot is already bound.
	ErrSymbolTableFull = errors.New("symbol table full")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)

// InvalidOrderError describes which input field was rejected.
type InvalidOrderError struct {
	Field  string
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return "invalid order [" + e.Field + "]: " + e.Reason
}

func (e *InvalidOrderError) Is(target error) bool {
	return target == ErrInvalidOrder
}

func (e *InvalidOrderError) IsRetriable() bool {
	return false
}

// NewInvalidOrderError creates an input validation error
func NewInvalidOrderError(field, format string, args ...any) *InvalidOrderError {
	return &InvalidOrderError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ContentionError reports an operation that lost every optimistic commit attempt.
type ContentionError struct {
	Op           string // "add" or "match"
	InstrumentID int
	Attempts     int
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("%s on instrument %d: gave up after %d attempts: %v",
		e.Op, e.InstrumentID, e.Attempts, ErrContention)
}

func (e *ContentionError) Is(target error) bool {
	return target == ErrContention
}

func (e *ContentionError) IsRetriable() bool {
	return true
}

// NewContentionError creates a retriable contention error
func NewContentionError(op string, instrumentID, attempts int) *ContentionError {
	return &ContentionError{Op: op, InstrumentID: instrumentID, Attempts: attempts}
}

// ConsistencyError carries the operation and the invariant that broke.
type ConsistencyError struct {
	Op     string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return e.Op + ": " + ErrInternalConsistency.Error() + ": " + e.Detail
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrInternalConsistency
}

func (e *ConsistencyError) IsRetriable() bool {
	return false
}

// NewConsistencyError creates a non-retriable invariant violation
func NewConsistencyError(op, format string, args ...any) *ConsistencyError {
	return &ConsistencyError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
