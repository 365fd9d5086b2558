package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrRuleNotFound   = fmt.Errorf("%w: rule", ErrNotFound)
	ErrRunNotFound    = fmt.Errorf("%w: run", ErrNotFound)
	ErrUpliftNotFound = fmt.Errorf("%w: uplift result", ErrNotFound)

	// Validation errors
	ErrInvalidRule          = errors.New("invalid rule")
	ErrOverlappingItemSets  = fmt.Errorf("%w: antecedent and consequent overlap", ErrInvalidRule)
	ErrEmptyItemSet         = fmt.Errorf("%w: empty item set", ErrInvalidRule)
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidInput         = errors.New("invalid input")

	// Data sufficiency errors
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Determinism errors
	ErrSeedMismatch = errors.New("seed mismatch")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfiguration, field, reason)
}

func NewInsufficientDataError(identity string, have, need int) error {
	return fmt.Errorf("%w: %s has %d rows, need %d", ErrInsufficientData, identity, have, need)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrInvalidInput)
}
