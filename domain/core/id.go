package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types. RunID and RuleID are generated (UUID v7);
// StoreID, ItemID and TransactionID are natural keys owned by the
// ingestion source and carried through unchanged.
type (
	RunID         ID
	RuleID        ID
	StoreID       string
	ItemID        string
	TransactionID string
)

// String conversions for domain IDs
func (id RunID) String() string         { return ID(id).String() }
func (id RuleID) String() string        { return ID(id).String() }
func (id StoreID) String() string       { return string(id) }
func (id ItemID) String() string        { return string(id) }
func (id TransactionID) String() string { return string(id) }

// NewRunID creates a fresh run identifier
func NewRunID() RunID {
	return RunID(NewID())
}

// NewRuleID creates a fresh rule identifier
func NewRuleID() RuleID {
	return RuleID(NewID())
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseRuleID parses a string into RuleID
func ParseRuleID(s string) (RuleID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("rule ID cannot be empty")
	}
	return RuleID(s), nil
}

// ParseItemID parses a string into ItemID
func ParseItemID(s string) (ItemID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("item ID cannot be empty")
	}
	return ItemID(s), nil
}

// ParseTransactionID parses a string into TransactionID
func ParseTransactionID(s string) (TransactionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("transaction ID cannot be empty")
	}
	return TransactionID(s), nil
}
