package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	// ParamsFingerprint identifies a full parameter configuration of a
	// mining run. Equal inputs and parameters must produce equal prints.
	ParamsFingerprint Hash
	// CustomerHash is the anonymized customer identity carried on a
	// transaction. The core never sees raw customer identifiers.
	CustomerHash Hash
)

// Constructors
func NewParamsFingerprint(data []byte) ParamsFingerprint { return ParamsFingerprint(NewHash(data)) }
func NewCustomerHash(raw string) CustomerHash            { return CustomerHash(NewHash([]byte(raw))) }

// String conversions
func (h ParamsFingerprint) String() string { return Hash(h).String() }
func (h CustomerHash) String() string      { return Hash(h).String() }
