package repository

import "errors"

// Sentinel errors returned by repositories. Services translate these into
// the DomainError taxonomy.
var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a compare-and-set write found the row changed
	// since the caller last observed it.
	ErrConflict = errors.New("concurrent update conflict")
)
