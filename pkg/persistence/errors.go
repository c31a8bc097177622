// Package persistence provides standardized error types for record-store
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard record-store error types that all implementations should use.
var (
	// ErrProviderNotFound indicates no provider bundle exists for the id.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrServiceNotFound indicates no service bundle exists for the id.
	ErrServiceNotFound = errors.New("service not found")

	// ErrRevisionConflict indicates an optimistic save lost against a
	// concurrent write to the same record.
	ErrRevisionConflict = errors.New("revision conflict")

	// ErrDuplicateTemplate indicates the store rejected a second service
	// template for the same provider (stores with a uniqueness constraint).
	ErrDuplicateTemplate = errors.New("service template already exists")
)

// BundleError wraps record-store errors with operation context.
type BundleError struct {
	Op  string // Operation being performed (e.g. "GetByID", "Save")
	ID  string // Bundle id if applicable
	Err error  // Underlying error
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("%s failed for bundle %s: %v", e.Op, e.ID, e.Err)
}

func (e *BundleError) Unwrap() error {
	return e.Err
}

func (e *BundleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewBundleError creates a record-store error with context.
func NewBundleError(op, id string, err error) *BundleError {
	return &BundleError{Op: op, ID: id, Err: err}
}

// IsNotFound checks whether an error indicates a missing record of either kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProviderNotFound) || errors.Is(err, ErrServiceNotFound)
}

// IsRevisionConflict checks whether an error indicates a lost optimistic write.
func IsRevisionConflict(err error) bool {
	return errors.Is(err, ErrRevisionConflict)
}

// IsDuplicateTemplate checks whether an error indicates a rejected duplicate
// service template.
func IsDuplicateTemplate(err error) bool {
	return errors.Is(err, ErrDuplicateTemplate)
}
