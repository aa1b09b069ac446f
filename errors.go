package salelink

import (
	"errors"
	"fmt"
)

// errors.go

var (
	// ErrNoActiveTarget is returned by an OrderResolver when the context does not
	// designate an order. The Importer turns it into a NoOp outcome.
	ErrNoActiveTarget = errors.New("salelink: no active target order")

	// ErrAlreadyCommitted is returned when a WorkingSet is committed or edited
	// after its first commit.
	ErrAlreadyCommitted = errors.New("salelink: working set already committed")

	// ErrNegativeQuantity is returned when a selection quantity is below zero.
	ErrNegativeQuantity = errors.New("salelink: quantity must not be negative")

	// ErrSelectionIndex is returned when a selection index is out of range.
	ErrSelectionIndex = errors.New("salelink: selection index out of range")

	// ErrProductNotFound is returned by catalogs and price resolvers for unknown products.
	ErrProductNotFound = errors.New("salelink: product not found")

	// ErrOrderNotFound is returned by order lookups for unknown orders.
	ErrOrderNotFound = errors.New("salelink: sale order not found")

	// ErrMixedProductKinds is returned by CountMany when templates and variants
	// are counted in one call.
	ErrMixedProductKinds = errors.New("salelink: templates and variants cannot be counted together")
)

// AuthorizationError is returned when the acting principal cannot be resolved
// or is not allowed to act at all.
type AuthorizationError struct {
	PrincipalID int64
	Reason      string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("salelink: authorization failed for principal %d: %s", e.PrincipalID, e.Reason)
}

// InvalidSelectionError marks a single Selection whose line values could not be
// derived. The Importer skips the selection and carries on with the batch.
type InvalidSelectionError struct {
	Index     int
	ProductID int64
	Reason    string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("salelink: invalid selection #%d (product %d): %s", e.Index, e.ProductID, e.Reason)
}

// StorageError wraps a failure of an underlying store. A commit that fails with
// a StorageError has written nothing.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("salelink: storage failure during %s: %v", e.Op, e.Err)
}

// Unwrap allows errors.Is and errors.As to reach the store error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
