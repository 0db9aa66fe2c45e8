// Package errors provides the error taxonomy for inventory operations.
package errors

import "errors"

var (
	// ErrValidation is returned for empty or malformed input.
	ErrValidation = errors.New("invalid input")

	// ErrDuplicateName is returned when a product with the same name is already known.
	ErrDuplicateName = errors.New("a product with this name already exists")

	// ErrProductNotFound is returned when the referenced product or id is absent.
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock is returned when a sale exceeds the quantity in stock.
	ErrInsufficientStock = errors.New("not enough quantity in stock")

	// ErrStorage is returned when the storage engine rejects a statement.
	ErrStorage = errors.New("storage error")
)
