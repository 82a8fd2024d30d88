package domain

import "errors"

// Sentinel errors for customer operations.
var (
	// ErrBadRequest indicates malformed or incomplete input.
	// HTTP Status: 400 Bad Request
	ErrBadRequest = errors.New("bad request")

	// ErrCustomerNotFound indicates the referenced customer does not exist.
	// HTTP Status: 404 Not Found
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrCustomerExists indicates a customer with the same customerId, email or userName exists.
	// HTTP Status: 405 Method Not Allowed
	ErrCustomerExists = errors.New("customer already exists")
)

// Storage-level errors returned by Table implementations.
var (
	// ErrItemNotFound is returned by Table.Get when no item has the key.
	ErrItemNotFound = errors.New("item not found")

	// ErrConditionFailed is returned by Table.Update and Table.Delete when the key
	// condition does not hold.
	ErrConditionFailed = errors.New("conditional check failed")
)
