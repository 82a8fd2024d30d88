package domain

import (
	"context"
	"io"
)

// Item is a stored record: attribute name to value. Values are strings or,
// for the address attribute, a nested map[string]any.
type Item map[string]any

// Condition is an equality predicate on a single attribute.
type Condition struct {
	Attribute string
	Value     string
}

// Table defines the primitive operations of the customer table.
type Table interface {
	// Scan returns every item matching any of the conditions.
	// With no conditions it returns the whole table.
	Scan(ctx context.Context, anyOf ...Condition) ([]Item, error)
	// Get reads an item with strong consistency. Returns ErrItemNotFound if absent.
	Get(ctx context.Context, key string) (Item, error)
	// Put writes an item unconditionally.
	Put(ctx context.Context, item Item) error
	// Update sets the given attributes on an existing item and returns all of its
	// attributes after the write. Returns ErrConditionFailed if the key is absent.
	Update(ctx context.Context, key string, set Item) (Item, error)
	// Delete removes an existing item. Returns ErrConditionFailed if the key is absent.
	Delete(ctx context.Context, key string) error
}

// BlobStore defines the object store operations used for profile images.
type BlobStore interface {
	// List returns every object key in the bucket.
	List(ctx context.Context) ([]string, error)
	// Put uploads data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
}
