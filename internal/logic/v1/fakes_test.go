package v1

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/duynhne/customer-service/internal/core/domain"
)

// fakeTable is an in-memory domain.Table with the same key-condition semantics
// as the real backends.
type fakeTable struct {
	items   map[string]domain.Item
	order   []string
	scanErr error
	putErr  error
	scans   [][]domain.Condition
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: map[string]domain.Item{}}
}

func (f *fakeTable) Scan(ctx context.Context, anyOf ...domain.Condition) ([]domain.Item, error) {
	f.scans = append(f.scans, anyOf)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var out []domain.Item
	for _, key := range f.order {
		item := f.items[key]
		if len(anyOf) == 0 || matchesAny(item, anyOf) {
			out = append(out, cloneItem(item))
		}
	}
	return out, nil
}

func (f *fakeTable) Get(ctx context.Context, key string) (domain.Item, error) {
	item, ok := f.items[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, domain.ErrItemNotFound)
	}
	return cloneItem(item), nil
}

func (f *fakeTable) Put(ctx context.Context, item domain.Item) error {
	if f.putErr != nil {
		return f.putErr
	}
	key := item[domain.AttrCustomerID].(string)
	if _, ok := f.items[key]; !ok {
		f.order = append(f.order, key)
	}
	f.items[key] = cloneItem(item)
	return nil
}

func (f *fakeTable) Update(ctx context.Context, key string, set domain.Item) (domain.Item, error) {
	item, ok := f.items[key]
	if !ok {
		return nil, fmt.Errorf("update %q: %w", key, domain.ErrConditionFailed)
	}
	for name, v := range cloneItem(set) {
		item[name] = v
	}
	return cloneItem(item), nil
}

func (f *fakeTable) Delete(ctx context.Context, key string) error {
	if _, ok := f.items[key]; !ok {
		return fmt.Errorf("delete %q: %w", key, domain.ErrConditionFailed)
	}
	delete(f.items, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func matchesAny(item domain.Item, anyOf []domain.Condition) bool {
	for _, c := range anyOf {
		if v, ok := item[c.Attribute].(string); ok && v == c.Value {
			return true
		}
	}
	return false
}

func cloneItem(item domain.Item) domain.Item {
	out := domain.Item{}
	for k, v := range item {
		if m, ok := v.(map[string]any); ok {
			v = maps.Clone(m)
		}
		out[k] = v
	}
	return out
}

type fakeBlobStore struct {
	keys    []string
	objects map[string][]byte
	listErr error
	putErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) List(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.keys...), nil
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return err
	}
	if _, ok := f.objects[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.objects[key] = buf.Bytes()
	return nil
}

// tickingClock returns a clock that advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(time.Second)
		return now
	}
}

var errStorageDown = errors.New("storage unavailable")
