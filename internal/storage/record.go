package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chatapp-local/internal/keyValue"
)

// Record is a single JSON value under one key, such as the active-session pointer.
type Record[T any] struct {
	kv  keyValue.Store
	key string
}

func NewRecord[T any](kv keyValue.Store, key string) *Record[T] {
	return &Record[T]{kv: kv, key: key}
}

func (r *Record[T]) Load(ctx context.Context) (T, bool, error) {
	var value T

	entry, err := r.kv.Get(ctx, r.key)
	if err != nil {
		return value, false, fmt.Errorf("load %s: %w", r.key, err)
	}
	if !entry.Exists() {
		return value, false, nil
	}

	if err := json.Unmarshal([]byte(entry.Value), &value); err != nil {
		return value, false, fmt.Errorf("load %s: %w: %w", r.key, ErrStorageCorrupt, err)
	}

	return value, true, nil
}

func (r *Record[T]) Save(ctx context.Context, value T, expires time.Duration) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}

	if err := keyValue.Set(ctx, r.kv, r.key, string(bytes), expires); err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	return nil
}

func (r *Record[T]) Clear(ctx context.Context) error {
	if err := r.kv.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("clear %s: %w", r.key, err)
	}
	return nil
}
