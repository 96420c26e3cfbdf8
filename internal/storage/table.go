// Package storage keeps whole tables of records as JSON blobs in a keyValue.Store.
//
// A table is a mapping from identifier to record stored under one key. Writes go
// through Update, which re-reads the blob and only saves when nobody else wrote
// in between, so a multi-record change inside one table lands completely or not at all.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chatapp-local/internal/keyValue"

	"go.uber.org/zap"
)

const maxUpdateAttempts = 8

var (
	ErrStorageCorrupt = errors.New("stored data is corrupt")
	ErrConflict       = errors.New("too many concurrent writers")
)

type Table[T any] struct {
	kv    keyValue.Store
	key   string
	sugar *zap.SugaredLogger
}

func NewTable[T any](kv keyValue.Store, key string, sugar *zap.SugaredLogger) *Table[T] {
	return &Table[T]{kv: kv, key: key, sugar: sugar}
}

func (t *Table[T]) Key() string {
	return t.key
}

func (t *Table[T]) load(ctx context.Context) (map[string]T, int64, error) {
	entry, err := t.kv.Get(ctx, t.key)
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", t.key, err)
	}

	records := make(map[string]T)
	if !entry.Exists() || entry.Value == "" {
		return records, entry.Revision, nil
	}

	if err := json.Unmarshal([]byte(entry.Value), &records); err != nil {
		return nil, 0, fmt.Errorf("load %s: %w: %w", t.key, ErrStorageCorrupt, err)
	}
	if records == nil {
		records = make(map[string]T)
	}

	return records, entry.Revision, nil
}

// Load returns every record of the table. A table that was never written is empty.
func (t *Table[T]) Load(ctx context.Context) (map[string]T, error) {
	records, _, err := t.load(ctx)
	return records, err
}

func (t *Table[T]) Get(ctx context.Context, id string) (T, bool, error) {
	records, err := t.Load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	record, ok := records[id]
	return record, ok, nil
}

// Save overwrites the whole table.
func (t *Table[T]) Save(ctx context.Context, records map[string]T) error {
	bytes, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("save %s: %w", t.key, err)
	}

	if _, err := t.kv.Put(ctx, t.key, string(bytes), keyValue.AnyRevision, 0); err != nil {
		return fmt.Errorf("save %s: %w", t.key, err)
	}
	return nil
}

// Update loads the table, lets fn mutate it and writes it back if the stored
// revision is still the one that was read. On a lost race the whole cycle runs
// again, so fn must not keep state between calls. If fn returns an error
// nothing is written and the error is returned as is.
func (t *Table[T]) Update(ctx context.Context, fn func(records map[string]T) error) error {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		records, revision, err := t.load(ctx)
		if err != nil {
			return err
		}

		if err := fn(records); err != nil {
			return err
		}

		bytes, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("save %s: %w", t.key, err)
		}

		_, err = t.kv.Put(ctx, t.key, string(bytes), revision, 0)
		if err == nil {
			return nil
		}
		if !errors.Is(err, keyValue.ErrRevisionMismatch) {
			return fmt.Errorf("save %s: %w", t.key, err)
		}

		t.sugar.Debugf("Table [%s] changed while updating, attempt %d of %d", t.key, attempt, maxUpdateAttempts)

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return fmt.Errorf("update %s: %w", t.key, ErrConflict)
}
