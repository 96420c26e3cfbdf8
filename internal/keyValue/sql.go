package keyValue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"chatapp-local/internal/database"

	"go.uber.org/zap"
)

// SQL keeps values in the key_values table created by database.Setup.
type SQL struct {
	db        *sql.DB
	dialect   database.Dialect
	sugar     *zap.SugaredLogger
	now       func() time.Time
	writeLock sync.Mutex
}

var _ Store = (*SQL)(nil)

func NewSQL(sugar *zap.SugaredLogger, db *sql.DB, dialect database.Dialect) *SQL {
	return &SQL{
		db:      db,
		dialect: dialect,
		sugar:   sugar,
		now:     time.Now,
	}
}

func (s *SQL) Get(ctx context.Context, key string) (Entry, error) {
	s.sugar.Debugf("Getting value of key [%s] from %s", key, s.dialect)

	var (
		entry     Entry
		expiresAt int64
	)

	err := s.db.QueryRowContext(ctx, "SELECT value, revision, expires_at FROM key_values WHERE name = ?", key).
		Scan(&entry.Value, &entry.Revision, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, nil
	} else if err != nil {
		return Entry{}, fmt.Errorf("query key: %w", err)
	}

	if expiresAt > 0 && expiresAt <= s.now().UnixMilli() {
		return Entry{}, nil
	}

	return entry, nil
}

func (s *SQL) Put(ctx context.Context, key string, value string, expectedRevision int64, expires time.Duration) (int64, error) {
	s.sugar.Debugf("Setting value of key [%s] in %s, expected revision [%d]", key, s.dialect, expectedRevision)

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	now := s.now().UnixMilli()

	var expiresAt int64
	if expires > 0 {
		expiresAt = now + expires.Milliseconds()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// deleted and expired rows stay behind so their revision keeps counting
	var (
		current       int64
		currentExpiry int64
		found         = true
	)
	err = tx.QueryRowContext(ctx, "SELECT revision, expires_at FROM key_values WHERE name = ?", key).Scan(&current, &currentExpiry)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return 0, fmt.Errorf("query revision: %w", err)
	}

	live := current
	if currentExpiry > 0 && currentExpiry <= now {
		live = 0
	}

	if !revisionMatches(expectedRevision, live) {
		return 0, ErrRevisionMismatch
	}

	var result sql.Result
	if !found {
		result, err = tx.ExecContext(ctx, "INSERT INTO key_values (name, value, revision, expires_at) VALUES (?, ?, 1, ?)", key, value, expiresAt)
	} else {
		result, err = tx.ExecContext(ctx, "UPDATE key_values SET value = ?, revision = ?, expires_at = ? WHERE name = ? AND revision = ?", value, current+1, expiresAt, key, current)
	}
	if err != nil {
		return 0, fmt.Errorf("write key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		return 0, ErrRevisionMismatch
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return current + 1, nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	s.sugar.Debugf("Deleting key [%s] from %s", key, s.dialect)

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	// expires_at 1 is long past, which marks the row as deleted
	if _, err := s.db.ExecContext(ctx, "UPDATE key_values SET value = '', expires_at = 1 WHERE name = ?", key); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
