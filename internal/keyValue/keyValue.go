package keyValue

import (
	"context"
	"errors"
	"time"
)

// AnyRevision makes Put overwrite whatever is stored under the key.
const AnyRevision int64 = -1

var ErrRevisionMismatch = errors.New("revision mismatch")

// Entry is a stored value together with its revision. A missing key is the zero Entry.
type Entry struct {
	Value    string
	Revision int64
}

func (e Entry) Exists() bool {
	return e.Revision > 0
}

// Store is a string key-value store whose writes can be made conditional on the
// revision the caller last read. Revisions start at 1 and grow by one per write.
// A deleted or expired key keeps counting where it stopped, so a revision is
// never handed out twice for the same key.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)

	// Put writes value if the stored revision equals expectedRevision (0 means the
	// key must not exist) and returns the new revision. An expires of 0 keeps the
	// value forever.
	Put(ctx context.Context, key string, value string, expectedRevision int64, expires time.Duration) (int64, error)

	Delete(ctx context.Context, key string) error

	Close() error
}

func Set(ctx context.Context, s Store, key string, value string, expires time.Duration) error {
	_, err := s.Put(ctx, key, value, AnyRevision, expires)
	return err
}

func revisionMatches(expected, current int64) bool {
	return expected == AnyRevision || expected == current
}
