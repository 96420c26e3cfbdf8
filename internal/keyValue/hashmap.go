package keyValue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type value struct {
	value    string
	revision int64
	expires  time.Time
	deleted  bool
}

func (v value) expired(now time.Time) bool {
	return !v.expires.IsZero() && !v.expires.After(now)
}

func (v value) gone(now time.Time) bool {
	return v.deleted || v.expired(now)
}

// tombstone keeps only the revision of a removed key.
func tombstone(revision int64) value {
	return value{revision: revision, deleted: true}
}

// Hashmap keeps everything in process memory. It is what a self-contained
// instance uses for caches and what tests use for tables.
type Hashmap struct {
	mutex   sync.RWMutex
	hashmap map[string]value
	sugar   *zap.SugaredLogger
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

var _ Store = (*Hashmap)(nil)

func NewHashmap(sugar *zap.SugaredLogger) *Hashmap {
	h := &Hashmap{
		hashmap: make(map[string]value),
		sugar:   sugar,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go h.checkForExpiredKeys(time.Minute)

	return h
}

func (h *Hashmap) checkForExpiredKeys(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.deleteExpired()
		}
	}
}

func (h *Hashmap) deleteExpired() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	now := h.now()
	for key, v := range h.hashmap {
		if !v.deleted && v.expired(now) {
			h.hashmap[key] = tombstone(v.revision)
		}
	}
}

func (h *Hashmap) Get(_ context.Context, key string) (Entry, error) {
	h.sugar.Debugf("Getting value of key [%s] from hashmap", key)

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	v, ok := h.hashmap[key]
	if !ok || v.gone(h.now()) {
		return Entry{}, nil
	}

	return Entry{Value: v.value, Revision: v.revision}, nil
}

func (h *Hashmap) Put(_ context.Context, key string, newValue string, expectedRevision int64, expires time.Duration) (int64, error) {
	h.sugar.Debugf("Setting value of key [%s] in hashmap, expected revision [%d]", key, expectedRevision)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	now := h.now()

	current := h.hashmap[key]
	live := current.revision
	if current.gone(now) {
		live = 0
	}

	if !revisionMatches(expectedRevision, live) {
		return 0, ErrRevisionMismatch
	}

	next := value{value: newValue, revision: current.revision + 1}
	if expires > 0 {
		next.expires = now.Add(expires)
	}
	h.hashmap[key] = next

	return next.revision, nil
}

func (h *Hashmap) Delete(_ context.Context, key string) error {
	h.sugar.Debugf("Deleting key [%s] from hashmap", key)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if v, ok := h.hashmap[key]; ok {
		h.hashmap[key] = tombstone(v.revision)
	}
	return nil
}

func (h *Hashmap) Close() error {
	h.once.Do(func() { close(h.stop) })
	return nil
}
