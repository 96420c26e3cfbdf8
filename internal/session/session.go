// Package session tracks which user the running client acts for.
//
// A Session is created by whoever handles the incoming action and passed to
// every directory operation. When it is bound to a pointer record, every change
// of identity is mirrored there so the next start can restore it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chatapp-local/internal/models"
	"chatapp-local/internal/storage"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type Session struct {
	mutex   sync.RWMutex
	user    *models.User
	pointer *storage.Record[models.User]
}

// New returns an empty session. pointer may be nil.
func New(pointer *storage.Record[models.User]) *Session {
	return &Session{pointer: pointer}
}

// ForUser returns an unpersisted session already authenticated as user.
func ForUser(user models.User) *Session {
	user = user.Clone()
	return &Session{user: &user}
}

// Restore rebuilds the session saved in pointer, if any.
func Restore(ctx context.Context, pointer *storage.Record[models.User]) (*Session, error) {
	s := New(pointer)

	user, found, err := pointer.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if found {
		user.Normalize()
		s.user = &user
	}

	return s, nil
}

// Resume returns a session for userID. If the pointer names the same user the
// session is bound to it, so profile changes reach the saved copy too.
func Resume(ctx context.Context, pointer *storage.Record[models.User], userID string) (*Session, error) {
	s, err := Restore(ctx, pointer)
	if err != nil {
		return nil, err
	}

	if s.user == nil || s.user.ID != userID {
		return ForUser(models.User{ID: userID}), nil
	}
	return s, nil
}

func (s *Session) Current() (models.User, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.user == nil {
		return models.User{}, false
	}
	return s.user.Clone(), true
}

func (s *Session) UserID() (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.user == nil {
		return "", ErrNotAuthenticated
	}
	return s.user.ID, nil
}

func (s *Session) SetUser(ctx context.Context, user models.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.setUser(ctx, user)
}

// setUser expects the mutex to be held.
func (s *Session) setUser(ctx context.Context, user models.User) error {
	user = user.Clone()

	if s.pointer != nil {
		if err := s.pointer.Save(ctx, user, 0); err != nil {
			return err
		}
	}

	s.user = &user
	return nil
}

// Update applies fn to the current user view, if there is one. The lock is
// held throughout, so concurrent updates of one session don't lose changes.
func (s *Session) Update(ctx context.Context, fn func(user *models.User)) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.user == nil {
		return ErrNotAuthenticated
	}
	user := s.user.Clone()

	fn(&user)
	return s.setUser(ctx, user)
}

func (s *Session) Clear(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.user = nil

	if s.pointer != nil {
		return s.pointer.Clear(ctx)
	}
	return nil
}
