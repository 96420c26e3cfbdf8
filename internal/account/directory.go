// Package account owns the users table: registration, login and the changes a
// user makes to their own account.
package account

import (
	"context"
	"errors"
	"fmt"

	"chatapp-local/internal/hub"
	"chatapp-local/internal/models"
	"chatapp-local/internal/session"
	"chatapp-local/internal/storage"
	"chatapp-local/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const DefaultAvatar = "https://images.unsplash.com/photo-1535713875002-d1d0cf377fde?w=100&h=100&fit=crop"

var (
	ErrDuplicateUsername  = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = errors.New("wrong password")
	ErrUserNotFound       = errors.New("user not found")
)

// MembershipRemover detaches a user from every server before the account goes away.
type MembershipRemover interface {
	RemoveUser(ctx context.Context, userID string) error
}

type Directory struct {
	users       *storage.Table[models.UserRecord]
	memberships MembershipRemover
	hub         hub.Publisher
	sugar       *zap.SugaredLogger
	bcryptCost  int
}

// NewDirectory returns the account directory. memberships may be nil, in which
// case deleting an account leaves server memberships alone.
func NewDirectory(users *storage.Table[models.UserRecord], memberships MembershipRemover, publisher hub.Publisher, sugar *zap.SugaredLogger, bcryptCost int) *Directory {
	if bcryptCost == 0 {
		bcryptCost = 12
	}

	return &Directory{
		users:       users,
		memberships: memberships,
		hub:         publisher,
		sugar:       sugar,
		bcryptCost:  bcryptCost,
	}
}

func usernameTaken(users map[string]models.UserRecord, username string, exceptID string) bool {
	for id, user := range users {
		if id != exceptID && user.Username == username {
			return true
		}
	}
	return false
}

func (d *Directory) emit(ctx context.Context, eventType string, userID string) {
	if err := d.hub.Emit(ctx, hub.Event{Type: eventType, UserID: userID}); err != nil {
		d.sugar.Error(err)
	}
}

// Register creates an account and signs sess in as it.
func (d *Directory) Register(ctx context.Context, sess *session.Session, username string, password string) (models.User, error) {
	if err := validator.Field("username", validator.Username(username)); err != nil {
		return models.User{}, err
	}
	if err := validator.Field("password", validator.Password(password)); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.User{}, fmt.Errorf("generate id: %w", err)
	}

	record := models.UserRecord{
		User: models.User{
			ID:       id.String(),
			Username: username,
			Avatar:   DefaultAvatar,
		},
		PasswordHash: string(hash),
	}
	record.Normalize()

	err = d.users.Update(ctx, func(users map[string]models.UserRecord) error {
		if usernameTaken(users, username, "") {
			return ErrDuplicateUsername
		}
		users[record.ID] = record
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	d.sugar.Debugf("Registered user [%s] as ID [%s]", username, record.ID)

	if err := sess.SetUser(ctx, record.User); err != nil {
		return models.User{}, err
	}

	return record.User.Clone(), nil
}

// Login signs sess in when username and password match a stored account.
func (d *Directory) Login(ctx context.Context, sess *session.Session, username string, password string) (models.User, error) {
	users, err := d.users.Load(ctx)
	if err != nil {
		return models.User{}, err
	}

	for _, record := range users {
		if record.Username != username {
			continue
		}

		if !d.passwordMatches(record, password) {
			return models.User{}, ErrInvalidCredentials
		}

		record.Normalize()
		if err := sess.SetUser(ctx, record.User); err != nil {
			return models.User{}, err
		}
		return record.User.Clone(), nil
	}

	return models.User{}, ErrInvalidCredentials
}

func (d *Directory) passwordMatches(record models.UserRecord, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		d.sugar.Warnf("Stored password of user ID [%s] can't be compared: %v", record.ID, err)
	}
	return err == nil
}

func (d *Directory) Logout(ctx context.Context, sess *session.Session) error {
	return sess.Clear(ctx)
}

// UpdateUsername renames the session user unless another account holds the name.
func (d *Directory) UpdateUsername(ctx context.Context, sess *session.Session, newUsername string) error {
	userID, err := sess.UserID()
	if err != nil {
		return err
	}

	if err := validator.Field("username", validator.Username(newUsername)); err != nil {
		return err
	}

	err = d.users.Update(ctx, func(users map[string]models.UserRecord) error {
		record, ok := users[userID]
		if !ok {
			return ErrUserNotFound
		}
		if usernameTaken(users, newUsername, userID) {
			return ErrDuplicateUsername
		}

		record.Username = newUsername
		users[userID] = record
		return nil
	})
	if err != nil {
		return err
	}

	d.emit(ctx, hub.UserModified, userID)

	return sess.Update(ctx, func(user *models.User) { user.Username = newUsername })
}

func (d *Directory) UpdatePassword(ctx context.Context, sess *session.Session, oldPassword string, newPassword string) error {
	userID, err := sess.UserID()
	if err != nil {
		return err
	}

	if err := validator.Field("newPassword", validator.Password(newPassword)); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), d.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return d.users.Update(ctx, func(users map[string]models.UserRecord) error {
		record, ok := users[userID]
		if !ok {
			return ErrUserNotFound
		}
		if !d.passwordMatches(record, oldPassword) {
			return ErrWrongPassword
		}

		record.PasswordHash = string(hash)
		users[userID] = record
		return nil
	})
}

// UpdateAvatar stores any non-empty avatar as given. Checking what it points to is up to the caller.
func (d *Directory) UpdateAvatar(ctx context.Context, sess *session.Session, avatar string) error {
	userID, err := sess.UserID()
	if err != nil {
		return err
	}

	if avatar == "" {
		return &validator.FieldError{Field: "avatar", Code: "empty_avatar"}
	}

	err = d.users.Update(ctx, func(users map[string]models.UserRecord) error {
		record, ok := users[userID]
		if !ok {
			return ErrUserNotFound
		}

		record.Avatar = avatar
		users[userID] = record
		return nil
	})
	if err != nil {
		return err
	}

	d.emit(ctx, hub.UserModified, userID)

	return sess.Update(ctx, func(user *models.User) { user.Avatar = avatar })
}

// DeleteAccount removes the session user after checking the password. The user
// leaves every server (servers they own are deleted) and disappears from other
// users' friend lists and pending requests.
func (d *Directory) DeleteAccount(ctx context.Context, sess *session.Session, password string) error {
	userID, err := sess.UserID()
	if err != nil {
		return err
	}

	record, ok, err := d.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	if !d.passwordMatches(record, password) {
		return ErrWrongPassword
	}

	if d.memberships != nil {
		if err := d.memberships.RemoveUser(ctx, userID); err != nil {
			return fmt.Errorf("remove memberships: %w", err)
		}
	}

	err = d.users.Update(ctx, func(users map[string]models.UserRecord) error {
		delete(users, userID)

		for id, other := range users {
			other.Normalize()
			other.Friends = models.RemoveID(other.Friends, userID)
			other.FriendRequests.Incoming = models.RemoveID(other.FriendRequests.Incoming, userID)
			other.FriendRequests.Outgoing = models.RemoveID(other.FriendRequests.Outgoing, userID)
			users[id] = other
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.sugar.Debugf("Deleted user ID [%s]", userID)
	d.emit(ctx, hub.UserDeleted, userID)

	return sess.Clear(ctx)
}

func (d *Directory) Get(ctx context.Context, userID string) (models.User, error) {
	record, ok, err := d.users.Get(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrUserNotFound
	}

	record.Normalize()
	return record.User, nil
}

func (d *Directory) Exists(ctx context.Context, userID string) (bool, error) {
	_, ok, err := d.users.Get(ctx, userID)
	return ok, err
}

// List resolves ids to users in the same order, skipping ids with no account.
func (d *Directory) List(ctx context.Context, ids []string) ([]models.User, error) {
	users, err := d.users.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if record, ok := users[id]; ok {
			record.Normalize()
			result = append(result, record.User)
		}
	}
	return result, nil
}
