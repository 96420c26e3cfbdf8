// Package social manages friendships and pending friend requests. Both live
// inside the user records, and every change touches two users in one table
// write, so the two sides never disagree.
package social

import (
	"context"
	"errors"
	"slices"

	"chatapp-local/internal/hub"
	"chatapp-local/internal/models"
	"chatapp-local/internal/session"
	"chatapp-local/internal/storage"

	"go.uber.org/zap"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSelf             = errors.New("can't send a friend request to yourself")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrAlreadyRequested = errors.New("friend request already sent")
	ErrRequestNotFound  = errors.New("no pending friend request from this user")
)

// returned from inside an update to skip the write
var errUnchanged = errors.New("unchanged")

type Overview struct {
	Friends  []models.User `json:"friends"`
	Incoming []models.User `json:"incoming"`
	Outgoing []models.User `json:"outgoing"`
}

type Graph struct {
	users *storage.Table[models.UserRecord]
	hub   hub.Publisher
	sugar *zap.SugaredLogger
}

func NewGraph(users *storage.Table[models.UserRecord], publisher hub.Publisher, sugar *zap.SugaredLogger) *Graph {
	return &Graph{users: users, hub: publisher, sugar: sugar}
}

func findByUsername(users map[string]models.UserRecord, username string) (models.UserRecord, bool) {
	for _, user := range users {
		if user.Username == username {
			return user, true
		}
	}
	return models.UserRecord{}, false
}

// befriend turns whatever is pending between a and b into a friendship.
func befriend(a, b *models.UserRecord) {
	a.FriendRequests.Incoming = models.RemoveID(a.FriendRequests.Incoming, b.ID)
	a.FriendRequests.Outgoing = models.RemoveID(a.FriendRequests.Outgoing, b.ID)
	b.FriendRequests.Incoming = models.RemoveID(b.FriendRequests.Incoming, a.ID)
	b.FriendRequests.Outgoing = models.RemoveID(b.FriendRequests.Outgoing, a.ID)

	a.Friends = models.AddID(a.Friends, b.ID)
	b.Friends = models.AddID(b.Friends, a.ID)
}

// pair loads the acting user and the other side of a relation. other may be
// missing when allowMissing is set, for cleaning up after deleted accounts.
func pair(users map[string]models.UserRecord, actorID string, otherID string, allowMissing bool) (models.UserRecord, models.UserRecord, bool, error) {
	actor, ok := users[actorID]
	if !ok {
		return actor, models.UserRecord{}, false, ErrUserNotFound
	}
	actor.Normalize()

	other, found := users[otherID]
	if !found && !allowMissing {
		return actor, other, false, ErrUserNotFound
	}
	other.Normalize()

	return actor, other, found, nil
}

func (g *Graph) emit(ctx context.Context, eventType string, userID string, otherID string) {
	event, err := hub.Event{Type: eventType, UserID: userID}.WithData(otherID)
	if err == nil {
		err = g.hub.Emit(ctx, event)
	}
	if err != nil {
		g.sugar.Error(err)
	}
}

// update runs fn on the users table and refreshes the session view of the actor.
func (g *Graph) update(ctx context.Context, sess *session.Session, fn func(users map[string]models.UserRecord, actorID string) error) error {
	actorID, err := sess.UserID()
	if err != nil {
		return err
	}

	var actor models.User
	err = g.users.Update(ctx, func(users map[string]models.UserRecord) error {
		if err := fn(users, actorID); err != nil {
			return err
		}
		actor = users[actorID].User
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	} else if err != nil {
		return err
	}

	return sess.SetUser(ctx, actor)
}

// SendFriendRequest asks the user called targetUsername to become a friend of
// the session user. If that user already asked the session user, the request
// is accepted instead.
func (g *Graph) SendFriendRequest(ctx context.Context, sess *session.Session, targetUsername string) error {
	var (
		eventType string
		targetID  string
	)

	err := g.update(ctx, sess, func(users map[string]models.UserRecord, actorID string) error {
		target, found := findByUsername(users, targetUsername)
		if !found {
			return ErrUserNotFound
		}
		if target.ID == actorID {
			return ErrSelf
		}

		actor, target, _, err := pair(users, actorID, target.ID, false)
		if err != nil {
			return err
		}

		switch {
		case slices.Contains(actor.Friends, target.ID):
			return ErrAlreadyFriends
		case slices.Contains(actor.FriendRequests.Outgoing, target.ID):
			return ErrAlreadyRequested
		case slices.Contains(actor.FriendRequests.Incoming, target.ID):
			befriend(&actor, &target)
			eventType = hub.FriendAdded
		default:
			actor.FriendRequests.Outgoing = models.AddID(actor.FriendRequests.Outgoing, target.ID)
			target.FriendRequests.Incoming = models.AddID(target.FriendRequests.Incoming, actor.ID)
			eventType = hub.FriendRequestCreated
		}

		users[actor.ID] = actor
		users[target.ID] = target
		targetID = target.ID
		return nil
	})
	if err != nil {
		return err
	}

	actorID, _ := sess.UserID()
	g.emit(ctx, eventType, actorID, targetID)
	return nil
}

// AcceptFriendRequest makes requesterID and the session user friends. Accepting
// again once they are friends does nothing.
func (g *Graph) AcceptFriendRequest(ctx context.Context, sess *session.Session, requesterID string) error {
	accepted := false

	err := g.update(ctx, sess, func(users map[string]models.UserRecord, actorID string) error {
		accepted = false

		actor, requester, _, err := pair(users, actorID, requesterID, false)
		if err != nil {
			return err
		}

		if slices.Contains(actor.Friends, requesterID) {
			return errUnchanged
		}
		if !slices.Contains(actor.FriendRequests.Incoming, requesterID) {
			return ErrRequestNotFound
		}

		befriend(&actor, &requester)

		users[actor.ID] = actor
		users[requester.ID] = requester
		accepted = true
		return nil
	})
	if err != nil || !accepted {
		return err
	}

	actorID, _ := sess.UserID()
	g.emit(ctx, hub.FriendAdded, actorID, requesterID)
	return nil
}

// RejectFriendRequest drops the request requesterID sent to the session user.
func (g *Graph) RejectFriendRequest(ctx context.Context, sess *session.Session, requesterID string) error {
	return g.dropRequest(ctx, sess, requesterID, true)
}

// CancelFriendRequest withdraws the request the session user sent to targetID.
func (g *Graph) CancelFriendRequest(ctx context.Context, sess *session.Session, targetID string) error {
	return g.dropRequest(ctx, sess, targetID, false)
}

func (g *Graph) dropRequest(ctx context.Context, sess *session.Session, otherID string, incoming bool) error {
	err := g.update(ctx, sess, func(users map[string]models.UserRecord, actorID string) error {
		actor, other, found, err := pair(users, actorID, otherID, true)
		if err != nil {
			return err
		}

		if incoming {
			actor.FriendRequests.Incoming = models.RemoveID(actor.FriendRequests.Incoming, otherID)
			other.FriendRequests.Outgoing = models.RemoveID(other.FriendRequests.Outgoing, actorID)
		} else {
			actor.FriendRequests.Outgoing = models.RemoveID(actor.FriendRequests.Outgoing, otherID)
			other.FriendRequests.Incoming = models.RemoveID(other.FriendRequests.Incoming, actorID)
		}

		users[actorID] = actor
		if found {
			users[otherID] = other
		}
		return nil
	})
	if err != nil {
		return err
	}

	actorID, _ := sess.UserID()
	g.emit(ctx, hub.FriendRequestDeleted, actorID, otherID)
	return nil
}

// RemoveFriend ends the friendship between the session user and friendID on both sides.
func (g *Graph) RemoveFriend(ctx context.Context, sess *session.Session, friendID string) error {
	err := g.update(ctx, sess, func(users map[string]models.UserRecord, actorID string) error {
		actor, friend, found, err := pair(users, actorID, friendID, true)
		if err != nil {
			return err
		}

		actor.Friends = models.RemoveID(actor.Friends, friendID)
		users[actorID] = actor

		if found {
			friend.Friends = models.RemoveID(friend.Friends, actorID)
			users[friendID] = friend
		}
		return nil
	})
	if err != nil {
		return err
	}

	actorID, _ := sess.UserID()
	g.emit(ctx, hub.FriendRemoved, actorID, friendID)
	return nil
}

// Overview resolves the session user's friends and requests to users. Ids of
// accounts that no longer exist are left out.
func (g *Graph) Overview(ctx context.Context, sess *session.Session) (Overview, error) {
	actorID, err := sess.UserID()
	if err != nil {
		return Overview{}, err
	}

	users, err := g.users.Load(ctx)
	if err != nil {
		return Overview{}, err
	}

	actor, ok := users[actorID]
	if !ok {
		return Overview{}, ErrUserNotFound
	}

	resolve := func(ids []string) []models.User {
		resolved := make([]models.User, 0, len(ids))
		for _, id := range ids {
			if user, ok := users[id]; ok {
				user.Normalize()
				resolved = append(resolved, user.User)
			}
		}
		return resolved
	}

	return Overview{
		Friends:  resolve(actor.Friends),
		Incoming: resolve(actor.FriendRequests.Incoming),
		Outgoing: resolve(actor.FriendRequests.Outgoing),
	}, nil
}
