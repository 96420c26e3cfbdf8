package social_test

import (
	"context"
	"testing"

	"chatapp-local/internal/account"
	"chatapp-local/internal/hub"
	"chatapp-local/internal/keyValue"
	"chatapp-local/internal/models"
	"chatapp-local/internal/session"
	"chatapp-local/internal/social"
	"chatapp-local/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	accounts *account.Directory
	graph    *social.Graph
	hub      *hub.Hub
}

func newEnv(t *testing.T) *env {
	t.Helper()
	sugar := zap.NewNop().Sugar()

	kv := keyValue.NewHashmap(sugar)
	t.Cleanup(func() { _ = kv.Close() })

	tables := storage.NewTables(kv, "", sugar)
	h := hub.New(sugar, nil)

	return &env{
		accounts: account.NewDirectory(tables.Users, nil, h, sugar, bcrypt.MinCost),
		graph:    social.NewGraph(tables.Users, h, sugar),
		hub:      h,
	}
}

func (e *env) register(t *testing.T, username string) (*session.Session, string) {
	t.Helper()
	sess := session.New(nil)
	user, err := e.accounts.Register(context.Background(), sess, username, "secret1")
	require.NoError(t, err)
	return sess, user.ID
}

func (e *env) user(t *testing.T, id string) models.User {
	t.Helper()
	user, err := e.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return user
}

func TestFriendRequestAccepted(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, aliceID := e.register(t, "alice")
	bob, bobID := e.register(t, "bob")

	require.NoError(t, e.graph.SendFriendRequest(ctx, alice, "bob"))

	assert.Equal(t, []string{bobID}, e.user(t, aliceID).FriendRequests.Outgoing)
	assert.Equal(t, []string{aliceID}, e.user(t, bobID).FriendRequests.Incoming)

	current, _ := alice.Current()
	assert.Equal(t, []string{bobID}, current.FriendRequests.Outgoing)

	require.NoError(t, e.graph.AcceptFriendRequest(ctx, bob, aliceID))

	for _, id := range []string{aliceID, bobID} {
		user := e.user(t, id)
		assert.Empty(t, user.FriendRequests.Incoming)
		assert.Empty(t, user.FriendRequests.Outgoing)
	}
	assert.Equal(t, []string{bobID}, e.user(t, aliceID).Friends)
	assert.Equal(t, []string{aliceID}, e.user(t, bobID).Friends)

	// accepting again changes nothing
	require.NoError(t, e.graph.AcceptFriendRequest(ctx, bob, aliceID))
	assert.Equal(t, []string{aliceID}, e.user(t, bobID).Friends)
	assert.Equal(t, []string{bobID}, e.user(t, aliceID).Friends)

	current, _ = bob.Current()
	assert.Equal(t, []string{aliceID}, current.Friends)
}

func TestSendFriendRequestRejects(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, aliceID := e.register(t, "alice")
	bob, bobID := e.register(t, "bob")
	e.register(t, "carol")

	require.NoError(t, e.graph.SendFriendRequest(ctx, alice, "carol"))
	require.NoError(t, e.graph.SendFriendRequest(ctx, bob, "alice"))
	require.NoError(t, e.graph.AcceptFriendRequest(ctx, alice, bobID))

	tests := []struct {
		name   string
		target string
		err    error
	}{
		{"unknown user", "dave", social.ErrUserNotFound},
		{"self", "alice", social.ErrSelf},
		{"already friends", "bob", social.ErrAlreadyFriends},
		{"already requested", "carol", social.ErrAlreadyRequested},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.ErrorIs(t, e.graph.SendFriendRequest(ctx, alice, test.target), test.err)
		})
	}

	assert.Equal(t, []string{bobID}, e.user(t, aliceID).Friends)
	assert.ErrorIs(t, e.graph.SendFriendRequest(ctx, session.New(nil), "bob"), session.ErrNotAuthenticated)
}

func mustID(t *testing.T, sess *session.Session) string {
	t.Helper()
	id, err := sess.UserID()
	require.NoError(t, err)
	return id
}

func TestCrossedRequestsBecomeFriends(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, aliceID := e.register(t, "alice")
	bob, bobID := e.register(t, "bob")

	require.NoError(t, e.graph.SendFriendRequest(ctx, alice, "bob"))
	require.NoError(t, e.graph.SendFriendRequest(ctx, bob, "alice"))

	assert.Equal(t, []string{bobID}, e.user(t, aliceID).Friends)
	assert.Equal(t, []string{aliceID}, e.user(t, bobID).Friends)
	assert.Empty(t, e.user(t, aliceID).FriendRequests.Outgoing)
	assert.Empty(t, e.user(t, bobID).FriendRequests.Incoming)
}

func TestAcceptWithoutRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, _ := e.register(t, "alice")
	_, bobID := e.register(t, "bob")

	assert.ErrorIs(t, e.graph.AcceptFriendRequest(ctx, alice, bobID), social.ErrRequestNotFound)
	assert.ErrorIs(t, e.graph.AcceptFriendRequest(ctx, alice, "missing"), social.ErrUserNotFound)
}

func TestRejectAndCancel(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, aliceID := e.register(t, "alice")
	bob, bobID := e.register(t, "bob")

	require.NoError(t, e.graph.SendFriendRequest(ctx, alice, "bob"))
	require.NoError(t, e.graph.RejectFriendRequest(ctx, bob, aliceID))

	for _, id := range []string{aliceID, bobID} {
		user := e.user(t, id)
		assert.Empty(t, user.FriendRequests.Incoming)
		assert.Empty(t, user.FriendRequests.Outgoing)
		assert.Empty(t, user.Friends)
	}

	require.NoError(t, e.graph.SendFriendRequest(ctx, alice, "bob"))
	require.NoError(t, e.graph.CancelFriendRequest(ctx, alice, bobID))

	assert.Empty(t, e.user(t, aliceID).FriendRequests.Outgoing)
	assert.Empty(t, e.user(t, bobID).FriendRequests.Incoming)

	current, _ := alice.Current()
	assert.Empty(t, current.FriendRequests.Outgoing)

	// rejecting what isn't there is harmless
	assert.NoError(t, e.graph.RejectFriendRequest(ctx, bob, aliceID))
}

func TestRemoveFriend(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, aliceID := e.register(t, "alice")
	bob, bobID := e.register(t, "bob")

	require.NoError(t, e.graph.SendFriendRequest(ctx, alice, "bob"))
	require.NoError(t, e.graph.AcceptFriendRequest(ctx, bob, aliceID))
	require.NoError(t, e.graph.RemoveFriend(ctx, bob, aliceID))

	assert.Empty(t, e.user(t, aliceID).Friends)
	assert.Empty(t, e.user(t, bobID).Friends)

	// they can start over
	require.NoError(t, e.graph.SendFriendRequest(ctx, alice, "bob"))
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice, aliceID := e.register(t, "alice")
	bob, _ := e.register(t, "bob")
	carol, _ := e.register(t, "carol")
	e.register(t, "dave")

	require.NoError(t, e.graph.SendFriendRequest(ctx, bob, "alice"))
	require.NoError(t, e.graph.AcceptFriendRequest(ctx, alice, mustID(t, bob)))
	require.NoError(t, e.graph.SendFriendRequest(ctx, carol, "alice"))
	require.NoError(t, e.graph.SendFriendRequest(ctx, alice, "dave"))

	overview, err := e.graph.Overview(ctx, alice)
	require.NoError(t, err)

	usernames := func(users []models.User) []string {
		names := []string{}
		for _, user := range users {
			names = append(names, user.Username)
		}
		return names
	}
	assert.Equal(t, []string{"bob"}, usernames(overview.Friends))
	assert.Equal(t, []string{"carol"}, usernames(overview.Incoming))
	assert.Equal(t, []string{"dave"}, usernames(overview.Outgoing))

	// a deleted friend drops out of the overview
	require.NoError(t, e.accounts.DeleteAccount(ctx, bob, "secret1"))
	overview, err = e.graph.Overview(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, overview.Friends)
	assert.Empty(t, e.user(t, aliceID).Friends)
}

func TestFriendEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := newEnv(t)
	alice, aliceID := e.register(t, "alice")
	bob, _ := e.register(t, "bob")

	sub := e.hub.Subscribe(ctx, hub.FriendRequestCreated, hub.FriendAdded)

	require.NoError(t, e.graph.SendFriendRequest(ctx, alice, "bob"))
	require.NoError(t, e.graph.AcceptFriendRequest(ctx, bob, aliceID))
	require.NoError(t, e.graph.AcceptFriendRequest(ctx, bob, aliceID))

	assert.Equal(t, hub.FriendRequestCreated, (<-sub.C).Type)
	assert.Equal(t, hub.FriendAdded, (<-sub.C).Type)
	select {
	case event := <-sub.C:
		t.Fatalf("unexpected %s event", event.Type)
	default:
	}
}
