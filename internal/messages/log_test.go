package messages

import (
	"context"
	"strings"
	"testing"
	"time"

	"chatapp-local/internal/hub"
	"chatapp-local/internal/models"
	"chatapp-local/internal/session"
	"chatapp-local/internal/snowflake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLog(t *testing.T) (*Log, *hub.Hub) {
	t.Helper()
	sugar := zap.NewNop().Sugar()

	ids, err := snowflake.New(1)
	require.NoError(t, err)

	h := hub.New(sugar, nil)
	return NewLog(ids, h, sugar), h
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	log, _ := newLog(t)
	log.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	sess := session.ForUser(models.User{ID: "u1", Username: "alice", Avatar: "https://example.com/a.png"})

	msg, err := log.Add(ctx, sess, "c1", "s1", "  hello  ")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "https://example.com/a.png", msg.Avatar)
	assert.Equal(t, "c1", msg.ChannelID)
	assert.Equal(t, "s1", msg.ServerID)
	assert.Equal(t, log.now(), msg.Timestamp)

	assert.Equal(t, []models.Message{msg}, log.List("c1"))
	assert.Empty(t, log.List("c2"))
}

func TestAddRejects(t *testing.T) {
	ctx := context.Background()
	log, _ := newLog(t)
	sess := session.ForUser(models.User{ID: "u1", Username: "alice"})

	tests := []struct {
		name      string
		sess      *session.Session
		channelID string
		content   string
		err       error
	}{
		{"no session", session.New(nil), "c1", "hi", session.ErrNotAuthenticated},
		{"no channel", sess, "", "hi", ErrNoChannel},
		{"empty", sess, "c1", "", ErrEmptyMessage},
		{"whitespace", sess, "c1", " \n\t", ErrEmptyMessage},
		{"too long", sess, "c1", strings.Repeat("x", maxContentLength+1), ErrMessageTooLong},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := log.Add(ctx, test.sess, test.channelID, "", test.content)
			assert.ErrorIs(t, err, test.err)
		})
	}

	assert.Empty(t, log.List("c1"))
}

func TestListKeepsOrder(t *testing.T) {
	ctx := context.Background()
	log, _ := newLog(t)
	sess := session.ForUser(models.User{ID: "u1", Username: "alice"})

	var want []string
	for i := range 50 {
		content := strings.Repeat("m", i+1)
		_, err := log.Add(ctx, sess, "c1", "", content)
		require.NoError(t, err)
		want = append(want, content)
	}

	var got []string
	for _, msg := range log.List("c1") {
		got = append(got, msg.Content)
	}
	assert.Equal(t, want, got)

	list := log.List("c1")
	list[0].Content = "changed"
	assert.Equal(t, "m", log.List("c1")[0].Content)
}

func TestForget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, h := newLog(t)
	sess := session.ForUser(models.User{ID: "u1", Username: "alice"})

	for _, target := range []struct{ channel, server string }{{"c1", "s1"}, {"c2", "s1"}, {"c3", "s2"}, {"dm", ""}} {
		_, err := log.Add(ctx, sess, target.channel, target.server, "hi")
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		log.Forget(ctx, h.Subscribe(ctx, hub.ChannelDeleted, hub.ServerDeleted))
		close(done)
	}()

	// Subscribe runs in the goroutine, so keep emitting until it is listening
	require.Eventually(t, func() bool {
		_ = h.Emit(ctx, hub.Event{Type: hub.ChannelDeleted, ServerID: "s2", ChannelID: "c3"})
		return len(log.List("c3")) == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Emit(ctx, hub.Event{Type: hub.ServerDeleted, ServerID: "s1"}))
	require.Eventually(t, func() bool {
		return len(log.List("c1")) == 0 && len(log.List("c2")) == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Len(t, log.List("dm"), 1)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Forget didn't return after cancel")
	}
}

func TestMessageEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, h := newLog(t)
	sub := h.Subscribe(ctx, hub.MessageCreated)
	sess := session.ForUser(models.User{ID: "u1", Username: "alice"})

	msg, err := log.Add(ctx, sess, "c1", "s1", "hi")
	require.NoError(t, err)

	event := <-sub.C
	assert.Equal(t, "c1", event.ChannelID)
	assert.Equal(t, "u1", event.UserID)
	assert.Contains(t, string(event.Data), msg.ID)
}

func TestChannelKeepsItsServer(t *testing.T) {
	ctx := context.Background()
	log, _ := newLog(t)
	sess := session.ForUser(models.User{ID: "u1", Username: "alice"})

	_, err := log.Add(ctx, sess, "c1", "s1", "first")
	require.NoError(t, err)

	for _, serverID := range []string{"", "s2"} {
		_, err = log.Add(ctx, sess, "c1", serverID, "sneaky")
		assert.ErrorIs(t, err, ErrWrongServer, "server %q", serverID)
	}
	require.Len(t, log.List("c1"), 1)

	// a direct message written first must not keep the server's channel alive
	_, err = log.Add(ctx, sess, "c2", "", "dm")
	require.NoError(t, err)
	_, err = log.Add(ctx, sess, "c2", "s1", "later")
	assert.ErrorIs(t, err, ErrWrongServer)

	log.dropServer("s1")
	assert.Empty(t, log.List("c1"))
	assert.Len(t, log.List("c2"), 1)

	_, err = log.Add(ctx, sess, "c1", "", "reused")
	assert.NoError(t, err)
}
