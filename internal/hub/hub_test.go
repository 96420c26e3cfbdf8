package hub_test

import (
	"context"
	"testing"
	"time"

	"chatapp-local/internal/hub"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func hubs(t *testing.T) map[string]*hub.Hub {
	t.Helper()
	sugar := zap.NewNop().Sugar()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	return map[string]*hub.Hub{
		"local": hub.New(sugar, nil),
		"redis": hub.New(sugar, redisClient),
	}
}

func receive(t *testing.T, sub *hub.Subscription) hub.Event {
	t.Helper()
	select {
	case event := <-sub.C:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return hub.Event{}
	}
}

func TestEmitReachesSubscribers(t *testing.T) {
	for name, h := range hubs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			sub := h.Subscribe(ctx, hub.ServerDeleted, hub.ChannelDeleted)
			defer sub.Close()

			event, err := hub.Event{Type: hub.ServerDeleted, ServerID: "s1"}.WithData(map[string]string{"name": "Test"})
			require.NoError(t, err)
			require.NoError(t, h.Emit(ctx, event))

			got := receive(t, sub)
			assert.Equal(t, hub.ServerDeleted, got.Type)
			assert.Equal(t, "s1", got.ServerID)
			assert.JSONEq(t, `{"name":"Test"}`, string(got.Data))
		})
	}
}

func TestUnsubscribedTypesAreNotDelivered(t *testing.T) {
	h := hub.New(zap.NewNop().Sugar(), nil)
	ctx := context.Background()

	sub := h.Subscribe(ctx, hub.ChannelCreated)
	require.NoError(t, h.Emit(ctx, hub.Event{Type: hub.BotCreated}))
	require.NoError(t, h.Emit(ctx, hub.Event{Type: hub.ChannelCreated, ChannelID: "c1"}))

	assert.Equal(t, "c1", receive(t, sub).ChannelID)

	sub.Close()
	require.NoError(t, h.Emit(ctx, hub.Event{Type: hub.ChannelCreated}))
	select {
	case event := <-sub.C:
		t.Fatalf("closed subscription received %+v", event)
	default:
	}
}

func TestContextEndsLocalSubscription(t *testing.T) {
	h := hub.New(zap.NewNop().Sugar(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	sub := h.Subscribe(ctx, hub.MemberJoined)
	cancel()

	assert.Eventually(t, func() bool {
		_ = h.Emit(context.Background(), hub.Event{Type: hub.MemberJoined})
		select {
		case <-sub.C:
			return false
		default:
			return true
		}
	}, time.Second, 10*time.Millisecond)
}
