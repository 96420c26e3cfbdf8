// Package hub fans directory change events out to whoever listens in this
// process, or through redis when several processes share one store.
package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const subscriptionBuffer = 64

type Event struct {
	Type      string          `json:"type"`
	ServerID  string          `json:"serverId,omitempty"`
	ChannelID string          `json:"channelId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Publisher is what the directories need from the hub.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// WithData returns a copy of the event carrying data encoded as JSON.
func (e Event) WithData(data any) (Event, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return e, err
	}
	e.Data = bytes
	return e, nil
}

type Subscription struct {
	C <-chan Event

	ch    chan Event
	close func()
	once  sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(s.close)
}

type Hub struct {
	sugar       *zap.SugaredLogger
	redisClient *redis.Client
	local       LocalPubSub
}

var _ Publisher = (*Hub)(nil)

// New returns a hub. With a nil redisClient events never leave the process.
func New(sugar *zap.SugaredLogger, redisClient *redis.Client) *Hub {
	h := &Hub{sugar: sugar, redisClient: redisClient}
	h.local.Setup(sugar)
	return h
}

func redisChannel(eventType string) string {
	return "events:" + eventType
}

func (h *Hub) Emit(ctx context.Context, event Event) error {
	if h.redisClient == nil {
		h.local.Publish(event)
		return nil
	}

	bytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return h.redisClient.Publish(ctx, redisChannel(event.Type), bytes).Err()
}

// Subscribe delivers events of the given types until the subscription is
// closed or ctx ends. Events are dropped when the subscriber falls behind.
func (h *Hub) Subscribe(ctx context.Context, eventTypes ...string) *Subscription {
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch}

	if h.redisClient == nil {
		for _, eventType := range eventTypes {
			h.local.Subscribe(eventType, sub)
		}
		sub.close = func() {
			for _, eventType := range eventTypes {
				h.local.Unsubscribe(eventType, sub)
			}
		}
		context.AfterFunc(ctx, sub.Close)
		return sub
	}

	channels := make([]string, len(eventTypes))
	for i, eventType := range eventTypes {
		channels[i] = redisChannel(eventType)
	}

	subCtx, cancel := context.WithCancel(ctx)
	pubsub := h.redisClient.Subscribe(subCtx, channels...)
	sub.close = cancel

	// wait for the subscription to be confirmed so no event emitted after
	// Subscribe returns is missed
	if _, err := pubsub.Receive(subCtx); err != nil {
		h.sugar.Error(err)
	}

	go func() {
		defer func() {
			err := pubsub.Close()
			if err != nil {
				h.sugar.Error(err)
			}
		}()

		msgCh := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgCh:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					h.sugar.Error(err)
					continue
				}

				select {
				case ch <- event:
				default:
					h.sugar.Warnf("Subscriber buffer is full, dropping %s event", event.Type)
				}
			}
		}
	}()

	return sub
}
