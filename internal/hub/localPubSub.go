package hub

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

type LocalPubSub struct {
	mutex   sync.RWMutex
	hashMap map[string][]*Subscription
	sugar   *zap.SugaredLogger
}

func (ps *LocalPubSub) Setup(sugar *zap.SugaredLogger) {
	ps.hashMap = make(map[string][]*Subscription)
	ps.sugar = sugar
}

func (ps *LocalPubSub) Unsubscribe(eventType string, sub *Subscription) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.hashMap[eventType] = slices.DeleteFunc(ps.hashMap[eventType], func(s *Subscription) bool { return s == sub })

	// delete event type from map if nobody is subscribed to it
	if len(ps.hashMap[eventType]) == 0 {
		delete(ps.hashMap, eventType)
	}
}

func (ps *LocalPubSub) Subscribe(eventType string, sub *Subscription) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.hashMap[eventType] = append(ps.hashMap[eventType], sub)
}

func (ps *LocalPubSub) Publish(event Event) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	for _, sub := range ps.hashMap[event.Type] {
		select {
		case sub.ch <- event:
		default:
			ps.sugar.Warnf("Subscriber buffer is full, dropping %s event", event.Type)
		}
	}
}
