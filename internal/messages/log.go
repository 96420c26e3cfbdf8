// Package messages keeps the chat messages of the running process. Nothing here
// is persisted; messages live as long as the Log does and come back in the
// order they were added.
package messages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"chatapp-local/internal/hub"
	"chatapp-local/internal/models"
	"chatapp-local/internal/session"
	"chatapp-local/internal/snowflake"

	"go.uber.org/zap"
)

const maxContentLength = 2000

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
	ErrNoChannel      = errors.New("message has no channel")
	ErrWrongServer    = errors.New("channel belongs to another server")
)

type Log struct {
	mutex     sync.RWMutex
	byChannel map[string][]models.Message
	servers   map[string]string // channel ID -> server ID, "" for direct conversations
	ids       *snowflake.Generator
	hub       hub.Publisher
	sugar     *zap.SugaredLogger
	now       func() time.Time
}

func NewLog(ids *snowflake.Generator, publisher hub.Publisher, sugar *zap.SugaredLogger) *Log {
	return &Log{
		byChannel: make(map[string][]models.Message),
		servers:   make(map[string]string),
		ids:       ids,
		hub:       publisher,
		sugar:     sugar,
		now:       time.Now,
	}
}

// Add appends a message written by the session user. The author's name and
// avatar are copied into the message as they are at this moment.
func (l *Log) Add(ctx context.Context, sess *session.Session, channelID string, serverID string, content string) (models.Message, error) {
	user, ok := sess.Current()
	if !ok {
		return models.Message{}, session.ErrNotAuthenticated
	}

	if channelID == "" {
		return models.Message{}, ErrNoChannel
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return models.Message{}, ErrMessageTooLong
	}

	id, err := l.ids.NewID()
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:        id,
		Content:   content,
		Username:  user.Username,
		Timestamp: l.now().UTC(),
		Avatar:    user.Avatar,
		ChannelID: channelID,
		ServerID:  serverID,
	}

	l.mutex.Lock()
	owner, known := l.servers[channelID]
	if known && owner != serverID {
		l.mutex.Unlock()
		return models.Message{}, ErrWrongServer
	}
	l.servers[channelID] = serverID
	l.byChannel[channelID] = append(l.byChannel[channelID], msg)
	l.mutex.Unlock()

	event, err := hub.Event{Type: hub.MessageCreated, ServerID: serverID, ChannelID: channelID, UserID: user.ID}.WithData(msg)
	if err == nil {
		err = l.hub.Emit(ctx, event)
	}
	if err != nil {
		l.sugar.Error(err)
	}

	return msg, nil
}

func (l *Log) List(channelID string) []models.Message {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	messages := make([]models.Message, len(l.byChannel[channelID]))
	copy(messages, l.byChannel[channelID])
	return messages
}

func (l *Log) dropChannel(channelID string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delete(l.byChannel, channelID)
	delete(l.servers, channelID)
}

func (l *Log) dropServer(serverID string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for channelID, owner := range l.servers {
		if owner == serverID {
			delete(l.byChannel, channelID)
			delete(l.servers, channelID)
		}
	}
}

// Forget drops the messages of deleted channels and servers as the events
// arrive. It returns when ctx ends.
func (l *Log) Forget(ctx context.Context, sub *hub.Subscription) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub.C:
			switch event.Type {
			case hub.ChannelDeleted:
				l.sugar.Debugf("Dropping messages of deleted channel [%s]", event.ChannelID)
				l.dropChannel(event.ChannelID)
			case hub.ServerDeleted:
				l.sugar.Debugf("Dropping messages of deleted server [%s]", event.ServerID)
				l.dropServer(event.ServerID)
			}
		}
	}
}
