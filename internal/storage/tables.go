package storage

import (
	"chatapp-local/internal/keyValue"
	"chatapp-local/internal/models"

	"go.uber.org/zap"
)

// DefaultPrefix matches the key names the browser client used for local storage.
const DefaultPrefix = "discord_"

type Tables struct {
	Users       *Table[models.UserRecord]
	Servers     *Table[models.Server]
	CurrentUser *Record[models.User]
}

func NewTables(kv keyValue.Store, prefix string, sugar *zap.SugaredLogger) *Tables {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Tables{
		Users:       NewTable[models.UserRecord](kv, prefix+"users", sugar),
		Servers:     NewTable[models.Server](kv, prefix+"servers", sugar),
		CurrentUser: NewRecord[models.User](kv, prefix+"current_user"),
	}
}
