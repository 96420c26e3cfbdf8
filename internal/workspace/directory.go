// Package workspace owns the servers table. Only a server's owner may change or
// delete it; membership is mirrored in each member's user record.
package workspace

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"chatapp-local/internal/hub"
	"chatapp-local/internal/models"
	"chatapp-local/internal/session"
	"chatapp-local/internal/storage"
	"chatapp-local/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultServerName = "My server"
	DefaultBotAvatar  = "https://images.unsplash.com/photo-1635236066449-5b45769c6160?w=100&h=100&fit=crop"
)

var (
	ErrServerNotFound     = errors.New("server not found")
	ErrNotOwner           = errors.New("you don't own this server")
	ErrNotMember          = errors.New("you are not a member of this server")
	ErrOwnerCannotLeave   = errors.New("the owner can't leave their own server")
	ErrInvalidChannelType = errors.New("channel type must be text or voice")
	ErrBotNotFound        = errors.New("bot not found")
	ErrUserNotFound       = errors.New("user not found")
)

type BotSpec struct {
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	Enabled bool   `json:"enabled"`
}

type Directory struct {
	servers *storage.Table[models.Server]
	users   *storage.Table[models.UserRecord]
	hub     hub.Publisher
	sugar   *zap.SugaredLogger
}

func NewDirectory(tables *storage.Tables, publisher hub.Publisher, sugar *zap.SugaredLogger) *Directory {
	return &Directory{
		servers: tables.Servers,
		users:   tables.Users,
		hub:     publisher,
		sugar:   sugar,
	}
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func (d *Directory) emit(ctx context.Context, event hub.Event, data any) {
	var err error
	if data != nil {
		event, err = event.WithData(data)
	}
	if err == nil {
		err = d.hub.Emit(ctx, event)
	}
	if err != nil {
		d.sugar.Error(err)
	}
}

// mutateOwned runs fn on the server if the session user owns it.
func (d *Directory) mutateOwned(ctx context.Context, sess *session.Session, serverID string, fn func(server *models.Server) error) error {
	userID, err := sess.UserID()
	if err != nil {
		return err
	}

	return d.servers.Update(ctx, func(servers map[string]models.Server) error {
		server, ok := servers[serverID]
		if !ok {
			return ErrServerNotFound
		}
		if server.OwnerID != userID {
			d.sugar.Warnf("User ID [%s] tried to modify server ID [%s] they don't own", userID, serverID)
			return ErrNotOwner
		}

		server.Normalize()
		if err := fn(&server); err != nil {
			return err
		}
		servers[serverID] = server
		return nil
	})
}

// updateUserServers applies fn to the server list of each of userIDs that still exists.
func (d *Directory) updateUserServers(ctx context.Context, userIDs []string, fn func(servers []string) []string) error {
	return d.users.Update(ctx, func(users map[string]models.UserRecord) error {
		for _, id := range userIDs {
			user, ok := users[id]
			if !ok {
				continue
			}
			user.Normalize()
			user.Servers = fn(user.Servers)
			users[id] = user
		}
		return nil
	})
}

// CreateServer makes a server owned by the session user, who is its only member.
// It starts with a "general" text channel and a "voice" voice channel.
func (d *Directory) CreateServer(ctx context.Context, sess *session.Session, name string, avatar string) (models.Server, error) {
	userID, err := sess.UserID()
	if err != nil {
		return models.Server{}, err
	}

	if strings.TrimSpace(name) == "" {
		name = DefaultServerName
	}
	if err := validator.Field("name", validator.ServerName(name)); err != nil {
		return models.Server{}, err
	}

	if _, ok, err := d.users.Get(ctx, userID); err != nil {
		return models.Server{}, err
	} else if !ok {
		return models.Server{}, ErrUserNotFound
	}

	ids := make([]string, 3)
	for i := range ids {
		if ids[i], err = newID(); err != nil {
			return models.Server{}, err
		}
	}

	server := models.Server{
		ID:      ids[0],
		Name:    name,
		Avatar:  avatar,
		OwnerID: userID,
		Members: []string{userID},
		Channels: []models.Channel{
			{ID: ids[1], Name: "general", Type: models.ChannelTypeText},
			{ID: ids[2], Name: "voice", Type: models.ChannelTypeVoice},
		},
		Bots: []models.Bot{},
	}

	err = d.servers.Update(ctx, func(servers map[string]models.Server) error {
		servers[server.ID] = server
		return nil
	})
	if err != nil {
		return models.Server{}, err
	}

	err = d.updateUserServers(ctx, []string{userID}, func(servers []string) []string {
		return models.AddID(servers, server.ID)
	})
	if err != nil {
		d.sugar.Errorf("Couldn't add server ID [%s] to owner ID [%s], removing server: %v", server.ID, userID, err)
		undoErr := d.servers.Update(ctx, func(servers map[string]models.Server) error {
			delete(servers, server.ID)
			return nil
		})
		return models.Server{}, errors.Join(err, undoErr)
	}

	d.emit(ctx, hub.Event{Type: hub.ServerCreated, ServerID: server.ID, UserID: userID}, server)

	if err := sess.Update(ctx, func(user *models.User) { user.Servers = models.AddID(user.Servers, server.ID) }); err != nil {
		return models.Server{}, err
	}

	return server, nil
}

func (d *Directory) UpdateServer(ctx context.Context, sess *session.Session, serverID string, update models.ServerUpdate) error {
	if update.Name != nil {
		if err := validator.Field("name", validator.ServerName(*update.Name)); err != nil {
			return err
		}
	}

	var updated models.Server
	err := d.mutateOwned(ctx, sess, serverID, func(server *models.Server) error {
		if update.Name != nil {
			server.Name = *update.Name
		}
		if update.Avatar != nil {
			server.Avatar = *update.Avatar
		}
		updated = *server
		return nil
	})
	if err != nil {
		return err
	}

	d.emit(ctx, hub.Event{Type: hub.ServerModified, ServerID: serverID}, updated)
	return nil
}

// DeleteServer removes the server and takes it off every member's server list.
func (d *Directory) DeleteServer(ctx context.Context, sess *session.Session, serverID string) error {
	userID, err := sess.UserID()
	if err != nil {
		return err
	}

	var members []string
	err = d.servers.Update(ctx, func(servers map[string]models.Server) error {
		server, ok := servers[serverID]
		if !ok {
			return ErrServerNotFound
		}
		if server.OwnerID != userID {
			d.sugar.Warnf("User ID [%s] tried to delete server ID [%s] they don't own", userID, serverID)
			return ErrNotOwner
		}

		members = server.Members
		delete(servers, serverID)
		return nil
	})
	if err != nil {
		return err
	}

	err = d.updateUserServers(ctx, members, func(servers []string) []string {
		return models.RemoveID(servers, serverID)
	})
	if err != nil {
		return err
	}

	d.emit(ctx, hub.Event{Type: hub.ServerDeleted, ServerID: serverID, UserID: userID}, nil)

	return sess.Update(ctx, func(user *models.User) { user.Servers = models.RemoveID(user.Servers, serverID) })
}

// AddChannel appends a channel. Channel names don't have to be unique.
func (d *Directory) AddChannel(ctx context.Context, sess *session.Session, serverID string, name string, channelType models.ChannelType) (models.Channel, error) {
	if !channelType.Valid() {
		return models.Channel{}, ErrInvalidChannelType
	}
	if err := validator.Field("name", validator.ChannelName(name)); err != nil {
		return models.Channel{}, err
	}

	channelID, err := newID()
	if err != nil {
		return models.Channel{}, err
	}
	channel := models.Channel{ID: channelID, Name: name, Type: channelType}

	err = d.mutateOwned(ctx, sess, serverID, func(server *models.Server) error {
		server.Channels = append(server.Channels, channel)
		return nil
	})
	if err != nil {
		return models.Channel{}, err
	}

	d.emit(ctx, hub.Event{Type: hub.ChannelCreated, ServerID: serverID, ChannelID: channelID}, channel)
	return channel, nil
}

// RemoveChannel deletes a channel. Removing a channel that isn't there is not an error.
func (d *Directory) RemoveChannel(ctx context.Context, sess *session.Session, serverID string, channelID string) error {
	removed := false

	err := d.mutateOwned(ctx, sess, serverID, func(server *models.Server) error {
		before := len(server.Channels)
		server.Channels = slices.DeleteFunc(server.Channels, func(c models.Channel) bool { return c.ID == channelID })
		removed = len(server.Channels) != before
		return nil
	})
	if err != nil {
		return err
	}

	if removed {
		d.emit(ctx, hub.Event{Type: hub.ChannelDeleted, ServerID: serverID, ChannelID: channelID}, nil)
	}
	return nil
}

func (d *Directory) AddBot(ctx context.Context, sess *session.Session, serverID string, spec BotSpec) (models.Bot, error) {
	if err := validator.Field("name", validator.BotName(spec.Name)); err != nil {
		return models.Bot{}, err
	}
	if spec.Avatar == "" {
		spec.Avatar = DefaultBotAvatar
	}

	botID, err := newID()
	if err != nil {
		return models.Bot{}, err
	}
	bot := models.Bot{ID: botID, Name: spec.Name, Avatar: spec.Avatar, Enabled: spec.Enabled}

	err = d.mutateOwned(ctx, sess, serverID, func(server *models.Server) error {
		server.Bots = append(server.Bots, bot)
		return nil
	})
	if err != nil {
		return models.Bot{}, err
	}

	d.emit(ctx, hub.Event{Type: hub.BotCreated, ServerID: serverID}, bot)
	return bot, nil
}

// RemoveBot deletes a bot. Removing a bot that isn't there is not an error.
func (d *Directory) RemoveBot(ctx context.Context, sess *session.Session, serverID string, botID string) error {
	removed := false

	err := d.mutateOwned(ctx, sess, serverID, func(server *models.Server) error {
		before := len(server.Bots)
		server.Bots = slices.DeleteFunc(server.Bots, func(b models.Bot) bool { return b.ID == botID })
		removed = len(server.Bots) != before
		return nil
	})
	if err != nil {
		return err
	}

	if removed {
		d.emit(ctx, hub.Event{Type: hub.BotDeleted, ServerID: serverID}, botID)
	}
	return nil
}

// ToggleBot flips whether the bot is enabled and returns it as stored.
func (d *Directory) ToggleBot(ctx context.Context, sess *session.Session, serverID string, botID string) (models.Bot, error) {
	var toggled models.Bot

	err := d.mutateOwned(ctx, sess, serverID, func(server *models.Server) error {
		i := slices.IndexFunc(server.Bots, func(b models.Bot) bool { return b.ID == botID })
		if i < 0 {
			return ErrBotNotFound
		}

		server.Bots[i].Enabled = !server.Bots[i].Enabled
		toggled = server.Bots[i]
		return nil
	})
	if err != nil {
		return models.Bot{}, err
	}

	d.emit(ctx, hub.Event{Type: hub.BotModified, ServerID: serverID}, toggled)
	return toggled, nil
}

// ListServers returns the servers the session user is a member of, by name.
func (d *Directory) ListServers(ctx context.Context, sess *session.Session) ([]models.Server, error) {
	userID, err := sess.UserID()
	if err != nil {
		return nil, err
	}

	servers, err := d.servers.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := []models.Server{}
	for _, server := range servers {
		if slices.Contains(server.Members, userID) {
			server.Normalize()
			result = append(result, server)
		}
	}

	slices.SortFunc(result, func(a, b models.Server) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	return result, nil
}

// GetServer returns a server the session user is a member of.
func (d *Directory) GetServer(ctx context.Context, sess *session.Session, serverID string) (models.Server, error) {
	userID, err := sess.UserID()
	if err != nil {
		return models.Server{}, err
	}

	server, ok, err := d.servers.Get(ctx, serverID)
	if err != nil {
		return models.Server{}, err
	}
	if !ok {
		return models.Server{}, ErrServerNotFound
	}
	if !slices.Contains(server.Members, userID) {
		return models.Server{}, ErrNotMember
	}

	server.Normalize()
	return server, nil
}

// ChannelServer returns the ID of the server that has channelID, if any.
func (d *Directory) ChannelServer(ctx context.Context, channelID string) (string, bool, error) {
	servers, err := d.servers.Load(ctx)
	if err != nil {
		return "", false, err
	}

	for _, server := range servers {
		if slices.ContainsFunc(server.Channels, func(c models.Channel) bool { return c.ID == channelID }) {
			return server.ID, true, nil
		}
	}
	return "", false, nil
}

// JoinServer adds the session user to a server. Joining twice does nothing.
func (d *Directory) JoinServer(ctx context.Context, sess *session.Session, serverID string) error {
	userID, err := sess.UserID()
	if err != nil {
		return err
	}

	if _, ok, err := d.users.Get(ctx, userID); err != nil {
		return err
	} else if !ok {
		return ErrUserNotFound
	}

	err = d.servers.Update(ctx, func(servers map[string]models.Server) error {
		server, ok := servers[serverID]
		if !ok {
			return ErrServerNotFound
		}
		server.Normalize()
		server.Members = models.AddID(server.Members, userID)
		servers[serverID] = server
		return nil
	})
	if err != nil {
		return err
	}

	err = d.updateUserServers(ctx, []string{userID}, func(servers []string) []string {
		return models.AddID(servers, serverID)
	})
	if err != nil {
		return err
	}

	d.emit(ctx, hub.Event{Type: hub.MemberJoined, ServerID: serverID, UserID: userID}, nil)

	return sess.Update(ctx, func(user *models.User) { user.Servers = models.AddID(user.Servers, serverID) })
}

// LeaveServer removes the session user from a server they don't own.
func (d *Directory) LeaveServer(ctx context.Context, sess *session.Session, serverID string) error {
	userID, err := sess.UserID()
	if err != nil {
		return err
	}

	err = d.servers.Update(ctx, func(servers map[string]models.Server) error {
		server, ok := servers[serverID]
		if !ok {
			return ErrServerNotFound
		}
		if server.OwnerID == userID {
			return ErrOwnerCannotLeave
		}
		if !slices.Contains(server.Members, userID) {
			return ErrNotMember
		}

		server.Members = models.RemoveID(server.Members, userID)
		servers[serverID] = server
		return nil
	})
	if err != nil {
		return err
	}

	err = d.updateUserServers(ctx, []string{userID}, func(servers []string) []string {
		return models.RemoveID(servers, serverID)
	})
	if err != nil {
		return err
	}

	d.emit(ctx, hub.Event{Type: hub.MemberLeft, ServerID: serverID, UserID: userID}, nil)

	return sess.Update(ctx, func(user *models.User) { user.Servers = models.RemoveID(user.Servers, serverID) })
}

// RemoveUser deletes the servers userID owns and takes userID out of the rest.
func (d *Directory) RemoveUser(ctx context.Context, userID string) error {
	var (
		deleted map[string][]string
		left    []string
	)

	err := d.servers.Update(ctx, func(servers map[string]models.Server) error {
		deleted = make(map[string][]string)
		left = nil

		for id, server := range servers {
			switch {
			case server.OwnerID == userID:
				deleted[id] = server.Members
				delete(servers, id)
			case slices.Contains(server.Members, userID):
				server.Members = models.RemoveID(server.Members, userID)
				servers[id] = server
				left = append(left, id)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = d.users.Update(ctx, func(users map[string]models.UserRecord) error {
		for serverID, members := range deleted {
			for _, memberID := range members {
				user, ok := users[memberID]
				if !ok {
					continue
				}
				user.Normalize()
				user.Servers = models.RemoveID(user.Servers, serverID)
				users[memberID] = user
			}
		}

		if user, ok := users[userID]; ok {
			user.Servers = []string{}
			users[userID] = user
		}
		return nil
	})
	if err != nil {
		return err
	}

	for serverID := range deleted {
		d.emit(ctx, hub.Event{Type: hub.ServerDeleted, ServerID: serverID, UserID: userID}, nil)
	}
	for _, serverID := range left {
		d.emit(ctx, hub.Event{Type: hub.MemberLeft, ServerID: serverID, UserID: userID}, nil)
	}

	d.sugar.Debugf("Removed user ID [%s] from %d servers and deleted %d they owned", userID, len(left), len(deleted))
	return nil
}
