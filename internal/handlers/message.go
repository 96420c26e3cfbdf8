package handlers

import (
	"context"
	"net/http"
	"slices"

	"chatapp-local/internal/models"
	"chatapp-local/internal/session"
)

// checkChannel makes sure a server channel exists and the session user is a
// member of its server. Channels no server has are direct conversations, but
// a server's channel can't be reached without naming that server.
func checkChannel(ctx context.Context, sess *session.Session, serverID string, channelID string) error {
	owner, found, err := workspaces.ChannelServer(ctx, channelID)
	if err != nil {
		return err
	}
	if found && owner != serverID {
		return errChannelNotFound
	}
	if serverID == "" {
		return nil
	}

	server, err := workspaces.GetServer(ctx, sess, serverID)
	if err != nil {
		return err
	}

	if !slices.ContainsFunc(server.Channels, func(c models.Channel) bool { return c.ID == channelID }) {
		return errChannelNotFound
	}
	return nil
}

func CreateMessage(w http.ResponseWriter, r *http.Request) {
	type AddMessageRequest struct {
		Content   string `json:"content"`
		ChannelID string `json:"channelId" validate:"required"`
		ServerID  string `json:"serverId"`
	}

	var request AddMessageRequest
	if !decodeBody(w, r, &request) {
		return
	}

	ctx := r.Context()
	sess := sessionFrom(r)

	err := checkChannel(ctx, sess, request.ServerID, request.ChannelID)
	if err != nil {
		handleError(w, err)
		return
	}

	userID, err := sess.UserID()
	if err != nil {
		handleError(w, err)
		return
	}

	// the session only knows the ID, the message needs name and avatar
	user, err := accounts.Get(ctx, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	msg, err := messageLog.Add(ctx, session.ForUser(user), request.ChannelID, request.ServerID, request.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func GetMessageList(w http.ResponseWriter, r *http.Request) {
	channelID, ok := queryParam(w, r, "channelID")
	if !ok {
		return
	}

	err := checkChannel(r.Context(), sessionFrom(r), r.URL.Query().Get("serverID"), channelID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageLog.List(channelID))
}
