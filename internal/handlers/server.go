package handlers

import (
	"context"
	"errors"
	"net/http"

	"chatapp-local/internal/fileHandlers"
	"chatapp-local/internal/models"
	"chatapp-local/internal/session"
)

func CreateServer(w http.ResponseWriter, r *http.Request) {
	var name, avatar string

	if isMultipart(r) {
		picture, err := fileHandlers.HandleAvatarPicture(r)
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			handleError(w, err)
			return
		}
		name = r.FormValue("name")
		avatar = picture
	} else {
		type ServerRequest struct {
			Name   string `json:"name"`
			Avatar string `json:"avatar" validate:"omitempty,url|datauri"`
		}

		var request ServerRequest
		if !decodeBody(w, r, &request) {
			return
		}
		name = request.Name
		avatar = request.Avatar
	}

	server, err := workspaces.CreateServer(r.Context(), sessionFrom(r), name, avatar)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, server)
}

func GetServerList(w http.ResponseWriter, r *http.Request) {
	servers, err := workspaces.ListServers(r.Context(), sessionFrom(r))
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, servers)
}

func GetServer(w http.ResponseWriter, r *http.Request) {
	serverID, ok := queryParam(w, r, "serverID")
	if !ok {
		return
	}

	server, err := workspaces.GetServer(r.Context(), sessionFrom(r), serverID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, server)
}

func UpdateServer(w http.ResponseWriter, r *http.Request) {
	serverID, ok := queryParam(w, r, "serverID")
	if !ok {
		return
	}

	type UpdateRequest struct {
		Name   *string `json:"name"`
		Avatar *string `json:"avatar" validate:"omitnil,url|datauri"`
	}

	var request UpdateRequest
	if !decodeBody(w, r, &request) {
		return
	}

	update := models.ServerUpdate{Name: request.Name, Avatar: request.Avatar}
	err := workspaces.UpdateServer(r.Context(), sessionFrom(r), serverID, update)
	if err != nil {
		handleError(w, err)
	}
}

// withServer runs one of the workspace operations that only take a server ID.
func withServer(op func(ctx context.Context, sess *session.Session, serverID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serverID, ok := queryParam(w, r, "serverID")
		if !ok {
			return
		}

		err := op(r.Context(), sessionFrom(r), serverID)
		if err != nil {
			handleError(w, err)
		}
	}
}

func DeleteServer(w http.ResponseWriter, r *http.Request) {
	withServer(workspaces.DeleteServer)(w, r)
}

func JoinServer(w http.ResponseWriter, r *http.Request) {
	withServer(workspaces.JoinServer)(w, r)
}

func LeaveServer(w http.ResponseWriter, r *http.Request) {
	withServer(workspaces.LeaveServer)(w, r)
}
