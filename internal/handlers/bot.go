package handlers

import (
	"net/http"

	"chatapp-local/internal/workspace"
)

func CreateBot(w http.ResponseWriter, r *http.Request) {
	serverID, ok := queryParam(w, r, "serverID")
	if !ok {
		return
	}

	type BotRequest struct {
		Name    string `json:"name" validate:"required"`
		Avatar  string `json:"avatar" validate:"omitempty,url|datauri"`
		Enabled bool   `json:"enabled"`
	}

	var request BotRequest
	if !decodeBody(w, r, &request) {
		return
	}

	spec := workspace.BotSpec{Name: request.Name, Avatar: request.Avatar, Enabled: request.Enabled}
	bot, err := workspaces.AddBot(r.Context(), sessionFrom(r), serverID, spec)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bot)
}

func DeleteBot(w http.ResponseWriter, r *http.Request) {
	serverID, ok := queryParam(w, r, "serverID")
	if !ok {
		return
	}
	botID, ok := queryParam(w, r, "botID")
	if !ok {
		return
	}

	err := workspaces.RemoveBot(r.Context(), sessionFrom(r), serverID, botID)
	if err != nil {
		handleError(w, err)
	}
}

func ToggleBot(w http.ResponseWriter, r *http.Request) {
	serverID, ok := queryParam(w, r, "serverID")
	if !ok {
		return
	}
	botID, ok := queryParam(w, r, "botID")
	if !ok {
		return
	}

	bot, err := workspaces.ToggleBot(r.Context(), sessionFrom(r), serverID, botID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bot)
}
