package handlers

import (
	"net/http"

	"chatapp-local/internal/models"
)

func CreateChannel(w http.ResponseWriter, r *http.Request) {
	serverID, ok := queryParam(w, r, "serverID")
	if !ok {
		return
	}

	type ChannelRequest struct {
		Name string             `json:"name" validate:"required"`
		Type models.ChannelType `json:"type" validate:"required"`
	}

	var request ChannelRequest
	if !decodeBody(w, r, &request) {
		return
	}

	channel, err := workspaces.AddChannel(r.Context(), sessionFrom(r), serverID, request.Name, request.Type)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, channel)
}

func DeleteChannel(w http.ResponseWriter, r *http.Request) {
	serverID, ok := queryParam(w, r, "serverID")
	if !ok {
		return
	}
	channelID, ok := queryParam(w, r, "channelID")
	if !ok {
		return
	}

	err := workspaces.RemoveChannel(r.Context(), sessionFrom(r), serverID, channelID)
	if err != nil {
		handleError(w, err)
	}
}
