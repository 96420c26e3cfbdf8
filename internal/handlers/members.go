package handlers

import (
	"net/http"
)

func GetMemberList(w http.ResponseWriter, r *http.Request) {
	serverID, ok := queryParam(w, r, "serverID")
	if !ok {
		return
	}

	ctx := r.Context()

	server, err := workspaces.GetServer(ctx, sessionFrom(r), serverID)
	if err != nil {
		handleError(w, err)
		return
	}

	users, err := accounts.List(ctx, server.Members)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}
