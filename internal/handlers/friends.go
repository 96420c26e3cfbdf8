package handlers

import (
	"context"
	"net/http"

	"chatapp-local/internal/session"
)

func GetFriends(w http.ResponseWriter, r *http.Request) {
	overview, err := graph.Overview(r.Context(), sessionFrom(r))
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}

func SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	type FriendRequest struct {
		Username string `json:"username" validate:"required"`
	}

	var request FriendRequest
	if !decodeBody(w, r, &request) {
		return
	}

	err := graph.SendFriendRequest(r.Context(), sessionFrom(r), request.Username)
	if err != nil {
		handleError(w, err)
	}
}

// withOtherUser runs one of the graph operations that take another user's ID.
func withOtherUser(op func(ctx context.Context, sess *session.Session, userID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := queryParam(w, r, "userID")
		if !ok {
			return
		}

		err := op(r.Context(), sessionFrom(r), userID)
		if err != nil {
			handleError(w, err)
		}
	}
}

func AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	withOtherUser(graph.AcceptFriendRequest)(w, r)
}

func RejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	withOtherUser(graph.RejectFriendRequest)(w, r)
}

func CancelFriendRequest(w http.ResponseWriter, r *http.Request) {
	withOtherUser(graph.CancelFriendRequest)(w, r)
}

func RemoveFriend(w http.ResponseWriter, r *http.Request) {
	withOtherUser(graph.RemoveFriend)(w, r)
}
