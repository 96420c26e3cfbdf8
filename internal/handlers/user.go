package handlers

import (
	"errors"
	"net/http"

	"chatapp-local/internal/fileHandlers"
	"chatapp-local/internal/jwt"
	rules "chatapp-local/internal/validator"
)

func GetUserInfo(w http.ResponseWriter, r *http.Request) {
	paramUserID, ok := queryParam(w, r, "userID")
	if !ok {
		return
	}

	requestedUserID := paramUserID
	if paramUserID == "self" {
		var err error
		requestedUserID, err = sessionFrom(r).UserID()
		if err != nil {
			handleError(w, err)
			return
		}
	}

	user, err := accounts.Get(r.Context(), requestedUserID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func UpdateUsername(w http.ResponseWriter, r *http.Request) {
	type UsernameRequest struct {
		Username string `json:"username" validate:"required"`
	}

	var request UsernameRequest
	if !decodeBody(w, r, &request) {
		return
	}

	err := accounts.UpdateUsername(r.Context(), sessionFrom(r), request.Username)
	if err != nil {
		handleError(w, err)
	}
}

func UpdatePassword(w http.ResponseWriter, r *http.Request) {
	type PasswordRequest struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,nefield=OldPassword"`
	}

	var request PasswordRequest
	if !decodeBody(w, r, &request) {
		return
	}

	err := accounts.UpdatePassword(r.Context(), sessionFrom(r), request.OldPassword, request.NewPassword)
	if err != nil {
		handleError(w, err)
	}
}

// avatarFromRequest takes an uploaded "picture" from multipart forms and an
// "avatar" link or data URI from JSON bodies. It returns "" when neither was sent.
func avatarFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	if isMultipart(r) {
		picture, err := fileHandlers.HandleAvatarPicture(r)
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			handleError(w, err)
			return "", false
		}
		return picture, true
	}

	type AvatarRequest struct {
		Avatar string `json:"avatar"`
	}

	var request AvatarRequest
	if !decodeBody(w, r, &request) {
		return "", false
	}

	if request.Avatar != "" {
		if err := rules.Field("avatar", rules.Avatar(request.Avatar)); err != nil {
			handleError(w, err)
			return "", false
		}
	}
	return request.Avatar, true
}

func UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	avatar, ok := avatarFromRequest(w, r)
	if !ok {
		return
	}
	if avatar == "" {
		http.Error(w, "No avatar was provided", http.StatusBadRequest)
		return
	}

	err := accounts.UpdateAvatar(r.Context(), sessionFrom(r), avatar)
	if err != nil {
		handleError(w, err)
	}
}

func DeleteAccount(w http.ResponseWriter, r *http.Request) {
	type DeleteRequest struct {
		Password string `json:"password" validate:"required"`
	}

	var request DeleteRequest
	if !decodeBody(w, r, &request) {
		return
	}

	ctx := r.Context()
	sess := sessionFrom(r)

	userID, err := sess.UserID()
	if err != nil {
		handleError(w, err)
		return
	}

	err = accounts.DeleteAccount(ctx, sess, request.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	err = cache.Delete(ctx, userExistsKey(userID))
	if err != nil {
		sugar.Error(err)
	}

	deleteJwtCookie := jwt.ExpiredCookie()
	http.SetCookie(w, &deleteJwtCookie)
}
