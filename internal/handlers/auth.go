package handlers

import (
	"errors"
	"net/http"

	"chatapp-local/internal/account"
	"chatapp-local/internal/jwt"
	"chatapp-local/internal/models"
	"chatapp-local/internal/session"
)

type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func setTokenCookie(w http.ResponseWriter, r *http.Request, userID string) bool {
	cookie, err := jwt.CreateToken(r.URL.Query().Get("rememberMe") == "true", userID)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return false
	}

	http.SetCookie(w, &cookie)
	return true
}

func Register(w http.ResponseWriter, r *http.Request) {
	type Registration struct {
		Username        string `json:"username" validate:"required"`
		Password        string `json:"password" validate:"required"`
		ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
	}

	var registration Registration
	if !decodeBody(w, r, &registration) {
		return
	}

	user, err := accounts.Register(r.Context(), session.New(pointer), registration.Username, registration.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	if !setTokenCookie(w, r, user.ID) {
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func Login(w http.ResponseWriter, r *http.Request) {
	var login Credentials
	if !decodeBody(w, r, &login) {
		return
	}

	user, err := accounts.Login(r.Context(), session.New(pointer), login.Username, login.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	if !setTokenCookie(w, r, user.ID) {
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func Logout(w http.ResponseWriter, r *http.Request) {
	err := accounts.Logout(r.Context(), sessionFrom(r))
	if err != nil {
		handleError(w, err)
		return
	}

	deleteJwtCookie := jwt.ExpiredCookie()
	http.SetCookie(w, &deleteJwtCookie)
}

// CurrentSession returns the logged in user's record. When the profile's saved
// session belongs to the same user, the saved copy is refreshed too; it never
// logs anyone in by itself.
func CurrentSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)

	userID, err := sess.UserID()
	if err != nil {
		handleError(w, err)
		return
	}

	// the saved copy may be older than the record
	var user models.User
	user, err = accounts.Get(ctx, userID)
	if errors.Is(err, account.ErrUserNotFound) {
		sugar.Infof("Session of user ID [%s] points to a deleted account", userID)
		if err := sess.Clear(ctx); err != nil {
			sugar.Error(err)
		}
		deleteJwtCookie := jwt.ExpiredCookie()
		http.SetCookie(w, &deleteJwtCookie)
		http.Error(w, "No saved session", http.StatusUnauthorized)
		return
	} else if err != nil {
		handleError(w, err)
		return
	}

	if err := sess.SetUser(ctx, user); err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
