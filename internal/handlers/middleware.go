package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chatapp-local/internal/jwt"
	"chatapp-local/internal/keyValue"
	"chatapp-local/internal/session"
)

type SessionKeyType struct{}

func userExistsKey(userID string) string {
	return "user_exists:" + userID
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(SessionKeyType{}).(*session.Session)
}

func UserVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		jwtCookie, err := r.Cookie(jwt.CookieName)
		if err != nil {
			sugar.Debug(err)
			switch {
			case errors.Is(err, http.ErrNoCookie):
				http.Error(w, "No jwt cookie was provided", http.StatusUnauthorized)
			default:
				http.Error(w, "Couldn't read jwt cookie", http.StatusInternalServerError)
			}
			return
		}

		userToken, err := jwt.VerifyToken(jwtCookie.Value)
		if err != nil {
			sugar.Debug(err)
			http.Error(w, "Couldn't verify JWT", http.StatusUnauthorized)
			return
		}

		// check if token is expired
		expired := time.Now().UTC().After(userToken.ExpiresAt.UTC())
		if expired {
			http.Error(w, "Login expired", http.StatusUnauthorized)
			return
		}

		// check if user exists
		key := userExistsKey(userToken.UserID)

		userFound := false

		entry, err := cache.Get(ctx, key)
		if err != nil {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}

		if !entry.Exists() { // user isn't cached
			userFound, err = accounts.Exists(ctx, userToken.UserID)
			if err != nil {
				sugar.Error(err)
				http.Error(w, "", http.StatusInternalServerError)
				return
			}
			if userFound {
				err = keyValue.Set(ctx, cache, key, "y", 15*time.Minute)
				if err != nil {
					sugar.Error(err)
					http.Error(w, "", http.StatusInternalServerError)
					return
				}
				sugar.Debugf("User ID [%s] was found and was cached", userToken.UserID)
			} else {
				sugar.Infof("User ID [%s] from a valid token was not found", userToken.UserID)
			}
		} else {
			sugar.Debugf("User ID [%s] was found in cache", userToken.UserID)
			userFound = true
		}

		// delete JWT token from client, this should run when a user deleted their account,
		// but kept the JWT token for any reason
		if !userFound {
			deleteJwtCookie := jwt.ExpiredCookie()
			http.SetCookie(w, &deleteJwtCookie)
			http.Error(w, "", http.StatusUnauthorized)
			return
		}

		// renew JWT and cookie
		timeSinceLast := time.Now().UTC().Sub(userToken.IssuedAt.Time)

		if timeSinceLast >= 15*time.Minute {
			updatedCookie, err := jwt.CreateToken(userToken.Remember, userToken.UserID)
			if err != nil {
				sugar.Error(err)
				http.Error(w, "Couldn't renew cookie", http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &updatedCookie)
		}

		sess, err := session.Resume(ctx, pointer, userToken.UserID)
		if err != nil {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}

		// this passes the authenticated user's session to next handler
		ctx = context.WithValue(ctx, SessionKeyType{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
