package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"chatapp-local/internal/account"
	"chatapp-local/internal/fileHandlers"
	"chatapp-local/internal/messages"
	"chatapp-local/internal/session"
	"chatapp-local/internal/social"
	"chatapp-local/internal/storage"
	rules "chatapp-local/internal/validator"
	"chatapp-local/internal/workspace"

	"github.com/go-playground/validator/v10"
)

var errChannelNotFound = errors.New("channel not found")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		sugar.Error(err)
	}
}

// decodeBody reads a JSON body into v and checks its validate tags. On failure
// it has already written the response.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return false
	}

	err = validate.Struct(v)
	if err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return false
		}

		// sends back 400 with the form field errors
		fieldErrors := make(map[string]string)
		for _, e := range validateErrs {
			fieldErrors[e.Field()] = e.Tag()
		}
		writeJSON(w, http.StatusBadRequest, fieldErrors)
		return false
	}

	return true
}

func queryParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		http.Error(w, "Missing "+name, http.StatusBadRequest)
		return "", false
	}
	return value, true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated),
		errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, account.ErrWrongPassword),
		errors.Is(err, workspace.ErrNotOwner),
		errors.Is(err, workspace.ErrNotMember),
		errors.Is(err, workspace.ErrOwnerCannotLeave):
		return http.StatusForbidden

	case errors.Is(err, account.ErrUserNotFound),
		errors.Is(err, social.ErrUserNotFound),
		errors.Is(err, social.ErrRequestNotFound),
		errors.Is(err, workspace.ErrUserNotFound),
		errors.Is(err, workspace.ErrServerNotFound),
		errors.Is(err, workspace.ErrBotNotFound),
		errors.Is(err, messages.ErrWrongServer),
		errors.Is(err, errChannelNotFound):
		return http.StatusNotFound

	case errors.Is(err, account.ErrDuplicateUsername),
		errors.Is(err, social.ErrAlreadyFriends),
		errors.Is(err, social.ErrAlreadyRequested),
		errors.Is(err, storage.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, social.ErrSelf),
		errors.Is(err, workspace.ErrInvalidChannelType),
		errors.Is(err, messages.ErrEmptyMessage),
		errors.Is(err, messages.ErrMessageTooLong),
		errors.Is(err, messages.ErrNoChannel),
		errors.Is(err, fileHandlers.ErrUnsupportedType):
		return http.StatusBadRequest

	case errors.Is(err, fileHandlers.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	}

	return http.StatusInternalServerError
}

// handleError answers with the status a rejection maps to. Anything
// unexpected is logged and answered with 500.
func handleError(w http.ResponseWriter, err error) {
	var fieldErr *rules.FieldError
	if errors.As(err, &fieldErr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{fieldErr.Field: fieldErr.Code})
		return
	}

	status := statusOf(err)
	if status == http.StatusInternalServerError {
		sugar.Error(err)
		http.Error(w, "", status)
		return
	}

	sugar.Debug(err)
	http.Error(w, err.Error(), status)
}
