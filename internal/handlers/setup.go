package handlers

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"chatapp-local/internal/account"
	"chatapp-local/internal/keyValue"
	"chatapp-local/internal/messages"
	"chatapp-local/internal/models"
	"chatapp-local/internal/social"
	"chatapp-local/internal/storage"
	"chatapp-local/internal/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Dependencies are the directories the handlers act on.
type Dependencies struct {
	Accounts   *account.Directory
	Social     *social.Graph
	Workspaces *workspace.Directory
	Messages   *messages.Log
	// Cache remembers which users exist so every request doesn't load the users table
	Cache keyValue.Store
	// Pointer is the saved session of the profile
	Pointer *storage.Record[models.User]
}

var sugar *zap.SugaredLogger
var validate *validator.Validate

var accounts *account.Directory
var graph *social.Graph
var workspaces *workspace.Directory
var messageLog *messages.Log
var cache keyValue.Store
var pointer *storage.Record[models.User]

// NewRouter wires the API routes. It must be called before any handler runs.
func NewRouter(printHttpRequests bool, _sugar *zap.SugaredLogger, deps Dependencies) http.Handler {
	sugar = _sugar
	accounts = deps.Accounts
	graph = deps.Social
	workspaces = deps.Workspaces
	messageLog = deps.Messages
	cache = deps.Cache
	pointer = deps.Pointer

	validate = validator.New(validator.WithRequiredStructEnabled())
	// report json names in field errors
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	r := chi.NewRouter()
	if printHttpRequests {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Post("/login", Login)
			r.Post("/register", Register)
			r.With(UserVerifier).Get("/current", CurrentSession)
			r.With(UserVerifier).Post("/logout", Logout)
			r.With(UserVerifier).Get("/isLoggedIn", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		})

		api.Route("/user", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Get("/fetch", GetUserInfo)
			r.Post("/username", UpdateUsername)
			r.Post("/password", UpdatePassword)
			r.Post("/avatar", UpdateAvatar)
			r.Post("/delete", DeleteAccount)
		})

		api.Route("/friends", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Get("/fetch", GetFriends)
			r.Post("/request", SendFriendRequest)
			r.Post("/accept", AcceptFriendRequest)
			r.Post("/reject", RejectFriendRequest)
			r.Post("/cancel", CancelFriendRequest)
			r.Post("/remove", RemoveFriend)
		})

		api.Route("/server", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Get("/fetch", GetServerList)
			r.Get("/get", GetServer)
			r.Post("/create", CreateServer)
			r.Post("/update", UpdateServer)
			r.Post("/delete", DeleteServer)
			r.Post("/join", JoinServer)
			r.Post("/leave", LeaveServer)
		})

		api.Route("/members", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Get("/fetch", GetMemberList)
		})

		api.Route("/channel", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/create", CreateChannel)
			r.Post("/delete", DeleteChannel)
		})

		api.Route("/bot", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/create", CreateBot)
			r.Post("/delete", DeleteBot)
			r.Post("/toggle", ToggleBot)
		})

		api.Route("/message", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/create", CreateMessage)
			r.Get("/fetch", GetMessageList)
		})
	})

	r.Handle("/*", http.FileServer(http.Dir("./public")))

	return r
}

func Setup(isHttps bool, cfg *models.ConfigFile, _sugar *zap.SugaredLogger, deps Dependencies) error {
	r := NewRouter(cfg.PrintHttpRequests, _sugar, deps)

	address := fmt.Sprintf("%s:%s", cfg.Address, cfg.Port)

	if isHttps {
		return http.ListenAndServeTLS(address, cfg.TlsCert, cfg.TlsKey, r)
	}
	return http.ListenAndServe(address, r)
}
