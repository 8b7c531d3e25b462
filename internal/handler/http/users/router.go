package users_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finledger/internal/app/auth"
	"finledger/internal/app/users"
)

func RegisterRoutes(r chi.Router, us users.UserService, as auth.AuthService, authenticator func(http.Handler) http.Handler, l *zap.Logger) {
	handler := NewUserHandler(us, as, l.With(zap.String("component", "UserHTTPHandler")))

	r.Post("/api/v1/users", handler.CreateUserHandler)
	r.Post("/api/v1/sessions", handler.CreateSessionHandler)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/api/v1/profile", handler.ProfileHandler)
	})
}
