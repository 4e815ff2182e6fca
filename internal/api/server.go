package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"castive/infrastructure"
	"castive/internal/announcement"
	"castive/internal/auth"
	"castive/internal/list"
	"castive/internal/user"
)

type Server struct {
	router *mux.Router
}

// NewServer assembles the versioned HTTP API. Auth endpoints get a tight
// per-IP limiter, mail-sending endpoints an even tighter one, everything
// else shares a generous global cap.
func NewServer(
	gate *auth.Gate,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	listHandler *list.Handler,
	announcementHandler *announcement.Handler,
	logger *zap.Logger,
) *Server {
	router := mux.NewRouter()
	router.Use(RequestLogger(logger))
	router.Use(RateLimit(rate.Limit(20), 40))

	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()

	authLimiter := RateLimit(rate.Limit(1), 5)
	mailLimiter := RateLimit(rate.Every(time.Minute), 1)

	auth.SetupRoutes(v1, authHandler, gate, authLimiter, mailLimiter)
	user.SetupRoutes(v1, userHandler, gate.RequireAuth)
	list.SetupRoutes(v1, listHandler, gate.RequireAuth)
	announcement.SetupRoutes(v1, announcementHandler, gate.RequireAuth, gate.RequireModerator, gate.RequireAdmin)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		infrastructure.RespondError(w, infrastructure.ErrNotFound)
	})

	return &Server{router: router}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	infrastructure.RespondMessage(w, http.StatusOK, "ok")
}
