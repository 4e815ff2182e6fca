package announcement

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"castive/infrastructure"
	"castive/internal/user"
)

type Handler struct {
	service *Service
	caller  user.CallerFromContext
}

func NewHandler(service *Service, caller user.CallerFromContext) *Handler {
	return &Handler{service: service, caller: caller}
}

type createAnnouncementRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SetupRoutes registers the announcement feed for everyone signed in,
// creation for moderators and deletion for admins.
func SetupRoutes(r *mux.Router, h *Handler, requireAuth, requireModerator, requireAdmin mux.MiddlewareFunc) {
	s := r.PathPrefix("/announcements").Subrouter()

	s.Handle("", requireAuth(http.HandlerFunc(h.GetAll))).Methods(http.MethodGet)
	s.Handle("", requireModerator(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	s.Handle("/{id}", requireAdmin(http.HandlerFunc(h.Delete))).Methods(http.MethodDelete)
}

func (h *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	announcements, err := h.service.GetAll(r.Context())
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, announcements)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r.Context())
	if !ok {
		infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
		return
	}

	var req createAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrastructure.RespondError(w, infrastructure.ErrBadRequest)
		return
	}

	a, err := h.service.Create(r.Context(), caller, req.Title, req.Body)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusCreated, a)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		infrastructure.RespondError(w, fmt.Errorf("invalid announcement id: %w", infrastructure.ErrBadRequest))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondMessage(w, http.StatusOK, "Announcement deleted.")
}
