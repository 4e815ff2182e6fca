package user

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"castive/infrastructure"
)

// CallerFromContext mirrors the auth gate's context lookup without importing
// the auth package (which imports this one).
type CallerFromContext func(ctx context.Context) (*User, bool)

type Handler struct {
	service *Service
	caller  CallerFromContext
}

func NewHandler(service *Service, caller CallerFromContext) *Handler {
	return &Handler{service: service, caller: caller}
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// SetupRoutes registers the user endpoints; everything here requires auth.
func SetupRoutes(r *mux.Router, h *Handler, requireAuth mux.MiddlewareFunc) {
	r.Handle("/search/users", requireAuth(http.HandlerFunc(h.Search))).Methods(http.MethodGet)

	s := r.PathPrefix("/users").Subrouter()
	s.Use(requireAuth)

	s.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	s.HandleFunc("/me", h.UpdateMe).Methods(http.MethodPatch)
	s.HandleFunc("/me", h.DeleteMe).Methods(http.MethodDelete)
	s.HandleFunc("/{id}", h.GetProfile).Methods(http.MethodGet)
	s.HandleFunc("/{id}/follow", h.Follow).Methods(http.MethodPost)
	s.HandleFunc("/{id}/follow", h.Unfollow).Methods(http.MethodDelete)
	s.HandleFunc("/{id}/block", h.Block).Methods(http.MethodPost)
	s.HandleFunc("/{id}/block", h.Unblock).Methods(http.MethodDelete)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r.Context())
	if !ok {
		infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, caller)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r.Context())
	if !ok {
		infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
		return
	}

	profiles, err := h.service.Search(r.Context(), caller, r.URL.Query().Get("q"))
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, profiles)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r.Context())
	if !ok {
		infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrastructure.RespondError(w, infrastructure.ErrBadRequest)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), caller, req.Username, req.Email)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r.Context())
	if !ok {
		infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), caller); err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondMessage(w, http.StatusOK, "Account deleted.")
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller, targetID, err := h.callerAndTarget(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), caller.ID, targetID)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, profile)
}

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	h.relationOp(w, r, h.service.Follow, "Followed.")
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.relationOp(w, r, h.service.Unfollow, "Unfollowed.")
}

func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.relationOp(w, r, h.service.Block, "Blocked.")
}

func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.relationOp(w, r, h.service.Unblock, "Unblocked.")
}

func (h *Handler) relationOp(w http.ResponseWriter, r *http.Request, op func(context.Context, *User, uuid.UUID) error, message string) {
	caller, targetID, err := h.callerAndTarget(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	if err := op(r.Context(), caller, targetID); err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondMessage(w, http.StatusOK, message)
}

func (h *Handler) callerAndTarget(r *http.Request) (*User, uuid.UUID, error) {
	caller, ok := h.caller(r.Context())
	if !ok {
		return nil, uuid.Nil, infrastructure.ErrUnauthorized
	}

	targetID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid user id: %w", infrastructure.ErrBadRequest)
	}
	return caller, targetID, nil
}
