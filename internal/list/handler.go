package list

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

type createListRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

type updateListRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Private     *bool   `json:"private"`
}

type addItemRequest struct {
	ItemID string `json:"itemId"`
}

// SetupRoutes registers list, library and search endpoints; all require
// auth. The literal routes precede the {id} ones so mux matches them first.
func SetupRoutes(r *mux.Router, h *Handler, requireAuth mux.MiddlewareFunc) {
	r.Handle("/search", requireAuth(http.HandlerFunc(h.Search))).Methods(http.MethodGet)

	s := r.PathPrefix("/lists").Subrouter()
	s.Use(requireAuth)

	s.HandleFunc("", h.Create).Methods(http.MethodPost)
	s.HandleFunc("/me", h.OwnLists).Methods(http.MethodGet)
	s.HandleFunc("/library", h.Library).Methods(http.MethodGet)
	s.HandleFunc("/library/{id}", h.FollowList).Methods(http.MethodPut)
	s.HandleFunc("/library/{id}", h.UnfollowList).Methods(http.MethodDelete)
	s.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
	s.HandleFunc("/{id}", h.Update).Methods(http.MethodPatch)
	s.HandleFunc("/{id}", h.Delete).Methods(http.MethodDelete)
	s.HandleFunc("/{id}/items", h.AddItem).Methods(http.MethodPut)
	s.HandleFunc("/{id}/items/{itemId}", h.RemoveItem).Methods(http.MethodDelete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r.Context())
	if !ok {
		infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
		return
	}

	var req createListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrastructure.RespondError(w, infrastructure.ErrBadRequest)
		return
	}

	l, err := h.service.Create(r.Context(), caller, req.Title, req.Description, req.Private)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusCreated, l)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, id, err := h.callerAndID(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	l, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, l)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, id, err := h.callerAndID(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	var req updateListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrastructure.RespondError(w, infrastructure.ErrBadRequest)
		return
	}

	l, err := h.service.Update(r.Context(), caller, id, req.Title, req.Description, req.Private)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, l)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, id, err := h.callerAndID(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), caller, id); err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondMessage(w, http.StatusOK, "List deleted.")
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	caller, id, err := h.callerAndID(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrastructure.RespondError(w, infrastructure.ErrBadRequest)
		return
	}

	l, err := h.service.AddItem(r.Context(), caller, id, req.ItemID)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, l)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	caller, id, err := h.callerAndID(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	l, err := h.service.RemoveItem(r.Context(), caller, id, mux.Vars(r)["itemId"])
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, l)
}

func (h *Handler) OwnLists(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r.Context())
	if !ok {
		infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
		return
	}

	lists, err := h.service.OwnLists(r.Context(), caller)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, lists)
}

func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r.Context())
	if !ok {
		infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
		return
	}

	lists, err := h.service.Library(r.Context(), caller)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, lists)
}

func (h *Handler) FollowList(w http.ResponseWriter, r *http.Request) {
	caller, id, err := h.callerAndID(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	if err := h.service.FollowList(r.Context(), caller, id); err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondMessage(w, http.StatusOK, "List added to library.")
}

func (h *Handler) UnfollowList(w http.ResponseWriter, r *http.Request) {
	caller, id, err := h.callerAndID(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	if err := h.service.UnfollowList(r.Context(), caller, id); err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondMessage(w, http.StatusOK, "List removed from library.")
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r.Context())
	if !ok {
		infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
		return
	}

	lists, err := h.service.Search(r.Context(), caller, r.URL.Query().Get("q"))
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	infrastructure.RespondJSON(w, http.StatusOK, lists)
}

func (h *Handler) callerAndID(r *http.Request) (*user.User, uuid.UUID, error) {
	caller, ok := h.caller(r.Context())
	if !ok {
		return nil, uuid.Nil, infrastructure.ErrUnauthorized
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid list id: %w", infrastructure.ErrBadRequest)
	}
	return caller, id, nil
}
