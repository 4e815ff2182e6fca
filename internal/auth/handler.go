package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"castive/infrastructure"
	"castive/internal/email"
	"castive/internal/sessions"
	"castive/internal/user"
)

type Handler struct {
	manager *sessions.Manager
	flows   *Flows
	users   user.Repository
	sender  *email.Sender
	logger  *zap.Logger
}

func NewHandler(manager *sessions.Manager, flows *Flows, users user.Repository, sender *email.Sender, logger *zap.Logger) *Handler {
	return &Handler{
		manager: manager,
		flows:   flows,
		users:   users,
		sender:  sender,
		logger:  logger,
	}
}

// SetupRoutes registers the auth endpoints. Register/login/refresh sit
// behind the tight limiter, the two mail-request endpoints behind the mail
// limiter.
func SetupRoutes(r *mux.Router, h *Handler, gate *Gate, authLimiter, mailLimiter mux.MiddlewareFunc) {
	s := r.PathPrefix("/auth").Subrouter()

	s.Handle("/register", authLimiter(http.HandlerFunc(h.Register))).Methods(http.MethodPut)
	s.Handle("/login", authLimiter(http.HandlerFunc(h.Login))).Methods(http.MethodPost)
	s.Handle("/refresh", authLimiter(http.HandlerFunc(h.Refresh))).Methods(http.MethodPost)
	s.Handle("/logout", gate.RequireAuth(http.HandlerFunc(h.Logout))).Methods(http.MethodPost)
	s.Handle("/logoutall", gate.RequireAuth(http.HandlerFunc(h.LogoutAll))).Methods(http.MethodPost)
	s.HandleFunc("/verify", h.VerifyEmail).Methods(http.MethodPatch)
	s.Handle("/request/verification", mailLimiter(http.HandlerFunc(h.RequestVerification))).Methods(http.MethodPost)
	s.HandleFunc("/reset", h.ResetPassword).Methods(http.MethodPatch)
	s.Handle("/request/reset", mailLimiter(http.HandlerFunc(h.RequestReset))).Methods(http.MethodPost)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrastructure.RespondError(w, infrastructure.ErrBadRequest)
		return
	}

	birthdate, validationErrors := registerValidation(&req)
	if len(validationErrors) > 0 {
		infrastructure.RespondValidationErrors(w, validationErrors)
		return
	}

	if err := h.checkUnique(r, &req); err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	newUser := &user.User{
		Username:  req.Username,
		Email:     user.Email{Value: strings.ToLower(req.Email)},
		Birthdate: birthdate,
		Role:      user.RoleUser,
	}
	if newUser.Age() < 13 {
		infrastructure.RespondError(w, fmt.Errorf("users under the age of 13 are not allowed: %w", infrastructure.ErrForbidden))
		return
	}
	if err := newUser.SetPassword(req.Password); err != nil {
		infrastructure.RespondError(w, infrastructure.ErrInternalServer)
		return
	}

	if err := h.users.Create(r.Context(), newUser); err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	if err := h.flows.SendVerificationMail(newUser.Email.Value); err != nil {
		h.logger.Warn("verification mail not sent", zap.Error(err))
	}
	go func() {
		if err := h.sender.SendWelcomeMail(newUser.Email.Value, newUser.Username); err != nil {
			h.logger.Warn("welcome mail failed", zap.Error(err))
		}
	}()

	pair, err := h.manager.Issue(r.Context(), newUser.ID.String())
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	infrastructure.RespondJSON(w, http.StatusCreated, pair)
}

func (h *Handler) checkUnique(r *http.Request, req *RegisterRequest) error {
	if _, err := h.users.GetByEmail(r.Context(), strings.ToLower(req.Email)); err == nil {
		return fmt.Errorf("email already exists: %w", infrastructure.ErrConflict)
	} else if !errors.Is(err, infrastructure.ErrNotFound) {
		return err
	}

	if _, err := h.users.GetByUsername(r.Context(), req.Username); err == nil {
		return fmt.Errorf("username already exists: %w", infrastructure.ErrConflict)
	} else if !errors.Is(err, infrastructure.ErrNotFound) {
		return err
	}
	return nil
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrastructure.RespondError(w, infrastructure.ErrBadRequest)
		return
	}

	pair, u, err := h.manager.Login(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	// Nudge unverified accounts on every login.
	if !u.Email.Verified {
		if err := h.flows.SendVerificationMail(u.Email.Value); err != nil {
			h.logger.Warn("verification mail not sent", zap.Error(err))
		}
	}

	infrastructure.RespondJSON(w, http.StatusOK, pair)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	accessToken, err := bearerToken(r, "Authorization")
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}
	refreshToken, err := refreshTokenHeader(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	pair, err := h.manager.Refresh(r.Context(), accessToken, refreshToken)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	infrastructure.RespondJSON(w, http.StatusOK, pair)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())
	accessToken, _ := AccessTokenFromContext(r.Context())

	refreshToken, err := refreshTokenHeader(r)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	if err := h.manager.Logout(r.Context(), caller.ID.String(), accessToken, refreshToken); err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	infrastructure.RespondMessage(w, http.StatusOK, "Logged out.")
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	if err := h.manager.LogoutAll(r.Context(), caller.ID.String()); err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	infrastructure.RespondMessage(w, http.StatusOK, "Logged out from all sessions.")
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		infrastructure.RespondError(w, fmt.Errorf("verification token is required: %w", infrastructure.ErrBadRequest))
		return
	}

	emailAddr, err := h.flows.ConfirmVerification(r.Context(), req.Token)
	if err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	infrastructure.RespondMessage(w, http.StatusOK, fmt.Sprintf("Email (%s) has successfully been verified.", emailAddr))
}

func (h *Handler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	var req RequestMailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		infrastructure.RespondError(w, fmt.Errorf("email is required: %w", infrastructure.ErrBadRequest))
		return
	}

	if err := h.flows.RequestVerification(r.Context(), req.Email); err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	infrastructure.RespondMessage(w, http.StatusOK, "New verification mail has been sent.")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.Password == "" {
		infrastructure.RespondError(w, fmt.Errorf("token and new password is required: %w", infrastructure.ErrBadRequest))
		return
	}

	if validationErrors := validatePassword(req.Password); len(validationErrors) > 0 {
		infrastructure.RespondValidationErrors(w, validationErrors)
		return
	}

	if err := h.flows.ConfirmReset(r.Context(), req.Token, req.Password); err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	infrastructure.RespondMessage(w, http.StatusOK, "Password updated")
}

func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req RequestMailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		infrastructure.RespondError(w, fmt.Errorf("email is required: %w", infrastructure.ErrBadRequest))
		return
	}

	if err := h.flows.RequestReset(r.Context(), req.Email); err != nil {
		infrastructure.RespondError(w, err)
		return
	}

	infrastructure.RespondMessage(w, http.StatusOK, "Password reset mail has been sent.")
}

// refreshTokenHeader reads the refresh token from X-Refresh-Token. The
// header value may carry a Bearer prefix; a missing header is a bad request.
func refreshTokenHeader(r *http.Request) (string, error) {
	value := r.Header.Get("X-Refresh-Token")
	if value == "" {
		return "", fmt.Errorf("refresh token is required: %w", infrastructure.ErrBadRequest)
	}
	if token, ok := strings.CutPrefix(value, "Bearer "); ok {
		return token, nil
	}
	return value, nil
}
