package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vyomlabs/vyom/internal/auth"
	"github.com/vyomlabs/vyom/internal/credential"
	"github.com/vyomlabs/vyom/internal/log"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	creds  *credential.Store
	secret []byte
	ttl    time.Duration
	logger log.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(creds *credential.Store, secret []byte, ttl time.Duration, logger log.Logger) *AuthHandler {
	return &AuthHandler{creds: creds, secret: secret, ttl: ttl, logger: logger}
}

// RegisterRoutes registers auth routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
}

// RegisterRequest is the request body for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	if err := h.creds.Register(r.Context(), req.Name, req.Email, req.Username, req.Password); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("user registered", "username", req.Username)
	writeJSON(w, h.logger, http.StatusCreated, map[string]string{"username": req.Username})
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	user, err := h.creds.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	token, err := auth.IssueToken(user.Username, h.secret, h.ttl)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.logger.Info("user logged in", "username", user.Username)
	writeJSON(w, h.logger, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: int64(h.ttl.Seconds()),
	})
}
