package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/socialgraph/internal/models"
	"github.com/HammerMeetNail/socialgraph/internal/services"
)

type AuthHandler struct {
	userService services.UserServiceInterface
	authService services.AuthServiceInterface
	validator   *Validator
}

func NewAuthHandler(userService services.UserServiceInterface, authService services.AuthServiceInterface, validator *Validator) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		validator:   validator,
	}
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,min=8,max=128,notnumeric"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	if fields := h.validator.Struct(req); fields != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid signup data", Fields: fields})
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		writeInternalError(w, r, "hash password", err)
		return
	}

	user, err := h.userService.Create(r.Context(), models.CreateUserParams{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
	})
	if errors.Is(err, services.ErrEmailAlreadyExists) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Invalid signup data",
			Fields: map[string]string{"email": "A user with this email already exists."},
		})
		return
	}
	if errors.Is(err, services.ErrUsernameAlreadyExists) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Invalid signup data",
			Fields: map[string]string{"username": "A user with this username already exists."},
		})
		return
	}
	if err != nil {
		writeInternalError(w, r, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Public())
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeInternalError(w, r, "authenticate", err)
		return
	}

	tokens, err := h.authService.IssueTokens(r.Context(), user)
	if err != nil {
		writeInternalError(w, r, "issue tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Refresh) == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req.Refresh)
	if errors.Is(err, services.ErrInvalidToken) {
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	if err != nil {
		writeInternalError(w, r, "refresh tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}
