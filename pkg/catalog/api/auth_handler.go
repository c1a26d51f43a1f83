package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/auth"
	"github.com/tendant/simple-catalog/pkg/catalog"
)

// RegisterRequest is the request body for signing up
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

// LoginRequest is the request body for signing in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries an issued token and the account it belongs to
type AuthResponse struct {
	Token   string     `json:"token"`
	Message string     `json:"message"`
	User    *auth.User `json:"user"`
}

// AuthHandler handles account registration and login
type AuthHandler struct {
	service *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// Routes returns the routes for authentication
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	return r
}

// Register creates an account and returns a token for it
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid request body", catalog.ErrInvalidField))
		return
	}

	user, token, err := h.service.Register(r.Context(), auth.RegisterRequest{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, AuthResponse{Token: token, Message: "User registered successfully", User: user})
}

// Login verifies credentials and returns a fresh token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid request body", catalog.ErrInvalidField))
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, AuthResponse{Token: token, Message: "Login successful", User: user})
}
