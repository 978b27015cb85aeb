package handler

import (
	"net/http"

	"github.com/msomdec/recipe-box/internal/service"
)

// AuthHandler handles sign-up and sign-in requests.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// HandleSignUp registers a REGULAR account.
// POST /auth/signup
// Request:  {"name":"...","lastname":"...","email":"...","password":"..."}
// Response: 201 {user}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeValid(w, r, &req) {
		return
	}

	user, err := h.auth.SignUp(r.Context(), req.toNewUser())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// HandleSignIn exchanges credentials for an access token.
// POST /auth/signin
// Request:  {"email":"...","password":"..."}
// Response: {"token":"..."}
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeValid(w, r, &req) {
		return
	}

	token, _, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
