package handler

import (
	"encoding/json"
	"net/http"

	"rangeclub/internal/api/middleware"
	"rangeclub/internal/app/service"
	"rangeclub/internal/common"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)

	r.Group(func(protected chi.Router) {
		protected.Use(authn)
		protected.Post("/register-admin", h.registerAdmin)
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, common.E(common.ErrBadRequest, "invalid_request", "Invalid request payload: "+err.Error()))
		return
	}

	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, common.E(common.ErrBadRequest, "invalid_request", "Invalid request payload: "+err.Error()))
		return
	}

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) registerAdmin(w http.ResponseWriter, r *http.Request) {
	var req service.AdminRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, common.E(common.ErrBadRequest, "invalid_request", "Invalid request payload: "+err.Error()))
		return
	}

	resp, err := h.authService.RegisterAdmin(r.Context(), middleware.CallerFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

// refresh and logout act on the raw bearer token; the session registry, not
// the middleware, decides its fate. Logout in particular must accept tokens
// that no longer resolve so it stays idempotent.
func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	token := jwtauth.TokenFromHeader(r)
	if token == "" {
		common.RespondWithError(w, common.E(common.ErrUnauthorized, "invalid_token", "Invalid token"))
		return
	}

	resp, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	token := jwtauth.TokenFromHeader(r)
	if token == "" {
		common.RespondWithError(w, common.E(common.ErrUnauthorized, "invalid_token", "Invalid token"))
		return
	}

	resp, err := h.authService.Logout(r.Context(), token)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
