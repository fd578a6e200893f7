package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"aquavision/internal/services"
)

type AuthHandler struct {
	authSvc *services.AuthService
	logr    *zap.Logger
}

func NewAuthHandler(svc *services.AuthService, logr *zap.Logger) *AuthHandler {
	return &AuthHandler{authSvc: svc, logr: logr}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ldapReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) LoginLocal(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	resp, err := h.authSvc.LoginLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logr.Warn("local login failed", zap.Error(err), zap.String("email", req.Email))
		h.loginFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/v1/auth/ldap
func (h *AuthHandler) LoginLDAP(w http.ResponseWriter, r *http.Request) {
	var req ldapReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	resp, err := h.authSvc.LoginLDAP(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logr.Warn("ldap login failed", zap.Error(err), zap.String("username", req.Username))
		h.loginFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, err error) {
	if statusFor(err) == http.StatusUnauthorized {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeError(w, http.StatusInternalServerError, "login failed")
}
