package httpapi

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"wishmaster.org/internal/auth"
	"wishmaster.org/internal/obs"
	"wishmaster.org/internal/token"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
}

type principalResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func toPrincipalResponse(p *auth.Principal) principalResponse {
	return principalResponse{
		ID:        p.ID,
		Email:     p.Email,
		Status:    string(p.Status),
		CreatedAt: formatTime(p.CreatedAt),
	}
}

func toPairResponse(pair token.Pair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  formatTime(pair.AccessExpiresAt),
		RefreshExpiresAt: formatTime(pair.RefreshExpiresAt),
	}
}

const minPasswordLen = 8

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.registry == nil {
		respondError(w, r, http.StatusInternalServerError, "registration unavailable")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondFail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		respondFail(w, r, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		respondFail(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "registration failed")
		return
	}

	principal, err := a.registry.CreatePrincipal(r.Context(), email, hash, auth.StatusConfirmed)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			respondFail(w, r, http.StatusConflict, "email already registered")
			return
		}
		respondError(w, r, http.StatusInternalServerError, "registration failed")
		return
	}

	a.audit(r.Context(), "auth.register", map[string]any{
		"principal_id": principal.ID,
		"email":        principal.Email,
	})
	respondSuccess(w, http.StatusCreated, toPrincipalResponse(principal))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.sessions == nil {
		respondError(w, r, http.StatusInternalServerError, "login unavailable")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondFail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondFail(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	pair, principal, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			obs.ObserveLogin("invalid")
			a.audit(r.Context(), "auth.login.failed", map[string]any{"reason": "credentials"})
			respondFail(w, r, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, auth.ErrInactivePrincipal):
			obs.ObserveLogin("inactive")
			a.audit(r.Context(), "auth.login.failed", map[string]any{"reason": "inactive"})
			respondFail(w, r, http.StatusForbidden, "account is not active")
		default:
			respondError(w, r, http.StatusInternalServerError, "login failed")
		}
		return
	}

	obs.ObserveLogin("ok")
	a.audit(r.Context(), "auth.login", map[string]any{"principal_id": principal.ID})
	respondSuccess(w, http.StatusOK, toPairResponse(pair))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.sessions == nil {
		respondError(w, r, http.StatusInternalServerError, "refresh unavailable")
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondFail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		respondFail(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, principal, err := a.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrRevoked):
			obs.ObserveRefresh("reused")
			a.audit(r.Context(), "auth.refresh.reuse", nil)
			respondFail(w, r, http.StatusUnauthorized, "refresh token already used")
		case errors.Is(err, token.ErrExpired):
			obs.ObserveRefresh("expired")
			respondFail(w, r, http.StatusUnauthorized, "refresh token expired")
		case errors.Is(err, token.ErrInvalidSignature),
			errors.Is(err, token.ErrAudienceMismatch),
			errors.Is(err, token.ErrInvalidClaims),
			errors.Is(err, auth.ErrAuthenticationFailed),
			errors.Is(err, auth.ErrInactivePrincipal):
			obs.ObserveRefresh("invalid")
			respondFail(w, r, http.StatusUnauthorized, "invalid refresh token")
		default:
			respondError(w, r, http.StatusInternalServerError, "refresh failed")
		}
		return
	}

	obs.ObserveRefresh("ok")
	a.audit(r.Context(), "auth.refresh", map[string]any{"principal_id": principal.ID})
	respondSuccess(w, http.StatusOK, toPairResponse(pair))
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	respondSuccess(w, http.StatusOK, toPrincipalResponse(principal))
}
