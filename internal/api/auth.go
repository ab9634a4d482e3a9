package api

import (
	"encoding/json"
	"net"
	"net/http"

	"airbridge/internal/auth"
	"airbridge/internal/config"
	"airbridge/internal/events"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	credAuth     *auth.CredentialsAuth
	jwtManager   *auth.JWTManager
	loginLimiter *auth.LoginRateLimiter
	config       *config.Config
	eventStore   *events.Store
}

// NewAuthHandler creates new auth handler
func NewAuthHandler(credAuth *auth.CredentialsAuth, jwtManager *auth.JWTManager, loginLimiter *auth.LoginRateLimiter, cfg *config.Config, eventStore *events.Store) *AuthHandler {
	return &AuthHandler{
		credAuth:     credAuth,
		jwtManager:   jwtManager,
		loginLimiter: loginLimiter,
		config:       cfg,
		eventStore:   eventStore,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user and sets the session cookie
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	allowed, retryAfter := h.loginLimiter.Allow(ip)
	if !allowed {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":      "too many login attempts",
			"retryAfter": retryAfter,
		})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, err := h.credAuth.Authenticate(req.Username, req.Password)
	if err != nil {
		h.eventStore.AddAuth(events.EventLoginFailed, req.Username, ip, false, "")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	token, err := h.jwtManager.GenerateToken(user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate token"})
		return
	}

	h.loginLimiter.Reset(ip)
	h.eventStore.AddAuth(events.EventLogin, user.Username, ip, true, "")

	auth.SetAuthCookie(w, r, token, int(h.config.JWTExpiration().Seconds()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	})
}

// Logout clears the session cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user := auth.GetUserFromContext(r.Context()); user != nil {
		h.eventStore.AddAuth(events.EventLogout, user.Username, clientIP(r), true, "")
	}

	auth.ClearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Refresh reissues the session token with a fresh expiration
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	token, err := h.jwtManager.RefreshToken(cookie.Value)
	if err != nil {
		auth.ClearAuthCookie(w)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid session"})
		return
	}

	auth.SetAuthCookie(w, r, token, int(h.config.JWTExpiration().Seconds()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "session extended"})
}

// Me returns the current authenticated user
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// authUser returns the username of the authenticated user, or ""
func authUser(r *http.Request) string {
	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		return ""
	}
	return user.Username
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
