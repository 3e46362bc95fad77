package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"photo-rater/internal/auth"
	"photo-rater/internal/logging"
	"photo-rater/internal/metrics"
	"photo-rater/internal/middleware"
)

// LoginRequest is the body of POST /photo_ratings_login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for later requests.
type LoginResponse struct {
	Token string `json:"token"`
}

type contextKey int

const userKey contextKey = iota

// UserFromContext returns the rater a request was authenticated as.
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// Login checks the credentials and issues a token
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.credentials.Verify(req.Username, req.Password); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logging.Error("Credential check failed: %v", err)
		}
		logging.Warn("Failed login attempt for %q", req.Username)
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.Issue(req.Username)
	if err != nil {
		logging.Error("Failed to issue token: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	logging.Info("Rater %s logged in", req.Username)
	writeJSONStatus(w, http.StatusOK, LoginResponse{Token: token})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireToken rejects requests without a valid bearer token and stores
// the token's user in the request context.
func (h *Handlers) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
			writeMessage(w, http.StatusForbidden, "Token is missing!")
			return
		}

		claims, err := h.tokens.Validate(token)
		if err != nil {
			logging.Debug("Rejected token: %v", err)
			metrics.TokenRejectionsTotal.WithLabelValues("invalid").Inc()
			writeMessage(w, http.StatusForbidden, "Token is invalid!")
			return
		}

		middleware.SetRater(r.Context(), claims.User)
		ctx := context.WithValue(r.Context(), userKey, claims.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
