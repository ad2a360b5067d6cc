package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bot-dashboard/internal/model"
)

type authenticator interface {
	Authenticate(ctx context.Context, sessionToken string) (model.Identity, error)
	IsAdmin(discordID string) bool
}

type contextKey string

const (
	identityContextKey     contextKey = "identity"
	sessionTokenContextKey contextKey = "session_token"
)

type AuthMiddleware struct {
	auth authenticator
}

func NewAuthMiddleware(auth authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth validates the bearer session token and stores the resolved
// identity plus the raw token in the request context. Handlers need the
// raw token to resolve the vault credential it keys.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeAuthError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid authorization header")
			return
		}

		token := strings.TrimSpace(header[7:])
		identity, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			status, code, message := classifyAuthError(err)
			writeAuthError(w, status, code, message)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		ctx = context.WithValue(ctx, sessionTokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates privileged routes. Layered after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusBadRequest, "BAD_REQUEST", "authentication required")
			return
		}

		if !m.auth.IsAdmin(identity.DiscordID) {
			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "Access denied. Admin privileges required.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

func SessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionTokenContextKey).(string)
	return token, ok
}

func classifyAuthError(err error) (int, string, string) {
	switch {
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "Access denied"
	case errors.Is(err, model.ErrIdentityNotFound):
		return http.StatusNotFound, "NOT_FOUND", "User not found"
	case errors.Is(err, model.ErrStorage):
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error"
	default:
		// Expired, tampered and malformed tokens are indistinguishable on
		// purpose.
		return http.StatusBadRequest, "INVALID_TOKEN", "invalid or expired token"
	}
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
