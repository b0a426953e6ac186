package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/Corewavemedia/Dustout-sub001/internal/authn"
	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

// UserStore is the subset of the user store the authenticator needs.
type UserStore interface {
	EnsureUser(ctx context.Context, email, name string) (*models.User, error)
}

// Authenticator verifies bearer tokens and resolves them to local users.
// Identity lives at the auth provider; the local row is created on first
// sight of a verified email.
type Authenticator struct {
	verifier authn.Verifier
	users    UserStore
}

// NewAuthenticator creates an Authenticator from a token verifier and a
// user store.
func NewAuthenticator(verifier authn.Verifier, users UserStore) *Authenticator {
	return &Authenticator{verifier: verifier, users: users}
}

// RequireUser authenticates the request and stores the resolved user in the
// request context. Missing or invalid tokens get 401.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.resolve(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireAdmin authenticates the request and additionally requires the admin
// role. Non-admin users get 403.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.resolve(w, r)
		if !ok {
			return
		}
		if !user.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

func (a *Authenticator) resolve(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	token := bearerToken(r)
	if token == "" {
		writeAuthError(w, http.StatusUnauthorized, "Missing authorization token")
		return nil, false
	}

	identity, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, "Invalid authorization token")
		return nil, false
	}

	user, err := a.users.EnsureUser(r.Context(), identity.Email, identity.Name)
	if err != nil {
		log.Printf("[auth] ensure user %s: %v", identity.Email, err)
		writeAuthError(w, http.StatusInternalServerError, "Failed to resolve user")
		return nil, false
	}
	return user, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ContextWithUser returns a context carrying the authenticated user.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user placed in the context by
// RequireUser or RequireAdmin.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
