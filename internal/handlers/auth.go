package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Corewavemedia/Dustout-sub001/internal/middleware"
	"github.com/Corewavemedia/Dustout-sub001/internal/models"
	"github.com/Corewavemedia/Dustout-sub001/internal/store"
)

// AuthUserStore defines the behaviour required from the user store backing
// the auth handlers.
type AuthUserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id int64, username, fullname, phone, address string) (*models.User, error)
	CreateAdmin(ctx context.Context, username, email, fullname string) (*models.User, error)
	UpdateUserRole(ctx context.Context, id int64, role string) error
	ListUsers(ctx context.Context, limit int) ([]models.User, error)
}

// AuthHandler serves profile and admin account management endpoints. All of
// its routes sit behind the authentication middleware.
type AuthHandler struct {
	Users AuthUserStore
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users AuthUserStore) *AuthHandler {
	return &AuthHandler{Users: users}
}

// RegisterRoutes registers authenticated profile routes. Admin routes are
// registered separately via RegisterAdminRoutes.
func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/api/auth/signup", h.Signup())
	router.Get("/api/auth/user", h.CurrentUser())
	router.Get("/api/auth/admin/verify", h.VerifyAdmin())
}

// RegisterAdminRoutes registers account management routes that require the
// admin role.
func (h *AuthHandler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/api/auth/admin/create", h.CreateAdmin())
	router.Get("/api/auth/admin/promote", h.ListUserRoles())
	router.Post("/api/auth/admin/promote", h.ChangeUserRole())
}

type signupPayload struct {
	Username string `json:"username"`
	Fullname string `json:"fullname" validate:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Signup completes the local profile for the authenticated identity. The row
// itself already exists: the auth middleware creates it on first sight.
func (h *AuthHandler) Signup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var payload signupPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "fullname is required")
			return
		}

		username := strings.TrimSpace(payload.Username)
		if username == "" {
			username = user.Email
		}

		updated, err := h.Users.UpdateUserProfile(r.Context(), user.ID,
			username, strings.TrimSpace(payload.Fullname),
			strings.TrimSpace(payload.Phone), strings.TrimSpace(payload.Address))
		if err != nil {
			log.Printf("Signup: update profile for user %d: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to save profile")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"user": updated})
	}
}

// CurrentUser returns the resolved local user for the caller's token.
func (h *AuthHandler) CurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	}
}

// VerifyAdmin reports whether the caller holds the admin role.
func (h *AuthHandler) VerifyAdmin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"isAdmin": user.IsAdmin()})
	}
}

type createAdminPayload struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"required,email"`
	Fullname string `json:"fullname" validate:"required"`
}

// CreateAdmin creates another admin account.
func (h *AuthHandler) CreateAdmin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createAdminPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "A valid email and fullname are required")
			return
		}

		username := strings.TrimSpace(payload.Username)
		if username == "" {
			username = payload.Email
		}

		admin, err := h.Users.CreateAdmin(r.Context(), username,
			strings.TrimSpace(payload.Email), strings.TrimSpace(payload.Fullname))
		if err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				writeError(w, http.StatusConflict, "A user with this email already exists")
				return
			}
			log.Printf("CreateAdmin: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create admin")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"user": admin})
	}
}

// ListUserRoles returns all users with their roles for the role management
// screen.
func (h *AuthHandler) ListUserRoles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.Users.ListUsers(r.Context(), 0)
		if err != nil {
			log.Printf("ListUserRoles: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list users")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	}
}

type changeRolePayload struct {
	UserID int64  `json:"userId" validate:"required"`
	Action string `json:"action" validate:"required,oneof=promote demote"`
}

// ChangeUserRole promotes or demotes a user. Admins cannot demote
// themselves, and re-applying a user's current role is rejected.
func (h *AuthHandler) ChangeUserRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var payload changeRolePayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, "userId and action (promote|demote) are required")
			return
		}

		if payload.Action == "demote" && payload.UserID == caller.ID {
			writeError(w, http.StatusBadRequest, "Cannot demote yourself")
			return
		}

		target, err := h.Users.GetUserByID(r.Context(), payload.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "User not found")
				return
			}
			log.Printf("ChangeUserRole: get user %d: %v", payload.UserID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load user")
			return
		}

		newRole := models.RoleAdmin
		if payload.Action == "demote" {
			newRole = models.RoleUser
		}
		if target.Role == newRole {
			writeError(w, http.StatusBadRequest, "User already has this role")
			return
		}

		if err := h.Users.UpdateUserRole(r.Context(), target.ID, newRole); err != nil {
			log.Printf("ChangeUserRole: update user %d: %v", target.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to update role")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"userId": target.ID, "role": newRole})
	}
}
