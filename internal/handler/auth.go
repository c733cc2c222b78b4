package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/learnlab/internal/i18n"
	"github.com/pavelanni/learnlab/internal/model"
	"github.com/pavelanni/learnlab/internal/store"
	"github.com/pavelanni/learnlab/internal/validate"
)

type tokenCtxKey struct{}

type loginRequest struct {
	StudentID string `json:"student_id" validate:"required_without=Username"`
	Username  string `json:"username"`
	Password  string `json:"password" validate:"required"`
}

type registerRequest struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	Name      string `json:"name" validate:"required,max=128"`
	Password  string `json:"password" validate:"omitempty,min=6"`
	ClassName string `json:"class_name" validate:"max=64"`
	Phone     string `json:"phone" validate:"max=32"`
	Email     string `json:"email" validate:"omitempty,email"`
}

type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// optionalAuth attaches the user behind a valid bearer token to the context.
// Requests without a usable token pass through anonymously.
func (h *Handler) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		authSess, err := h.store.GetAuthToken(token)
		if err != nil {
			slog.Error("failed to get auth token", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if authSess == nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil || !user.Active() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		ctx = context.WithValue(ctx, tokenCtxKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects requests that optionalAuth could not authenticate.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if model.UserFromContext(r.Context()) == nil {
			writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, http.StatusForbidden, "ErrForbidden")
		})
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if fields := validate.DecodeJSON(r.Body, &req); fields != nil {
		writeValidation(w, fields)
		return
	}

	var (
		user *model.User
		err  error
	)
	if req.StudentID != "" {
		user, err = h.store.GetUserByStudentID(req.StudentID)
	} else {
		user, err = h.store.GetUserByUsername(req.Username)
	}
	if err != nil {
		internalError(w, r, "failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}
	if !user.Active() {
		writeError(w, r, http.StatusForbidden, "ErrAccountDisabled")
		return
	}

	h.issueToken(w, r, http.StatusOK, user)
}

// handleRegister creates a student account. Without a password the server's
// default student password is used.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if fields := validate.DecodeJSON(r.Body, &req); fields != nil {
		writeValidation(w, fields)
		return
	}

	password := req.Password
	if password == "" {
		password = h.config.DefaultStudentPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		internalError(w, r, "failed to hash password", err)
		return
	}

	user := model.User{
		StudentID:    strings.TrimSpace(req.StudentID),
		DisplayName:  strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		Role:         model.UserRoleStudent,
		ClassName:    req.ClassName,
		Phone:        req.Phone,
		Email:        req.Email,
		Status:       model.UserStatusActive,
	}
	id, err := h.store.CreateUser(user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateStudent) {
			writeError(w, r, http.StatusConflict, "ErrStudentExists")
			return
		}
		internalError(w, r, "failed to create user", err)
		return
	}

	created, err := h.store.GetUserByID(id)
	if err != nil || created == nil {
		internalError(w, r, "failed to reload user", err)
		return
	}
	h.issueToken(w, r, http.StatusCreated, created)
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, err := h.store.CreateAuthToken(user.ID)
	if err != nil {
		internalError(w, r, "failed to create auth token", err)
		return
	}
	writeJSON(w, status, authResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(store.AuthTokenTTL),
		User:      user,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := r.Context().Value(tokenCtxKey{}).(string); ok {
		if err := h.store.DeleteAuthToken(token); err != nil {
			internalError(w, r, "failed to delete auth token", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "LoggedOut")})
}
