// Package handler serves the learnlab REST API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/learnlab/internal/grading"
	appI18n "github.com/pavelanni/learnlab/internal/i18n"
	"github.com/pavelanni/learnlab/internal/llm"
	"github.com/pavelanni/learnlab/internal/model"
	"github.com/pavelanni/learnlab/internal/roster"
	"github.com/pavelanni/learnlab/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	engine *grading.Engine
	roster *roster.Service
	llm    *llm.Client
	config model.ServerConfig
}

// New creates a new Handler. l may be nil, in which case lessons are generated locally.
func New(s *store.Store, e *grading.Engine, r *roster.Service, l *llm.Client, cfg model.ServerConfig) (*Handler, error) {
	return &Handler{store: s, engine: e, roster: r, llm: l, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.optionalAuth)

		r.Get("/modules", h.handleListModules)
		r.Get("/modules/{id}/topics", h.handleListTopics)
		r.Get("/topics/{id}/content", h.handleTopicContent)
		r.Post("/generate/topic/{id}", h.handleGenerateTopic)

		r.Get("/exams", h.handleListExams)
		r.Get("/exams/{id}", h.handleGetExam)
		r.Post("/exams/{id}/submit", h.handleSubmit)

		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/register", h.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/auth/me", h.handleMe)
			r.Post("/auth/logout", h.handleLogout)

			r.Get("/my/scores", h.handleMyScores)
			r.Get("/my/scores/{id}", h.handleMyScore)
			r.Get("/my/scores/{id}/report", h.handleMyScoreReport)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(requireRole(model.UserRoleAdmin))
			r.Post("/import_students", h.handleImportStudents)
			r.Get("/students", h.handleListStudents)
			r.Get("/students/export", h.handleExportStudents)
			r.Get("/students/template", h.handleStudentTemplate)
			r.Get("/students/stats", h.handleStudentStats)
			r.Delete("/students/{studentID}", h.handleDeleteStudent)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError writes {"error": msg} where msg is the localized text of msgID.
func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, map[string]string{"error": appI18n.T(r.Context(), msgID)})
}

func writeValidation(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

// internalError logs err and answers 500.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "path", r.URL.Path, "error", err)
	writeError(w, r, http.StatusInternalServerError, "ErrInternal")
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
