package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/learnlab/internal/i18n"
	"github.com/pavelanni/learnlab/internal/roster"
	"github.com/pavelanni/learnlab/internal/store"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxUploadSize   = 10 << 20
	defaultPerPage  = 20
	maxPerPage      = 100
)

func (h *Handler) handleImportStudents(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrMissingFile")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrMissingFile")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		writeError(w, r, http.StatusBadRequest, "ErrNotExcel")
		return
	}

	result, err := h.roster.Import(file)
	if err != nil {
		slog.Error("failed to import students", "filename", header.Filename, "error", err)
		writeError(w, r, http.StatusBadRequest, "ErrImportFailed")
		return
	}
	slog.Info("imported students via admin",
		"filename", header.Filename,
		"imported", result.Imported,
		"updated", result.Updated,
		"errors", len(result.Errors),
	)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(q.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	result, err := h.store.ListStudents(page, perPage, strings.TrimSpace(q.Get("search")))
	if err != nil {
		internalError(w, r, "failed to list students", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExportStudents(w http.ResponseWriter, r *http.Request) {
	data, err := h.roster.Export()
	if err != nil {
		internalError(w, r, "failed to export students", err)
		return
	}
	writeWorkbook(w, fmt.Sprintf("students_%s.xlsx", time.Now().Format("20060102_150405")), data)
}

func (h *Handler) handleStudentTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := roster.Template()
	if err != nil {
		internalError(w, r, "failed to build template", err)
		return
	}
	writeWorkbook(w, "student_import_template.xlsx", data)
}

func writeWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("write workbook", "error", err)
	}
}

func (h *Handler) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if err := h.store.DeleteStudent(studentID); err != nil {
		if errors.Is(err, store.ErrStudentNotFound) {
			writeError(w, r, http.StatusNotFound, "ErrStudentNotFound")
			return
		}
		internalError(w, r, "failed to delete student", err)
		return
	}
	user, err := h.store.GetUserByStudentID(studentID)
	if err != nil {
		internalError(w, r, "failed to look up deleted student", err)
		return
	}
	if user != nil {
		if err := h.store.DeleteUserTokens(user.ID); err != nil {
			internalError(w, r, "failed to revoke tokens", err)
			return
		}
	}
	slog.Info("deleted student", "student_id", studentID)
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "StudentDeleted")})
}

func (h *Handler) handleStudentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.StudentStats()
	if err != nil {
		internalError(w, r, "failed to get student stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
