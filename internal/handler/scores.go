package handler

import (
	"log/slog"
	"net/http"

	"github.com/pavelanni/learnlab/internal/handler/views"
	"github.com/pavelanni/learnlab/internal/model"
)

func (h *Handler) handleMyScores(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	scores, err := h.store.ListSubmissions(user.ID)
	if err != nil {
		internalError(w, r, "failed to list submissions", err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (h *Handler) submissionView(w http.ResponseWriter, r *http.Request) (*model.SubmissionView, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return nil, false
	}
	user := model.UserFromContext(r.Context())
	view, err := h.store.GetSubmissionView(r.Context(), user.ID, id)
	if err != nil {
		internalError(w, r, "failed to get submission", err)
		return nil, false
	}
	if view == nil {
		writeError(w, r, http.StatusNotFound, "ErrSubmissionNotFound")
		return nil, false
	}
	return view, true
}

// handleMyScore returns one of the caller's submissions with the missed
// questions resolved to module and topic titles.
func (h *Handler) handleMyScore(w http.ResponseWriter, r *http.Request) {
	view, ok := h.submissionView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleMyScoreReport(w http.ResponseWriter, r *http.Request) {
	view, ok := h.submissionView(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.SubmissionReport(model.UserFromContext(r.Context()), view).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
