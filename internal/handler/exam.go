package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pavelanni/learnlab/internal/grading"
	"github.com/pavelanni/learnlab/internal/model"
	"github.com/pavelanni/learnlab/internal/store"
	"github.com/pavelanni/learnlab/internal/validate"
)

type examResponse struct {
	ID        int64                `json:"id"`
	Name      string               `json:"name"`
	Questions []model.QuestionView `json:"questions"`
}

type submitRequest struct {
	Answers map[string]any `json:"answers"`
}

type submitResponse struct {
	*model.Submission
	SubmissionID int64 `json:"submission_id,omitempty"`
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		internalError(w, r, "failed to list exams", err)
		return
	}
	writeJSON(w, http.StatusOK, exams)
}

// handleGetExam returns the exam with its questions. Answers and knowledge
// references are never sent.
func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	exam, err := h.store.GetExam(id)
	if err != nil {
		internalError(w, r, "failed to get exam", err)
		return
	}
	if exam == nil {
		writeError(w, r, http.StatusNotFound, "ErrExamNotFound")
		return
	}
	questions, err := h.store.QuestionSet(r.Context(), id)
	if err != nil {
		internalError(w, r, "failed to load questions", err)
		return
	}

	resp := examResponse{ID: exam.ID, Name: exam.Name, Questions: make([]model.QuestionView, 0, len(questions))}
	for _, q := range questions {
		resp.Questions = append(resp.Questions, q.View())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSubmit grades an answer set. A missing "answers" object grades every
// question as unanswered. Anonymous submissions are graded but not stored.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	var req submitRequest
	if fields := validate.DecodeJSON(r.Body, &req); fields != nil {
		writeValidation(w, fields)
		return
	}

	sub, err := h.engine.Grade(r.Context(), id, grading.ParseAnswers(req.Answers))
	if err != nil {
		if errors.Is(err, store.ErrExamNotFound) {
			writeError(w, r, http.StatusNotFound, "ErrExamNotFound")
			return
		}
		internalError(w, r, "failed to grade submission", err)
		return
	}

	resp := submitResponse{Submission: sub}
	if user := model.UserFromContext(r.Context()); user != nil {
		subID, err := h.store.AppendSubmission(user.ID, id, sub)
		if err != nil {
			internalError(w, r, "failed to store submission", err)
			return
		}
		resp.SubmissionID = subID
		slog.Info("stored submission", "submission_id", subID, "user_id", user.ID, "exam_id", id, "score", sub.Score, "total", sub.Total)
	}
	writeJSON(w, http.StatusOK, resp)
}
