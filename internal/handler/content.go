package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pavelanni/learnlab/internal/store"
)

func (h *Handler) handleListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.store.ListModules()
	if err != nil {
		internalError(w, r, "failed to list modules", err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	module, err := h.store.GetModule(id)
	if err != nil {
		internalError(w, r, "failed to get module", err)
		return
	}
	if module == nil {
		writeError(w, r, http.StatusNotFound, "ErrModuleNotFound")
		return
	}
	topics, err := h.store.ListTopics(id)
	if err != nil {
		internalError(w, r, "failed to list topics", err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (h *Handler) handleTopicContent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	topic, err := h.store.GetTopic(id)
	if err != nil {
		internalError(w, r, "failed to get topic", err)
		return
	}
	if topic == nil {
		writeError(w, r, http.StatusNotFound, "ErrTopicNotFound")
		return
	}
	content, err := h.store.GetContent(id)
	if err != nil {
		internalError(w, r, "failed to get content", err)
		return
	}
	if content == nil {
		writeError(w, r, http.StatusNotFound, "ErrContentNotFound")
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// handleGenerateTopic rebuilds a topic's lesson and stores it.
func (h *Handler) handleGenerateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	topic, err := h.store.GetTopic(id)
	if err != nil {
		internalError(w, r, "failed to get topic", err)
		return
	}
	if topic == nil {
		writeError(w, r, http.StatusNotFound, "ErrTopicNotFound")
		return
	}
	module, err := h.store.GetModule(topic.ModuleID)
	if err != nil {
		internalError(w, r, "failed to get module", err)
		return
	}
	if module == nil {
		writeError(w, r, http.StatusNotFound, "ErrModuleNotFound")
		return
	}

	content := h.llm.Lesson(r.Context(), module.Title, topic.Ord, topic.Title)
	if err := h.store.SetContent(topic.ID, content); err != nil {
		if errors.Is(err, store.ErrTopicNotFound) {
			writeError(w, r, http.StatusNotFound, "ErrTopicNotFound")
			return
		}
		internalError(w, r, "failed to store content", err)
		return
	}
	slog.Info("regenerated topic content", "topic_id", topic.ID, "module", module.Title, "llm", h.llm != nil)
	writeJSON(w, http.StatusOK, content)
}
