package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vmunix/prunarr/internal/queue"
)

func (s *Server) listQueue(w http.ResponseWriter, r *http.Request) {
	filter := queue.Filter{Limit: queryInt(r, "limit", 100)}
	if statusStr := queryString(r, "status"); statusStr != nil {
		st := queue.Status(*statusStr)
		filter.Status = &st
	}
	if dueStr := queryString(r, "due"); dueStr != nil && *dueStr == "true" {
		now := time.Now()
		filter.DueBy = &now
	}
	if ruleStr := queryString(r, "rule_id"); ruleStr != nil {
		id := int64(queryInt(r, "rule_id", 0))
		filter.RuleID = &id
	}

	items, err := s.queue.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	resp := listQueueResponse{Items: make([]queueItemResponse, 0, len(items)), Total: len(items)}
	for _, it := range items {
		resp.Items = append(resp.Items, queueItemToResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	it, err := s.queue.Get(id)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueItemToResponse(it))
}

func (s *Server) saveQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	it, err := s.sweeper.Save(id)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueItemToResponse(it))
}

func (s *Server) deleteNowQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	it, err := s.sweeper.DeleteNow(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Queue item not found")
			return
		}
		// Protected or collaborator failure; 409 keeps it actionable.
		writeError(w, http.StatusConflict, "DELETE_REFUSED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, queueItemToResponse(it))
}

func (s *Server) extendQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.Days < 1 {
		writeError(w, http.StatusBadRequest, "INVALID_DAYS", "days must be at least 1")
		return
	}

	it, err := s.sweeper.Extend(id, req.Days)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueItemToResponse(it))
}

func (s *Server) triggerSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SWEEP_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Queue item not found")
	case errors.Is(err, queue.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
	}
}

func queueItemToResponse(it *queue.Item) queueItemResponse {
	return queueItemResponse{
		ID:               it.ID,
		MediaID:          it.MediaID,
		MetadataID:       it.MetadataID,
		Kind:             string(it.Kind),
		Title:            it.Title,
		RuleID:           it.RuleID,
		Episode:          it.Episode,
		Status:           string(it.Status),
		ActionAt:         it.ActionAt,
		IsDryRun:         it.IsDryRun,
		ErrorDetail:      it.ErrorDetail,
		CreatedAt:        it.CreatedAt,
		LastTransitionAt: it.LastTransitionAt,
	}
}
