package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vmunix/prunarr/internal/engine"
	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/rules"
)

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	filter := rules.Filter{}
	if kindStr := queryString(r, "kind"); kindStr != nil {
		k := string(media.Kind(*kindStr))
		filter.Kind = &k
	}
	if activeStr := queryString(r, "active"); activeStr != nil {
		active := *activeStr == "true"
		filter.Active = &active
	}

	list, err := s.rules.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	resp := listRulesResponse{Items: make([]ruleResponse, 0, len(list)), Total: len(list)}
	for _, rule := range list {
		rr, err := ruleToResponse(rule)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "ENCODE_ERROR", err.Error())
			return
		}
		resp.Items = append(resp.Items, rr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadRule(w, r)
	if !ok {
		return
	}
	rr, err := ruleToResponse(rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ENCODE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

func (s *Server) addRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := decodeRule(w, r, nil)
	if !ok {
		return
	}

	if err := s.rules.Add(rule); err != nil {
		writeRuleError(w, err)
		return
	}
	rr, err := ruleToResponse(rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ENCODE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rr)
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.loadRule(w, r)
	if !ok {
		return
	}
	rule, ok := decodeRule(w, r, existing)
	if !ok {
		return
	}

	if err := s.rules.Update(rule); err != nil {
		writeRuleError(w, err)
		return
	}
	rr, err := ruleToResponse(rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ENCODE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	if err := s.rules.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) previewRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadRule(w, r)
	if !ok {
		return
	}

	matches, err := s.engine.Evaluate(r.Context(), rule)
	if err != nil {
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
		return
	}

	resp := previewResponse{Matched: len(matches), Items: make([]matchedMedia, 0, len(matches))}
	for _, m := range matches {
		resp.Items = append(resp.Items, matchedMedia{
			ID:      m.ID,
			Kind:    string(m.Kind),
			Title:   m.Title,
			Library: m.Library,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) runRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
	}

	runID, err := s.engine.Run(r.Context(), id, req.DryRun)
	if err != nil {
		switch {
		case errors.Is(err, rules.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Rule not found")
		case errors.Is(err, engine.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "ALREADY_RUNNING", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "RUN_ERROR", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusAccepted, runAccepted{RunID: runID})
}

func (s *Server) runAllRules(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
	}

	runIDs, err := s.engine.RunAll(r.Context(), req.DryRun)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNoActiveRules):
			writeError(w, http.StatusConflict, "NO_ACTIVE_RULES", err.Error())
		case errors.Is(err, engine.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "ALREADY_RUNNING", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "RUN_ERROR", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusAccepted, runAllAccepted{RunIDs: runIDs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	status, ok := s.engine.Status().Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Run not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) clearRun(w http.ResponseWriter, r *http.Request) {
	s.engine.Status().Clear(r.PathValue("run_id"))
	w.WriteHeader(http.StatusNoContent)
}

// loadRule reads the path id and fetches the rule, writing the error
// response itself on failure.
func (s *Server) loadRule(w http.ResponseWriter, r *http.Request) (*rules.Rule, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return nil, false
	}
	rule, err := s.rules.Get(id)
	if err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Rule not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return nil, false
	}
	return rule, true
}

// decodeRule parses a rule request body. When existing is non-nil its id
// and created_at carry over (update), otherwise a fresh rule is built.
func decodeRule(w http.ResponseWriter, r *http.Request, existing *rules.Rule) (*rules.Rule, bool) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return nil, false
	}

	actions, err := rules.DecodeActions(req.Actions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ACTIONS", err.Error())
		return nil, false
	}

	rule := &rules.Rule{
		Name:       req.Name,
		Kind:       media.Kind(req.Kind),
		Libraries:  req.Libraries,
		Expression: req.Expression,
		Actions:    actions,
		BufferDays: req.BufferDays,
		Priority:   req.Priority,
		Active:     true,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if existing != nil {
		rule.ID = existing.ID
		rule.CreatedAt = existing.CreatedAt
	}
	return rule, true
}

func writeRuleError(w http.ResponseWriter, err error) {
	var verr *rules.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "INVALID_RULE", verr.Error())
		return
	}
	if errors.Is(err, rules.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Rule not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
}

func ruleToResponse(rule *rules.Rule) (ruleResponse, error) {
	actions, err := rules.EncodeActions(rule.Actions)
	if err != nil {
		return ruleResponse{}, err
	}
	lastMatchCount := 0
	if rule.LastMatchCount != nil {
		lastMatchCount = *rule.LastMatchCount
	}
	return ruleResponse{
		ID:             rule.ID,
		Name:           rule.Name,
		Kind:           string(rule.Kind),
		Libraries:      rule.Libraries,
		Expression:     rule.Expression,
		Actions:        actions,
		BufferDays:     rule.BufferDays,
		Priority:       rule.Priority,
		Active:         rule.Active,
		CreatedAt:      rule.CreatedAt,
		LastRunAt:      rule.LastRunAt,
		LastMatchCount: lastMatchCount,
	}, nil
}
