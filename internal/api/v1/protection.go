package v1

import (
	"encoding/json"
	"net/http"

	"github.com/vmunix/prunarr/internal/protection"
)

func (s *Server) listProtection(w http.ResponseWriter, r *http.Request) {
	prots, err := s.protStore.Protections()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	resp := make([]protectionResponse, 0, len(prots))
	for _, p := range prots {
		resp = append(resp, protectionToResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getProtection(w http.ResponseWriter, r *http.Request) {
	showID, err := pathID(r, "show_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	p, err := s.protStore.Protection(showID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No protection window for show")
		return
	}
	writeJSON(w, http.StatusOK, protectionToResponse(p))
}

func (s *Server) runProtection(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
	}

	summary, err := s.guard.Run(r.Context(), req.DryRun)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "PROTECTION_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	tasks, err := s.protStore.Tasks(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, taskResponse{
			ID:      t.ID,
			ShowID:  t.ShowID,
			Season:  t.Season,
			Episode: t.Episode,
			Ordinal: t.Ordinal,
			Viewer:  t.ViewerID,
			DueBy:   t.DueBy,
			Urgency: string(t.Urgency),
			Status:  string(t.Status),
			Detail:  t.Detail,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) runRedownload(w http.ResponseWriter, r *http.Request) {
	if err := s.redownload.Run(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "REDOWNLOAD_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func protectionToResponse(p *protection.ShowProtection) protectionResponse {
	viewers := make([]viewerWindow, 0, len(p.Viewers))
	for _, v := range p.Viewers {
		viewers = append(viewers, viewerWindow{
			ViewerID:         v.ViewerID,
			Position:         v.Position,
			Velocity:         v.Velocity,
			ProtectedThrough: v.ProtectedThrough,
		})
	}
	return protectionResponse{
		ShowID:          p.ShowID,
		Floor:           p.Floor,
		EligibleThrough: p.EligibleThrough,
		Viewers:         viewers,
		ComputedAt:      p.ComputedAt,
	}
}
