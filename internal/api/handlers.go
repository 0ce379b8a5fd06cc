package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type createScanRequest struct {
	Domain string `json:"domain"`
	Email  string `json:"email"`
}

type runAccepted struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	run, err := s.gateway.CreateFirstTouchRun(r.Context(), req.Domain, req.Email)
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, runAccepted{RunID: run.ID, Status: string(run.Status)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	view, err := s.gateway.GetRunStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCooldown(w http.ResponseWriter, r *http.Request) {
	state, err := s.gateway.CooldownState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(r.Header.Get(AccountHeader))
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, errorBody{Error: "missing " + AccountHeader + " header"})
		return
	}

	run, err := s.gateway.TriggerManual(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, runAccepted{RunID: run.ID, Status: string(run.Status)})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetReportByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
