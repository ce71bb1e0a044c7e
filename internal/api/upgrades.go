package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/agora-network/agora/internal/infra/breaker"
)

// ─── Upgrades ───────────────────────────────────────────────────────────────

func (s *Server) handleListUpgrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"upgrades": s.deps.Scheduler.List(),
		"pending":  s.deps.Scheduler.PendingCount(),
	})
}

func (s *Server) handleGetUpgrade(w http.ResponseWriter, r *http.Request) {
	req, err := s.deps.Scheduler.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleWithdrawUpgrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Scheduler.Withdraw(id); err != nil {
		writeDomainError(w, err)
		return
	}
	req, _ := s.deps.Scheduler.Get(id)
	writeJSON(w, http.StatusOK, req)
}

type emergencyUpgradeRequest struct {
	Target           string   `json:"target"`
	ImplementationID string   `json:"implementation_id"`
	Signers          []string `json:"signers"`
}

// handleEmergencyUpgrade is the council fast path: a forced request that
// skips the job-drain wait. Requires M-of-N council signatures.
func (s *Server) handleEmergencyUpgrade(w http.ResponseWriter, r *http.Request) {
	var req emergencyUpgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := breaker.VerifySigners(s.deps.Council, req.Signers); err != nil {
		writeDomainError(w, err)
		return
	}

	upg, err := s.deps.Scheduler.SubmitForced(req.Target, req.ImplementationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, upg)
}

// ─── Emergency Circuit Breaker ──────────────────────────────────────────────

type signersRequest struct {
	Signers []string `json:"signers"`
}

func (s *Server) handlePauseState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Breaker.State())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req signersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Breaker.Pause(req.Signers); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Breaker.State())
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	var req signersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Breaker.Unpause(req.Signers); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Breaker.State())
}

// ─── Job Signals ────────────────────────────────────────────────────────────

type startJobRequest struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	j, err := s.deps.Jobs.Start(req.ID, req.Kind)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Jobs.Complete(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": s.deps.Jobs.ActiveJobCount(),
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   s.deps.Jobs.Active(),
		"active": s.deps.Jobs.ActiveJobCount(),
	})
}

// ─── Parameters and Audit Log ───────────────────────────────────────────────

func (s *Server) handleListParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"params": s.deps.Params.List(),
	})
}

func (s *Server) handleGetParam(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Params.Get(chi.URLParam(r, "key"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": s.deps.Events.Recent(limit),
	})
}
