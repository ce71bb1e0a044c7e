package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agora-network/agora/internal/domain"
)

// ─── Proposals ──────────────────────────────────────────────────────────────

type createProposalRequest struct {
	Proposer    string          `json:"proposer"`
	Kind        string          `json:"kind"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Actions     []domain.Action `json:"actions"`
	Open        bool            `json:"open"` // open voting immediately
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind, ok := domain.ParseProposalKind(req.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown proposal kind: "+req.Kind)
		return
	}
	if req.Proposer == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "proposer and title are required")
		return
	}

	p, err := s.deps.Engine.Propose(req.Proposer, kind, req.Title, req.Description, req.Actions)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.Open {
		if err := s.deps.Engine.Open(p.ID); err != nil {
			writeDomainError(w, err)
			return
		}
		p, _ = s.deps.Engine.Get(p.ID)
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	var filter *domain.ProposalState
	if q := r.URL.Query().Get("state"); q != "" {
		st, ok := domain.ParseProposalState(q)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown state: "+q)
			return
		}
		filter = &st
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"proposals": s.deps.Engine.List(filter),
	})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Engine.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleOpenProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Engine.Open(id); err != nil {
		writeDomainError(w, err)
		return
	}
	p, _ := s.deps.Engine.Get(id)
	writeJSON(w, http.StatusOK, p)
}

type voteRequest struct {
	Voter string `json:"voter"`
	Side  string `json:"side"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	side, ok := domain.ParseVoteSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown vote side: "+req.Side)
		return
	}

	rec, err := s.deps.Engine.Vote(chi.URLParam(r, "id"), req.Voter, side)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Engine.Execute(id); err != nil {
		writeDomainError(w, err)
		return
	}
	p, _ := s.deps.Engine.Get(id)
	writeJSON(w, http.StatusOK, p)
}

type cancelRequest struct {
	Caller string `json:"caller"`
	Admin  bool   `json:"admin"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.deps.Engine.Cancel(id, req.Caller, req.Admin); err != nil {
		writeDomainError(w, err)
		return
	}
	p, _ := s.deps.Engine.Get(id)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	tally, err := s.deps.Engine.Tally(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (s *Server) handleVoteRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Engine.VoteRecords(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"votes": records})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.Stats())
}

// ─── Delegation ─────────────────────────────────────────────────────────────

type delegateRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	var req delegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.deps.Tracker.Delegate(req.From, req.To); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"from": req.From, "to": req.To})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if err := s.deps.Tracker.Revoke(account); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"account": account, "status": "revoked"})
}

func (s *Server) handleListDelegations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"delegations": s.deps.Tracker.Delegations(),
	})
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	out := map[string]interface{}{
		"account":    account,
		"effective":  s.deps.Tracker.EffectivePower(account),
		"delegators": s.deps.Tracker.DelegatorCount(account),
	}
	if to, ok := s.deps.Tracker.DelegateOf(account); ok {
		out["delegate"] = to
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── Accounts ───────────────────────────────────────────────────────────────

type setAccountRequest struct {
	Balance    uint64 `json:"balance"`
	Staked     uint64 `json:"staked"`
	LockDays   uint64 `json:"lock_days"`
	Reputation uint64 `json:"reputation"`
	Resources  uint64 `json:"resources"`
}

func (s *Server) handleSetAccount(w http.ResponseWriter, r *http.Request) {
	var req setAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a := domain.Account{
		Address:    chi.URLParam(r, "address"),
		Balance:    req.Balance,
		Staked:     req.Staked,
		LockDays:   req.LockDays,
		Reputation: req.Reputation,
		Resources:  req.Resources,
	}
	if err := s.deps.Ledger.SetAccount(a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Ledger.Account(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}
