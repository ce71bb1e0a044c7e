// Package api provides the HTTP administration surface for the governance
// node: proposals, votes, delegations, upgrades, the emergency breaker,
// job signals, and the audit log.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agora-network/agora/internal/domain"
	"github.com/agora-network/agora/internal/infra/breaker"
	"github.com/agora-network/agora/internal/infra/events"
	"github.com/agora-network/agora/internal/infra/govern"
	"github.com/agora-network/agora/internal/infra/jobs"
	"github.com/agora-network/agora/internal/infra/ledger"
	"github.com/agora-network/agora/internal/infra/params"
	"github.com/agora-network/agora/internal/infra/power"
	"github.com/agora-network/agora/internal/infra/upgrade"
)

// Deps are the wired subsystems the API serves.
type Deps struct {
	Engine    *govern.Engine
	Tracker   *power.Tracker
	Scheduler *upgrade.Scheduler
	Breaker   *breaker.Controller
	Params    *params.Registry
	Ledger    *ledger.Ledger
	Jobs      *jobs.Registry
	Events    *events.Log
	Council   domain.Council
}

// Server is the governance HTTP API server.
type Server struct {
	deps           Deps
	version        string
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(deps Deps, version string) *Server {
	return &Server{deps: deps, version: version}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))

	// Health check
	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Governance
		r.Post("/proposals", s.handleCreateProposal)
		r.Get("/proposals", s.handleListProposals)
		r.Get("/proposals/{id}", s.handleGetProposal)
		r.Post("/proposals/{id}/open", s.handleOpenProposal)
		r.Post("/proposals/{id}/vote", s.handleVote)
		r.Post("/proposals/{id}/execute", s.handleExecute)
		r.Post("/proposals/{id}/cancel", s.handleCancel)
		r.Get("/proposals/{id}/tally", s.handleTally)
		r.Get("/proposals/{id}/votes", s.handleVoteRecords)
		r.Get("/stats", s.handleStats)

		// Delegation and power
		r.Post("/delegations", s.handleDelegate)
		r.Delete("/delegations/{account}", s.handleRevoke)
		r.Get("/delegations", s.handleListDelegations)
		r.Get("/power/{account}", s.handlePower)

		// Accounts
		r.Put("/accounts/{address}", s.handleSetAccount)
		r.Get("/accounts/{address}", s.handleGetAccount)

		// Upgrades
		r.Get("/upgrades", s.handleListUpgrades)
		r.Get("/upgrades/{id}", s.handleGetUpgrade)
		r.Post("/upgrades/{id}/withdraw", s.handleWithdrawUpgrade)
		r.Post("/upgrades/emergency", s.handleEmergencyUpgrade)

		// Emergency circuit breaker
		r.Get("/pause", s.handlePauseState)
		r.Post("/pause", s.handlePause)
		r.Post("/unpause", s.handleUnpause)

		// Job signals
		r.Post("/jobs", s.handleStartJob)
		r.Delete("/jobs/{id}", s.handleCompleteJob)
		r.Get("/jobs", s.handleListJobs)

		// Parameters and audit log
		r.Get("/params", s.handleListParams)
		r.Get("/params/{key}", s.handleGetParam)
		r.Get("/events", s.handleEvents)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.deps.Breaker != nil && s.deps.Breaker.State().Paused {
		status = "paused"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a domain error to its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor maps the domain error taxonomy onto HTTP statuses: missing
// things are 404, authorization 403, a paused system 503, and every
// state-machine violation 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrProposalNotFound),
		errors.Is(err, domain.ErrUpgradeNotFound),
		errors.Is(err, domain.ErrParameterNotFound),
		errors.Is(err, domain.ErrTargetNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrZeroPower):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSystemPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrVotingClosed),
		errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrTimelockNotElapsed),
		errors.Is(err, domain.ErrNotQueued),
		errors.Is(err, domain.ErrAlreadyExecuted),
		errors.Is(err, domain.ErrTooManyActiveProposals),
		errors.Is(err, domain.ErrVotesAlreadyCast),
		errors.Is(err, domain.ErrInvalidDelegationChain),
		errors.Is(err, domain.ErrNoActiveDelegation),
		errors.Is(err, domain.ErrRecoveryTimeoutActive),
		errors.Is(err, domain.ErrNotPaused),
		errors.Is(err, domain.ErrUpgradeNotWithdrawable),
		errors.Is(err, domain.ErrParameterImmutable),
		errors.Is(err, domain.ErrParameterProtected),
		errors.Is(err, domain.ErrParameterInvalid),
		errors.Is(err, domain.ErrUpgradeSanityCheckFailed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
