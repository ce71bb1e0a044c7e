// Package metrics provides Prometheus metrics for the governance and
// upgrade coordination engine — counters, gauges, histograms for proposals,
// votes, delegations, upgrades, and the circuit breaker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Governance ─────────────────────────────────────────────────────────────

// ProposalsCreated tracks created proposals by kind.
var ProposalsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agora",
	Name:      "proposals_created_total",
	Help:      "Total proposals created.",
}, []string{"kind"})

// ProposalsFinalized tracks finalized proposals by outcome state.
var ProposalsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agora",
	Name:      "proposals_finalized_total",
	Help:      "Total proposals finalized, by outcome.",
}, []string{"state"})

// ProposalsActive tracks proposals currently open for voting.
var ProposalsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "agora",
	Name:      "proposals_active",
	Help:      "Proposals currently open for voting.",
})

// VotesCast tracks cast votes by side.
var VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agora",
	Name:      "votes_cast_total",
	Help:      "Total votes cast.",
}, []string{"side"})

// DelegationsActive tracks the number of active delegations.
var DelegationsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "agora",
	Name:      "delegations_active",
	Help:      "Active voting-power delegations.",
})

// ─── Upgrades ───────────────────────────────────────────────────────────────

// UpgradesExecuted tracks successfully applied upgrades.
var UpgradesExecuted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "agora",
	Name:      "upgrades_executed_total",
	Help:      "Total upgrades applied successfully.",
})

// UpgradesRolledBack tracks upgrades rolled back after a failed sanity check.
var UpgradesRolledBack = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "agora",
	Name:      "upgrades_rolled_back_total",
	Help:      "Total upgrades rolled back after failed sanity checks.",
})

// UpgradesForced tracks upgrades forced at their max-delay liveness bound.
var UpgradesForced = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "agora",
	Name:      "upgrades_forced_total",
	Help:      "Total upgrades forced after exceeding max delay.",
})

// UpgradesPending tracks upgrade requests waiting for jobs to drain.
var UpgradesPending = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "agora",
	Name:      "upgrades_pending",
	Help:      "Upgrade requests not yet applied or withdrawn.",
})

// UpgradeWaitTime tracks how long upgrades wait between request and apply.
var UpgradeWaitTime = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "agora",
	Name:      "upgrade_wait_seconds",
	Help:      "Seconds between upgrade request and successful apply.",
	Buckets:   []float64{1, 10, 60, 300, 1800, 3600, 21600, 86400},
})

// ─── Circuit Breaker ────────────────────────────────────────────────────────

// SystemPaused is 1 while the emergency circuit breaker is open.
var SystemPaused = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "agora",
	Name:      "system_paused",
	Help:      "1 while the emergency pause is active, 0 otherwise.",
})

// BreakerTrips counts automatic circuit-breaker trips.
var BreakerTrips = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "agora",
	Name:      "breaker_trips_total",
	Help:      "Total automatic circuit-breaker trips.",
})

// ─── Jobs ───────────────────────────────────────────────────────────────────

// JobsActive tracks currently running computational jobs.
var JobsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "agora",
	Name:      "jobs_active",
	Help:      "Computational jobs currently running.",
})
