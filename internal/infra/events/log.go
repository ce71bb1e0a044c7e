// Package events collects the audit trail: an in-memory ring for fast API
// reads, write-through to SQLite for durability, and Prometheus mirroring
// so dashboards track governance activity without scraping the log.
package events

import (
	"log"
	"strings"
	"sync"

	"github.com/agora-network/agora/internal/domain"
	"github.com/agora-network/agora/internal/infra/metrics"
)

// Store is the durable append-only log (see the sqlite package).
type Store interface {
	AppendEvent(e domain.Event) (int64, error)
}

// Log is the process-wide event sink. Emit never blocks and never fails:
// a store error costs durability of one record, not the state transition
// that produced it.
type Log struct {
	mu    sync.Mutex
	ring  []domain.Event
	cap   int
	seq   int64
	store Store
}

// NewLog creates an event log keeping the most recent capacity events in
// memory. A nil store disables durability.
func NewLog(capacity int, store Store) *Log {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Log{cap: capacity, store: store}
}

// Emit implements domain.EventSink.
func (l *Log) Emit(e domain.Event) {
	l.mu.Lock()

	if l.store != nil {
		id, err := l.store.AppendEvent(e)
		if err != nil {
			log.Printf("[events] persist %s event: %v", e.Type, err)
		} else {
			e.ID = id
		}
	}
	if e.ID == 0 {
		l.seq++
		e.ID = l.seq
	} else {
		l.seq = e.ID
	}

	l.ring = append(l.ring, e)
	if len(l.ring) > l.cap {
		l.ring = l.ring[len(l.ring)-l.cap:]
	}
	l.mu.Unlock()

	mirror(e)
}

// Recent returns up to limit events, newest first.
func (l *Log) Recent(limit int) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.ring) {
		limit = len(l.ring)
	}
	out := make([]domain.Event, 0, limit)
	for i := len(l.ring) - 1; i >= len(l.ring)-limit; i-- {
		out = append(out, l.ring[i])
	}
	return out
}

// ─── Prometheus Mirroring ───────────────────────────────────────────────────

// mirror bumps the metric matching an event so the audit trail and the
// dashboards can never disagree about what happened.
func mirror(e domain.Event) {
	switch e.Type {
	case domain.EventProposalCreated:
		metrics.ProposalsCreated.WithLabelValues(detailField(e.Detail, "kind")).Inc()
	case domain.EventVoteCast:
		metrics.VotesCast.WithLabelValues(detailField(e.Detail, "side")).Inc()
	case domain.EventProposalExecuted:
		metrics.ProposalsFinalized.WithLabelValues("EXECUTED").Inc()
	case domain.EventProposalDefeated:
		metrics.ProposalsFinalized.WithLabelValues("DEFEATED").Inc()
	case domain.EventProposalCancelled:
		metrics.ProposalsFinalized.WithLabelValues("CANCELLED").Inc()
	case domain.EventProposalExpired:
		metrics.ProposalsFinalized.WithLabelValues("EXPIRED").Inc()
	case domain.EventUpgradeExecuted:
		metrics.UpgradesExecuted.Inc()
	case domain.EventUpgradeRolledBack:
		metrics.UpgradesRolledBack.Inc()
	case domain.EventUpgradeForced:
		metrics.UpgradesForced.Inc()
	case domain.EventEmergencyPauseTriggered:
		metrics.SystemPaused.Set(1)
		metrics.BreakerTrips.Inc()
	case domain.EventEmergencyUnpaused:
		metrics.SystemPaused.Set(0)
	}
}

// detailField extracts a "key=value" field from an event detail string.
func detailField(detail, key string) string {
	for _, f := range strings.Fields(detail) {
		if v, ok := strings.CutPrefix(f, key+"="); ok {
			return v
		}
	}
	return "UNKNOWN"
}
