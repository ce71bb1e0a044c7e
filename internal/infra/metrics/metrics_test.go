package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestGovernanceMetrics_Registered(t *testing.T) {
	// promauto registers with the default registry automatically.
	// Just verify we can observe without panicking.
	ProposalsCreated.WithLabelValues("STANDARD").Inc()
	VotesCast.WithLabelValues("FOR").Inc()
	ProposalsActive.Set(2)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "agora_proposals_created_total" {
			found = true
		}
	}
	if !found {
		t.Error("agora_proposals_created_total not found in gathered metrics")
	}
}

func TestUpgradeAndBreakerMetrics(t *testing.T) {
	UpgradesExecuted.Inc()
	UpgradesForced.Inc()
	UpgradesPending.Set(1)
	UpgradeWaitTime.Observe(42)
	SystemPaused.Set(1)
	BreakerTrips.Inc()
	JobsActive.Set(3)
}
