package daemon

import (
	"errors"
	"testing"

	"github.com/agora-network/agora/internal/domain"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Council.Members = []string{"council-1", "council-2", "council-3"}
	cfg.Council.Required = 2

	d, err := NewWithConfig(cfg, "test")
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestNewWithConfigWiresEverything(t *testing.T) {
	t.Setenv("AGORA_HOME", t.TempDir())
	d := newTestDaemon(t)

	if d.DB == nil || d.Engine == nil || d.Scheduler == nil || d.Breaker == nil {
		t.Fatal("core services not wired")
	}
	if d.Server == nil || d.Health == nil || d.Params == nil {
		t.Fatal("support services not wired")
	}
	if d.Params.Count() == 0 {
		t.Error("parameter registry should be seeded with defaults")
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	t.Setenv("AGORA_HOME", t.TempDir())

	d1 := newTestDaemon(t)
	if err := d1.Ledger.SetAccount(domain.Account{Address: "alice", Balance: 1_000_000}); err != nil {
		t.Fatalf("SetAccount() error: %v", err)
	}
	p, err := d1.Engine.Propose("alice", domain.KindStandard, "upgrade widget", "", nil)
	if err != nil {
		t.Fatalf("Propose() error: %v", err)
	}
	if err := d1.Tracker.Delegate("bob", "alice"); err != nil {
		t.Fatalf("Delegate() error: %v", err)
	}
	d1.Close()

	d2 := newTestDaemon(t)
	restored, err := d2.Engine.Get(p.ID)
	if err != nil {
		t.Fatalf("proposal not restored: %v", err)
	}
	if restored.Proposer != "alice" {
		t.Errorf("Proposer = %q, want %q", restored.Proposer, "alice")
	}
	if got, ok := d2.Tracker.DelegateOf("bob"); !ok || got != "alice" {
		t.Errorf("DelegateOf(bob) = %q, %t, want alice, true", got, ok)
	}
	if d2.Ledger.TokenBalance("alice") != 1_000_000 {
		t.Errorf("TokenBalance(alice) = %d, want 1000000", d2.Ledger.TokenBalance("alice"))
	}
}

func TestCouncilMajorityDefault(t *testing.T) {
	c := newCouncil(CouncilConfig{Members: []string{"a", "b", "c", "d", "e"}})

	if c.Required() != 3 {
		t.Errorf("Required() = %d, want 3 (majority of 5)", c.Required())
	}
	if !c.IsMember("c") {
		t.Error("c should be a member")
	}
	if c.IsMember("mallory") {
		t.Error("mallory should not be a member")
	}
	if c.Size() != 5 {
		t.Errorf("Size() = %d, want 5", c.Size())
	}
}

func TestActionRouterRejectsUnknownMethod(t *testing.T) {
	t.Setenv("AGORA_HOME", t.TempDir())
	d := newTestDaemon(t)

	router := &actionRouter{scheduler: d.Scheduler, params: d.Params}
	err := router.ApplyAction(domain.Proposal{ID: "prop-1"}, domain.Action{Method: "self_destruct"})
	if err == nil {
		t.Fatal("unknown action method should be rejected")
	}
}

func TestActionRouterRoutesUpgrade(t *testing.T) {
	t.Setenv("AGORA_HOME", t.TempDir())
	d := newTestDaemon(t)

	router := &actionRouter{scheduler: d.Scheduler, params: d.Params}
	err := router.ApplyAction(
		domain.Proposal{ID: "prop-1", Kind: domain.KindUpgrade},
		domain.Action{Method: domain.ActionUpgrade, Target: "widget", Payload: "v2"},
	)
	if err != nil {
		t.Fatalf("ApplyAction() error: %v", err)
	}
	if d.Scheduler.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", d.Scheduler.PendingCount())
	}
}

func TestActionRouterRoutesParamChange(t *testing.T) {
	t.Setenv("AGORA_HOME", t.TempDir())
	d := newTestDaemon(t)

	router := &actionRouter{scheduler: d.Scheduler, params: d.Params}
	err := router.ApplyAction(
		domain.Proposal{ID: "prop-1", Kind: domain.KindStandard},
		domain.Action{Method: domain.ActionSetParam, Target: "max_active_proposals", Payload: "75"},
	)
	if err != nil {
		t.Fatalf("ApplyAction() error: %v", err)
	}
	got, err := d.Params.Uint("max_active_proposals")
	if err != nil || got != 75 {
		t.Errorf("max_active_proposals = %d (%v), want 75", got, err)
	}
}

func TestParamChangeRetunesEngine(t *testing.T) {
	t.Setenv("AGORA_HOME", t.TempDir())
	d := newTestDaemon(t)

	// isqrt(1,000,000) = 1000 power: enough under the default threshold.
	if err := d.Ledger.SetAccount(domain.Account{Address: "alice", Balance: 1_000_000}); err != nil {
		t.Fatalf("SetAccount() error: %v", err)
	}
	if _, err := d.Engine.Propose("alice", domain.KindStandard, "first", "", nil); err != nil {
		t.Fatalf("Propose() error: %v", err)
	}

	err := d.router.ApplyAction(
		domain.Proposal{ID: "prop-1", Kind: domain.KindStandard},
		domain.Action{Method: domain.ActionSetParam, Target: "min_propose_power", Payload: "5000"},
	)
	if err != nil {
		t.Fatalf("ApplyAction() error: %v", err)
	}

	// The voted threshold applies immediately, not on the next restart.
	if _, err := d.Engine.Propose("alice", domain.KindStandard, "second", "", nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Propose() error = %v, want ErrUnauthorized", err)
	}
}

func TestParamChangeRetunesBreaker(t *testing.T) {
	t.Setenv("AGORA_HOME", t.TempDir())
	d := newTestDaemon(t)

	// breaker_failure_threshold sits behind Critical protection.
	err := d.router.ApplyAction(
		domain.Proposal{ID: "prop-1", Kind: domain.KindCritical},
		domain.Action{Method: domain.ActionSetParam, Target: "breaker_failure_threshold", Payload: "1"},
	)
	if err != nil {
		t.Fatalf("ApplyAction() error: %v", err)
	}

	if !d.Breaker.RecordFailure() {
		t.Fatal("a single failure should trip the retuned breaker")
	}
	if !d.Breaker.State().Paused {
		t.Fatal("breaker should be paused")
	}
}

func TestParamChangeRetunesPowerFormula(t *testing.T) {
	t.Setenv("AGORA_HOME", t.TempDir())
	d := newTestDaemon(t)

	if err := d.Ledger.SetAccount(domain.Account{Address: "staker", Staked: 1000}); err != nil {
		t.Fatalf("SetAccount() error: %v", err)
	}
	if got := d.Tracker.EffectivePower("staker"); got != 500 {
		t.Fatalf("EffectivePower() = %d, want 500 at the default 50%% stake weight", got)
	}

	err := d.router.ApplyAction(
		domain.Proposal{ID: "prop-1", Kind: domain.KindStandard},
		domain.Action{Method: domain.ActionSetParam, Target: "stake_weight_percent", Payload: "100"},
	)
	if err != nil {
		t.Fatalf("ApplyAction() error: %v", err)
	}

	if got := d.Tracker.EffectivePower("staker"); got != 1000 {
		t.Fatalf("EffectivePower() = %d, want 1000 at full stake weight", got)
	}
}
