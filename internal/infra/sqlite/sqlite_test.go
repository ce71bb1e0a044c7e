package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestProposalRoundTrip(t *testing.T) {
	d := openTestDB(t)

	p := domain.Proposal{
		ID:          "prop-aaaa1111",
		Kind:        domain.KindUpgrade,
		State:       domain.StateQueued,
		Proposer:    "alice",
		Title:       "Upgrade coordinator to v2",
		Description: "rollout",
		Actions: []domain.Action{
			{Target: "coordinator", Method: domain.ActionUpgrade, Payload: "v2"},
		},
		VotesFor:     300_000,
		VotesAgainst: 50_000,
		VotesAbstain: 10_000,
		TotalPower:   1_000_000,
		CreatedAt:    testTime,
		VotingEnd:    testTime.Add(7 * 24 * time.Hour),
		TimelockEnd:  testTime.Add(21 * 24 * time.Hour),
	}
	if err := d.SaveProposal(p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := d.GetProposal("prop-aaaa1111")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected proposal")
	}
	if got.Kind != domain.KindUpgrade || got.State != domain.StateQueued {
		t.Fatalf("kind/state = %s/%s", got.Kind, got.State)
	}
	if got.VotesFor != 300_000 || got.TotalPower != 1_000_000 {
		t.Fatalf("tallies = %+v", got)
	}
	if len(got.Actions) != 1 || got.Actions[0].Method != domain.ActionUpgrade {
		t.Fatalf("actions = %+v", got.Actions)
	}
	if !got.TimelockEnd.Equal(p.TimelockEnd) {
		t.Fatalf("timelock_end = %v, want %v", got.TimelockEnd, p.TimelockEnd)
	}
	if !got.ExecutedAt.IsZero() {
		t.Fatalf("executed_at should be zero, got %v", got.ExecutedAt)
	}

	// Update in place: state transition survives the upsert.
	p.State = domain.StateExecuted
	p.ExecutedAt = testTime.Add(22 * 24 * time.Hour)
	if err := d.SaveProposal(p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = d.GetProposal("prop-aaaa1111")
	if got.State != domain.StateExecuted || got.ExecutedAt.IsZero() {
		t.Fatalf("after update = %+v", got)
	}

	missing, err := d.GetProposal("prop-ghost")
	if err != nil || missing != nil {
		t.Fatalf("missing proposal: %v %v", missing, err)
	}
}

func TestVoteTrailIsImmutable(t *testing.T) {
	d := openTestDB(t)

	v := domain.VoteRecord{
		ProposalID: "prop-aaaa1111",
		Voter:      "alice",
		Side:       domain.SideFor,
		Weight:     2700,
		CastAt:     testTime,
	}
	if err := d.InsertVoteRecord(v); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// The one-account-one-vote law is enforced at the storage layer too.
	v.Side = domain.SideAgainst
	if err := d.InsertVoteRecord(v); err == nil {
		t.Fatal("second vote by the same voter must fail")
	}

	records, err := d.VoteRecords("prop-aaaa1111")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 1 || records[0].Side != domain.SideFor || records[0].Weight != 2700 {
		t.Fatalf("records = %+v", records)
	}
}

func TestSaveVoteWritesRecordAndTalliesTogether(t *testing.T) {
	d := openTestDB(t)

	p := domain.Proposal{
		ID: "prop-aaaa1111", Kind: domain.KindStandard, State: domain.StateActive,
		Proposer: "alice", Title: "raise cap", CreatedAt: testTime,
	}
	if err := d.SaveProposal(p); err != nil {
		t.Fatalf("save proposal: %v", err)
	}

	v := domain.VoteRecord{
		ProposalID: p.ID, Voter: "bob", Side: domain.SideFor,
		Weight: 2700, CastAt: testTime,
	}
	p.VotesFor = 2700
	if err := d.SaveVote(v, p); err != nil {
		t.Fatalf("save vote: %v", err)
	}

	got, _ := d.GetProposal(p.ID)
	if got.VotesFor != 2700 {
		t.Fatalf("votes_for = %d, want 2700", got.VotesFor)
	}

	// A duplicate vote rolls back the whole pair: the tally update must not
	// land without its record.
	p.VotesFor = 5400
	if err := d.SaveVote(v, p); err == nil {
		t.Fatal("duplicate vote must fail")
	}
	got, _ = d.GetProposal(p.ID)
	if got.VotesFor != 2700 {
		t.Fatalf("tally updated despite rollback: votes_for = %d", got.VotesFor)
	}
	records, _ := d.VoteRecords(p.ID)
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
}

func TestDelegationsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	if err := d.SaveDelegation("bob", "alice"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := d.SaveDelegation("bob", "carol"); err != nil {
		t.Fatalf("re-delegate: %v", err)
	}
	if err := d.SaveDelegation("dave", "carol"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := d.DeleteDelegation("dave"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := d.Delegations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got["bob"] != "carol" {
		t.Fatalf("delegations = %v", got)
	}
}

func TestUpgradeRequestRoundTrip(t *testing.T) {
	d := openTestDB(t)

	r := domain.UpgradeRequest{
		ID:                  "upg-bbbb2222",
		ProposalID:          "prop-aaaa1111",
		Target:              "coordinator",
		NewImplementationID: "v2",
		Phase:               domain.PhaseWaiting,
		RequestedAt:         testTime,
		GracePeriod:         time.Minute,
		MaxDelay:            24 * time.Hour,
	}
	if err := d.SaveUpgradeRequest(r); err != nil {
		t.Fatalf("save: %v", err)
	}

	r.Phase = domain.PhaseStalled
	r.Forced = true
	r.Attempts = 3
	r.LastError = "sanity check failed"
	if err := d.SaveUpgradeRequest(r); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err := d.ListUpgradeRequests()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d", len(list))
	}
	got := list[0]
	if got.Phase != domain.PhaseStalled || !got.Forced || got.Attempts != 3 {
		t.Fatalf("got = %+v", got)
	}
	if got.GracePeriod != time.Minute || got.MaxDelay != 24*time.Hour {
		t.Fatalf("durations = %v %v", got.GracePeriod, got.MaxDelay)
	}
}

func TestImplementationRegistry(t *testing.T) {
	d := openTestDB(t)

	// DB must serve as the executor's implementation registry.
	var _ domain.ImplementationRegistry = d

	if _, err := d.GetImplementation("coordinator"); !errors.Is(err, domain.ErrTargetNotRegistered) {
		t.Fatalf("expected ErrTargetNotRegistered, got %v", err)
	}

	if err := d.SetImplementation("coordinator", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := d.SetImplementation("coordinator", "v2"); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := d.GetImplementation("coordinator")
	if err != nil || got != "v2" {
		t.Fatalf("get = %s, %v", got, err)
	}

	hist, err := d.ImplementationHistory("coordinator", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 || hist[0] != "v2" || hist[1] != "v1" {
		t.Fatalf("history = %v", hist)
	}
}

func TestAccountsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	a := domain.Account{
		Address: "alice", Balance: 10_000, Staked: 5_000,
		LockDays: 365, Reputation: 500, Resources: 0, UpdatedAt: testTime,
	}
	if err := d.UpsertAccount(a); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	a.Staked = 6_000
	if err := d.UpsertAccount(a); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := d.GetAccount("alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Staked != 6_000 || got.LockDays != 365 {
		t.Fatalf("got = %+v", got)
	}

	missing, err := d.GetAccount("ghost")
	if err != nil || missing != nil {
		t.Fatalf("missing account: %v %v", missing, err)
	}

	all, err := d.ListAccounts()
	if err != nil || len(all) != 1 {
		t.Fatalf("list = %v, %v", all, err)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	p := domain.Param{Key: "max_active_proposals", CurrentValue: "75", ChangedBy: "prop-aaaa1111", LastChanged: testTime}
	if err := d.SaveParam(p); err != nil {
		t.Fatalf("save: %v", err)
	}

	vals, err := d.LoadParams()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if vals["max_active_proposals"] != "75" {
		t.Fatalf("vals = %v", vals)
	}
}

func TestEventLog(t *testing.T) {
	d := openTestDB(t)

	for i, typ := range []domain.EventType{domain.EventProposalCreated, domain.EventVoteCast, domain.EventProposalQueued} {
		_, err := d.AppendEvent(domain.Event{
			Type: typ, At: testTime.Add(time.Duration(i) * time.Second),
			Subject: "prop-aaaa1111", Detail: "x",
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := d.RecentEvents(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Type != domain.EventProposalQueued {
		t.Fatalf("recent = %+v", recent)
	}

	bySubject, err := d.EventsBySubject("prop-aaaa1111", 10)
	if err != nil || len(bySubject) != 3 {
		t.Fatalf("by subject = %+v, %v", bySubject, err)
	}
}
