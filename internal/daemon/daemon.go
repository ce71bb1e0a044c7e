package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/agora-network/agora/internal/api"
	"github.com/agora-network/agora/internal/domain"
	"github.com/agora-network/agora/internal/health"
	"github.com/agora-network/agora/internal/infra/breaker"
	"github.com/agora-network/agora/internal/infra/events"
	"github.com/agora-network/agora/internal/infra/govern"
	"github.com/agora-network/agora/internal/infra/jobs"
	"github.com/agora-network/agora/internal/infra/ledger"
	"github.com/agora-network/agora/internal/infra/metrics"
	"github.com/agora-network/agora/internal/infra/params"
	"github.com/agora-network/agora/internal/infra/power"
	"github.com/agora-network/agora/internal/infra/sqlite"
	"github.com/agora-network/agora/internal/infra/upgrade"
)

// Daemon is the core agora runtime. It wires together all services.
type Daemon struct {
	Config    Config
	DB        *sqlite.DB
	Events    *events.Log
	Ledger    *ledger.Ledger
	Tracker   *power.Tracker
	Breaker   *breaker.Controller
	Jobs      *jobs.Registry
	Executor  *upgrade.Executor
	Scheduler *upgrade.Scheduler
	Params    *params.Registry
	Engine    *govern.Engine
	Health    *health.Checker
	Server    *api.Server

	router *actionRouter
	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New(version string) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg, version)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, version string) (*Daemon, error) {
	// Open SQLite
	db, err := sqlite.Open(agoraHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Audit log, write-through to sqlite
	eventLog := events.NewLog(1024, db)

	// Account ledger and the power calculator over it
	led := ledger.New(db)
	calc := power.NewCalculator(power.Sources{
		Ledger:     led,
		Reputation: led,
		Resources:  led,
	})

	// Delegation tracker, restored from the persisted graph
	tracker := power.NewTracker(calc.Power, eventLog, db)
	if delegations, err := db.Delegations(); err != nil {
		log.Printf("[daemon] WARNING: restore delegations: %v", err)
	} else {
		tracker.Load(delegations)
	}

	// Emergency council and circuit breaker
	cnl := newCouncil(cfg.Council)
	ctrl := breaker.NewController(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  parseDuration(cfg.Breaker.RecoveryTimeout, time.Hour),
	}, cnl, eventLog)

	// Job registry and the upgrade pipeline behind it
	jobReg := jobs.NewRegistry()
	executor := upgrade.NewExecutor(db, nil, eventLog)
	scheduler := upgrade.NewScheduler(upgrade.Config{
		PollInterval:      parseDuration(cfg.Upgrade.PollInterval, 5*time.Second),
		DefaultGrace:      parseDuration(cfg.Upgrade.GracePeriod, time.Minute),
		DefaultMaxDelay:   parseDuration(cfg.Upgrade.MaxDelay, 24*time.Hour),
		MaxForcedAttempts: cfg.Upgrade.MaxForcedAttempts,
	}, jobReg, executor, ctrl, eventLog, db)
	if pending, err := db.ListUpgradeRequests(); err != nil {
		log.Printf("[daemon] WARNING: restore upgrade requests: %v", err)
	} else {
		scheduler.Load(pending)
	}

	// Governable parameters: file config seeds the registry, persisted
	// overrides win over it (they already passed a vote).
	paramReg := params.NewRegistry(eventLog, db)
	paramReg.Restore(configParams(cfg))
	if stored, err := db.LoadParams(); err != nil {
		log.Printf("[daemon] WARNING: restore parameters: %v", err)
	} else {
		paramReg.Restore(stored)
	}

	// Proposal registry
	router := &actionRouter{scheduler: scheduler, params: paramReg}
	engine := govern.NewEngine(govern.Config{
		MinProposePower:      cfg.Governance.MinProposePower,
		EnhancedProposePower: cfg.Governance.EnhancedProposePower,
		ExecutionGrace:       time.Duration(cfg.Governance.ExecutionGraceDays) * 24 * time.Hour,
		MaxActiveProposals:   cfg.Governance.MaxActiveProposals,
	}, govern.Deps{
		Power:      tracker.EffectivePower,
		TotalPower: func() uint64 { return led.TotalPower(calc.Power) },
		Council:    cnl,
		Gate:       ctrl,
		Actions:    router,
		Sink:       eventLog,
		Store:      db,
	})
	if err := restoreProposals(engine, db); err != nil {
		log.Printf("[daemon] WARNING: restore proposals: %v", err)
	}

	// Push the effective parameter values into their consumers, now and
	// again after every executed parameter change.
	binder := &paramBinder{
		params:    paramReg,
		engine:    engine,
		breaker:   ctrl,
		scheduler: scheduler,
		calc:      calc,
	}
	router.bind = binder
	binder.apply()

	// Health checker
	checker := health.NewChecker(db, agoraHome())

	// API server
	srv := api.NewServer(api.Deps{
		Engine:    engine,
		Tracker:   tracker,
		Scheduler: scheduler,
		Breaker:   ctrl,
		Params:    paramReg,
		Ledger:    led,
		Jobs:      jobReg,
		Events:    eventLog,
		Council:   cnl,
	}, version)

	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:    cfg,
		DB:        db,
		Events:    eventLog,
		Ledger:    led,
		Tracker:   tracker,
		Breaker:   ctrl,
		Jobs:      jobReg,
		Executor:  executor,
		Scheduler: scheduler,
		Params:    paramReg,
		Engine:    engine,
		Health:    checker,
		Server:    srv,
		router:    router,
	}, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Background loops: upgrade scheduler, health checks, expiry sweep
	go d.Scheduler.Run(ctx)
	go d.Health.Run(ctx)
	go d.sweep(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("agora serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

// sweep finalizes voting-period expiries and refreshes the activity gauges.
func (d *Daemon) sweep(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Engine.FinalizeExpired()

			stats := d.Engine.Stats()
			metrics.ProposalsActive.Set(float64(stats.OpenProposals))
			metrics.DelegationsActive.Set(float64(len(d.Tracker.Delegations())))
			metrics.UpgradesPending.Set(float64(d.Scheduler.PendingCount()))
			metrics.JobsActive.Set(float64(d.Jobs.ActiveJobCount()))
		}
	}
}

// ─── Wiring Helpers ─────────────────────────────────────────────────────────

// actionRouter applies executed proposal actions: upgrades go to the
// scheduler's drain queue, parameter changes to the registry and from there
// into the consuming components.
type actionRouter struct {
	scheduler *upgrade.Scheduler
	params    *params.Registry
	bind      *paramBinder
}

func (a *actionRouter) ApplyAction(p domain.Proposal, act domain.Action) error {
	switch act.Method {
	case domain.ActionUpgrade:
		grace, maxDelay := a.windows()
		_, err := a.scheduler.Submit(p.ID, act.Target, act.Payload, grace, maxDelay)
		return err
	case domain.ActionSetParam:
		if err := a.params.Set(act.Target, act.Payload, p.ID, p.Kind); err != nil {
			return err
		}
		if a.bind != nil {
			a.bind.apply()
		}
		return nil
	default:
		return fmt.Errorf("unknown action method %q", act.Method)
	}
}

// windows reads the governable drain windows. Zero values let the scheduler
// fall back to its configured defaults.
func (a *actionRouter) windows() (grace, maxDelay time.Duration) {
	if secs, err := a.params.Uint("upgrade_grace_seconds"); err == nil {
		grace = time.Duration(secs) * time.Second
	}
	if hours, err := a.params.Uint("upgrade_max_delay_hours"); err == nil {
		maxDelay = time.Duration(hours) * time.Hour
	}
	return grace, maxDelay
}

// paramBinder pushes registry values into the components that consume them.
// It runs once at startup and after every executed parameter change, so a
// voted value takes effect immediately instead of on the next restart.
type paramBinder struct {
	params    *params.Registry
	engine    *govern.Engine
	breaker   *breaker.Controller
	scheduler *upgrade.Scheduler
	calc      *power.Calculator
}

func (b *paramBinder) apply() {
	u := func(key string) uint64 {
		v, err := b.params.Uint(key)
		if err != nil {
			return 0 // zero means "keep the current setting" downstream
		}
		return v
	}

	b.engine.SetConfig(govern.Config{
		MinProposePower:      u("min_propose_power"),
		EnhancedProposePower: u("enhanced_propose_power"),
		ExecutionGrace:       time.Duration(u("execution_grace_days")) * 24 * time.Hour,
		MaxActiveProposals:   int(u("max_active_proposals")),
	})
	b.breaker.SetConfig(breaker.Config{
		FailureThreshold: int(u("breaker_failure_threshold")),
		RecoveryTimeout:  time.Duration(u("breaker_recovery_minutes")) * time.Minute,
	})
	b.scheduler.SetMaxForcedAttempts(int(u("upgrade_max_forced_attempts")))
	b.calc.SetWeights(u("stake_weight_percent"), u("long_lock_days"))
}

// configParams maps the file config onto registry keys so a freshly booted
// node reports the values it actually runs with. Voted overrides restored
// from sqlite are applied after this and win.
func configParams(cfg Config) map[string]string {
	seed := make(map[string]string)
	put := func(key string, v uint64) {
		if v > 0 {
			seed[key] = strconv.FormatUint(v, 10)
		}
	}
	put("min_propose_power", cfg.Governance.MinProposePower)
	put("enhanced_propose_power", cfg.Governance.EnhancedProposePower)
	put("execution_grace_days", uint64(cfg.Governance.ExecutionGraceDays))
	put("max_active_proposals", uint64(cfg.Governance.MaxActiveProposals))
	put("upgrade_max_forced_attempts", uint64(cfg.Upgrade.MaxForcedAttempts))
	put("breaker_failure_threshold", uint64(cfg.Breaker.FailureThreshold))
	if grace := parseDuration(cfg.Upgrade.GracePeriod, 0); grace > 0 {
		seed["upgrade_grace_seconds"] = strconv.FormatInt(int64(grace/time.Second), 10)
	}
	if maxDelay := parseDuration(cfg.Upgrade.MaxDelay, 0); maxDelay >= time.Hour {
		seed["upgrade_max_delay_hours"] = strconv.FormatInt(int64(maxDelay/time.Hour), 10)
	}
	if recovery := parseDuration(cfg.Breaker.RecoveryTimeout, 0); recovery > 0 {
		seed["breaker_recovery_minutes"] = strconv.FormatInt(int64(recovery/time.Minute), 10)
	}
	return seed
}

// council is the config-defined emergency council.
type council struct {
	members  map[string]bool
	required int
}

func newCouncil(cfg CouncilConfig) *council {
	members := make(map[string]bool, len(cfg.Members))
	for _, m := range cfg.Members {
		members[m] = true
	}
	required := cfg.Required
	if required <= 0 {
		required = (len(cfg.Members) / 2) + 1 // Majority by default
	}
	return &council{members: members, required: required}
}

func (c *council) IsMember(account string) bool { return c.members[account] }
func (c *council) Required() int                { return c.required }
func (c *council) Size() int                    { return len(c.members) }

// restoreProposals reloads the persisted proposal set and vote trails.
func restoreProposals(engine *govern.Engine, db *sqlite.DB) error {
	proposals, err := db.ListProposals()
	if err != nil {
		return err
	}

	var votes []domain.VoteRecord
	for _, p := range proposals {
		records, err := db.VoteRecords(p.ID)
		if err != nil {
			return err
		}
		votes = append(votes, records...)
	}

	engine.Load(proposals, votes)
	return nil
}
