/*
scheduler.go - Automated session generation scheduler

PURPOSE:
  Periodically materializes upcoming sessions from active recurrence
  rules, so the calendar stays populated without manual generation runs.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Expands each active rule over a rolling horizon from today
  - Relies on deterministic occurrence ids: sessions that already exist
    are skipped by the store, so every run is idempotent
  - Rules that fail validation are logged and skipped, never fatal

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Horizon:       How far ahead to materialize (default: 60 days)
  - Enabled:       Whether scheduler is active (default: true)

USAGE:
  scheduler := NewGenerationScheduler(store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Generate endpoint (manual generation)
  - schedule/expand.go: Rule expansion
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/schedule-engine/schedule"
)

// GenerationScheduler materializes upcoming sessions in the background.
type GenerationScheduler struct {
	Store         schedule.SessionStore
	CheckInterval time.Duration
	Horizon       time.Duration
	Enabled       bool

	log    *zap.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewGenerationScheduler creates a new scheduler.
func NewGenerationScheduler(store schedule.SessionStore, log *zap.Logger) *GenerationScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GenerationScheduler{
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Horizon:       60 * 24 * time.Hour,
		Enabled:       true,
		log:           log,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (gs *GenerationScheduler) Start() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.Enabled {
		gs.log.Info("generation scheduler disabled, not starting")
		return
	}

	gs.ticker = time.NewTicker(gs.CheckInterval)
	gs.wg.Add(1)

	go gs.run()

	gs.log.Info("generation scheduler started",
		zap.Duration("interval", gs.CheckInterval),
		zap.Duration("horizon", gs.Horizon))
}

// Stop stops the scheduler.
func (gs *GenerationScheduler) Stop() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ticker != nil {
		gs.ticker.Stop()
		close(gs.stop)
		gs.wg.Wait()
		gs.log.Info("generation scheduler stopped")
	}
}

func (gs *GenerationScheduler) run() {
	defer gs.wg.Done()

	// Run immediately on start
	gs.materialize()

	for {
		select {
		case <-gs.ticker.C:
			gs.materialize()
		case <-gs.stop:
			return
		}
	}
}

func (gs *GenerationScheduler) materialize() {
	ctx := context.Background()
	now := time.Now()

	rules, err := gs.Store.ListRules(ctx, true)
	if err != nil {
		gs.log.Error("failed to list rules", zap.Error(err))
		return
	}

	candidate := 0
	inserted := 0
	for _, rule := range rules {
		occs, err := schedule.Expand(rule, now, now.Add(gs.Horizon))
		if err != nil {
			gs.log.Warn("skipping rule",
				zap.String("rule_id", string(rule.ID)), zap.Error(err))
			continue
		}
		candidate += len(occs)

		n, err := gs.Store.SaveOccurrences(ctx, occs)
		if err != nil {
			gs.log.Error("failed to save sessions",
				zap.String("rule_id", string(rule.ID)), zap.Error(err))
			continue
		}
		inserted += n
	}

	if inserted > 0 {
		gs.log.Info("materialized upcoming sessions",
			zap.Int("rules", len(rules)),
			zap.Int("inserted", inserted),
			zap.Int("skipped", candidate-inserted))
	}
}

// RunNow triggers an immediate run (for testing/admin).
func (gs *GenerationScheduler) RunNow() {
	gs.materialize()
}

// GetNextRunTime returns when the next scheduled run will occur.
func (gs *GenerationScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(gs.CheckInterval)
}
