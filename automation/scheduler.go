package automation

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTickInterval is how often the scheduler evaluates enabled rules.
const DefaultTickInterval = 60 * time.Second

// Scheduler drives the engine on a fixed interval. Exactly one instance
// should run system-wide: the check-then-log idempotency in the processors
// is backstopped by the action log's uniqueness index, but rate limiting and
// vote work would still double up across concurrent schedulers.
type Scheduler struct {
	Engine   *Engine
	Interval time.Duration

	log *slog.Logger
}

func NewScheduler(eng *Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		Engine:   eng,
		Interval: interval,
		log:      slog.Default().With("system", "scheduler"),
	}
}

// Run ticks until the context is canceled. A tick always runs to
// completion; shutdown happens between ticks.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("engagement scheduler starting", "interval", s.Interval)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("engagement scheduler stopping")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick loads every enabled rule and dispatches each to its processor.
// Failures are isolated per rule: one agent's misbehaving rule is logged
// and the rest of the tick continues.
func (s *Scheduler) Tick(ctx context.Context) {
	start := time.Now()
	schedulerTicks.Inc()

	rules, err := s.Engine.Rules.ListEnabled(ctx)
	if err != nil {
		s.log.Error("loading enabled rules failed, skipping tick", "err", err)
		return
	}

	now := time.Now().UTC()
	var failed int
	for i := range rules {
		rule := &rules[i]
		if err := s.Engine.ProcessRule(ctx, rule, now); err != nil {
			failed++
			ruleErrors.WithLabelValues(string(rule.Kind)).Inc()
			s.log.Error("rule processing failed", "agent", rule.Agent, "kind", rule.Kind, "err", err)
		}
	}

	tickDuration.Observe(time.Since(start).Seconds())
	s.log.Debug("tick complete", "rules", len(rules), "failed", failed, "took", time.Since(start))
}
