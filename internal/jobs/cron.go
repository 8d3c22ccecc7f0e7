/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/config"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RecomputeLockKey is the Postgres advisory lock shared by every replica.
const RecomputeLockKey int64 = 424242

type recomputer interface {
	RecomputeAll(ctx context.Context, squadID string) (*services.Run, error)
}

type Locker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	AdvisoryUnlock(ctx context.Context, key int64) error
}

type Cron struct {
	cfg   config.Config
	log   zerolog.Logger
	svc   recomputer
	lock  Locker
	guard *Guard
	c     *cron.Cron
	bg    sync.WaitGroup
}

func NewCron(cfg config.Config, log zerolog.Logger, svc recomputer, lock Locker, guard *Guard) (*Cron, error) {
	c := cron.New(cron.WithLocation(cfg.Location()), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, svc: svc, lock: lock, guard: guard, c: c}
	if _, err := c.AddFunc(cfg.RecomputeCron, cr.recompute); err != nil {
		return nil, fmt.Errorf("cron: bad schedule %q: %w", cfg.RecomputeCron, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop halts the scheduler and waits for scheduled and triggered passes
// to return.
func (cr *Cron) Stop() {
	<-cr.c.Stop().Done()
	cr.bg.Wait()
}

func (cr *Cron) recompute() {
	if !cr.guard.TryStart() {
		cr.log.Info().Msg("cron: recompute already running in this process")
		return
	}
	defer cr.guard.Done()
	cr.run(cr.cfg.RecomputeSquad)
}

// Trigger starts a pass in the background unless one is already running.
// It reports whether a pass was started.
func (cr *Cron) Trigger(squadID string) bool {
	if !cr.guard.TryStart() {
		return false
	}
	cr.bg.Add(1)
	go func() {
		defer cr.bg.Done()
		defer cr.guard.Done()
		cr.run(squadID)
	}()
	return true
}

func (cr *Cron) run(squadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cr.cfg.RecomputeTimeout)
	defer cancel()
	if cr.lock != nil {
		ok, err := cr.lock.TryAdvisoryLock(ctx, RecomputeLockKey)
		if err != nil {
			cr.log.Error().Err(err).Msg("cron: lock error")
			return
		}
		if !ok {
			cr.log.Info().Msg("cron: already running elsewhere")
			return
		}
		defer func() { _ = cr.lock.AdvisoryUnlock(context.Background(), RecomputeLockKey) }()
	}
	cr.log.Info().Str("squad", squadID).Msg("cron: recompute")
	if _, err := cr.svc.RecomputeAll(ctx, squadID); err != nil {
		cr.log.Error().Err(err).Msg("cron: recompute failed")
	}
}
