/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"sync"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/telemetry"
)

// Guard lets at most one recompute pass run in this process. A trigger that
// finds a pass in flight is skipped, not queued.
type Guard struct {
	mu      sync.Mutex
	running bool
	tm      *telemetry.Metrics
}

func NewGuard(tm *telemetry.Metrics) *Guard { return &Guard{tm: tm} }

// TryStart reports whether the caller now owns the pass. Owners must call Done.
func (g *Guard) TryStart() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		g.tm.RunSkipped()
		return false
	}
	g.running = true
	return true
}

func (g *Guard) Done() {
	g.mu.Lock()
	g.running = false
	g.mu.Unlock()
}

func (g *Guard) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}
