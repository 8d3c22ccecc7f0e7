/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package sprint

import (
	"fmt"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
)

// Classification says whether a sprint is frozen and at which moment.
type Classification struct {
	Closed   bool
	Snapshot *time.Time
}

// Classify applies, in order: completeDate set; state closed with an end
// date; end date strictly in the past; otherwise active. A window without a
// start date cannot be aggregated.
func Classify(w domain.SprintWindow, now time.Time) (Classification, error) {
	if w.StartDate == nil {
		return Classification{}, fmt.Errorf("%w: sprint %s has no start date", domain.ErrInvalidSprintWindow, w.ID)
	}
	switch {
	case w.CompleteDate != nil:
		return Classification{Closed: true, Snapshot: w.CompleteDate}, nil
	case w.State == domain.SprintClosed && w.EndDate != nil:
		return Classification{Closed: true, Snapshot: w.EndDate}, nil
	case w.EndDate != nil && w.EndDate.Before(now):
		return Classification{Closed: true, Snapshot: w.EndDate}, nil
	}
	return Classification{}, nil
}

// End is the last moment the sprint can be evaluated at: the snapshot, or
// now for active sprints, never later than now.
func (c Classification) End(now time.Time) time.Time {
	if c.Snapshot != nil && c.Snapshot.Before(now) {
		return *c.Snapshot
	}
	return now
}

// DataSource labels where per-item values come from.
func (c Classification) DataSource() string {
	if c.Closed {
		return domain.DataSourceSnapshot
	}
	return domain.DataSourceLive
}
