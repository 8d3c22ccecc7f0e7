/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/sprint"
)

// SprintMetrics rolls up every member of a sprint. Closed sprints read only
// frozen status and points, so repeated calls give the same histogram.
func SprintMetrics(sprintID string, members []sprint.Member, calculatedAt time.Time) domain.SprintRollup {
	out := domain.SprintRollup{
		SprintID:     sprintID,
		CalculatedAt: calculatedAt,
		StatusCounts: domain.NewStatusCounts(),
	}
	var lead leadTime
	for _, m := range members {
		st := domain.NormalizeStatus(m.Status())
		sp := m.StoryPoints()
		out.StatusCounts[st]++
		out.TotalTickets++
		out.TotalStoryPoints += sp
		switch st {
		case domain.StatusDone:
			out.CompletedTickets++
			out.CompletedStoryPoints += sp
		case domain.StatusBlocked:
			out.Impediments++
		}
		lead.add(m.Item)
	}
	out.CarryoverStoryPoints = out.TotalStoryPoints - out.CompletedStoryPoints
	out.PendingTickets = out.TotalTickets - out.CompletedTickets
	if out.TotalTickets > 0 {
		out.CompletionPercentage = float64(out.CompletedTickets) / float64(out.TotalTickets) * 100
	}
	out.AvgLeadTimeDays = lead.avg()
	return out
}

// leadTime averages devClose - devStart in days over items that have both
// dates in order.
type leadTime struct {
	sum   float64
	count int
}

func (l *leadTime) add(it domain.WorkItem) {
	if it.DevStartAt == nil || it.DevCloseAt == nil {
		return
	}
	d := it.DevCloseAt.Sub(*it.DevStartAt)
	if d < 0 {
		return
	}
	l.sum += d.Hours() / 24
	l.count++
}

func (l leadTime) avg() float64 {
	if l.count == 0 {
		return 0
	}
	return l.sum / float64(l.count)
}
