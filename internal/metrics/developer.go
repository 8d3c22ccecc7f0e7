/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"sort"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/sprint"
)

// InitialStoryPoints is an item's workload for the sprint: the recorded
// start value, 0 for items created after the sprint started, else the
// current points.
//
// The last branch treats "unknown" as "current value" and overstates
// long-lived items whose estimate grew. Kept for parity with past rollups.
func InitialStoryPoints(m sprint.Member, sprintStart *time.Time) float64 {
	if m.Link != nil && m.Link.StoryPointsAtStart != nil {
		return *m.Link.StoryPointsAtStart
	}
	if sprintStart != nil && m.Item.CreatedAt != nil && m.Item.CreatedAt.After(*sprintStart) {
		return 0
	}
	return m.Item.CurrentStoryPoints
}

type devAcc struct {
	rollup domain.DeveloperRollup
	lead   leadTime
	alloc  map[[2]string]float64
}

// DeveloperMetrics groups members by current assignee and computes one
// rollup per developer, sorted by developer id. capacity is the sprint
// capacity in story points used for allocation percentages.
func DeveloperMetrics(w domain.SprintWindow, members []sprint.Member, capacity float64, calculatedAt time.Time) []domain.DeveloperRollup {
	byDev := map[string]*devAcc{}
	for _, m := range members {
		dev := m.Item.CurrentAssigneeID
		if dev == "" {
			dev = domain.Unassigned
		}
		acc, ok := byDev[dev]
		if !ok {
			acc = &devAcc{
				rollup: domain.DeveloperRollup{
					DeveloperID:  dev,
					SprintID:     w.ID,
					CalculatedAt: calculatedAt,
					StatusCounts: domain.NewStatusCounts(),
				},
				alloc: map[[2]string]float64{},
			}
			byDev[dev] = acc
		}
		st := domain.NormalizeStatus(m.Status())
		initial := InitialStoryPoints(m, w.StartDate)
		acc.rollup.Tickets++
		acc.rollup.StatusCounts[st]++
		acc.rollup.Workload += initial
		if st == domain.StatusDone {
			acc.rollup.Velocity += m.Item.CurrentStoryPoints
			acc.lead.add(m.Item)
		}
		squad := m.Item.SquadID
		if squad == "" {
			squad = w.SquadID
		}
		acc.alloc[[2]string{squad, m.Item.InitiativeID}] += initial
	}

	out := make([]domain.DeveloperRollup, 0, len(byDev))
	for dev, acc := range byDev {
		r := acc.rollup
		r.Carryover = r.Workload - r.Velocity
		r.AvgLeadTimeDays = acc.lead.avg()
		for key, sp := range acc.alloc {
			r.Allocations = append(r.Allocations, Allocation(key[0], key[1], dev, sp, capacity))
		}
		sort.Slice(r.Allocations, func(i, j int) bool {
			if r.Allocations[i].SquadID != r.Allocations[j].SquadID {
				return r.Allocations[i].SquadID < r.Allocations[j].SquadID
			}
			return r.Allocations[i].InitiativeID < r.Allocations[j].InitiativeID
		})
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeveloperID < out[j].DeveloperID })
	return out
}
