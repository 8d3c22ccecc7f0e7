/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/history"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/sprint"
)

// BurndownInput is everything a burndown needs, already fetched.
type BurndownInput struct {
	Window          domain.SprintWindow
	Class           sprint.Classification
	DeveloperID     string
	Members         []sprint.Member
	StatusHistory   map[string][]domain.FieldChangeRecord
	AssigneeHistory map[string][]domain.FieldChangeRecord
	Now             time.Time
	Location        *time.Location
}

// Burndown produces one row per calendar day from the sprint start to the
// sprint end, inclusive. An item counts for a day only if the developer was
// its assignee at that day's evaluation point. Closed sprints use the frozen
// close points for every day.
func Burndown(in BurndownInput) domain.BurndownResult {
	res := domain.BurndownResult{
		SprintID:    in.Window.ID,
		DeveloperID: in.DeveloperID,
		Days:        []domain.DayPoint{},
		DataSource:  in.Class.DataSource(),
	}
	if len(in.Members) == 0 || in.Window.StartDate == nil {
		return res
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	end := in.Class.End(in.Now)
	first := dayStart(*in.Window.StartDate, loc)
	last := dayStart(end, loc)

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		at := d.AddDate(0, 0, 1).Add(-time.Nanosecond)
		if at.After(end) {
			at = end
		}
		row := domain.DayPoint{Date: d}
		for _, m := range in.Members {
			id := m.Item.ID
			assignee := history.Resolve(in.AssigneeHistory[id], m.Item.CurrentAssigneeID, at)
			if assignee != in.DeveloperID {
				continue
			}
			sp := m.StoryPoints()
			row.Planned += sp
			row.Tickets++
			status := history.Resolve(in.StatusHistory[id], m.Status(), at)
			if domain.IsDone(status) {
				row.Completed += sp
				row.CompletedTickets++
			}
		}
		row.Remaining = row.Planned - row.Completed
		res.Days = append(res.Days, row)
	}
	if len(res.Days) > 0 {
		res.TotalPlanned = res.Days[0].Planned
		lastRow := res.Days[len(res.Days)-1]
		res.TotalCompleted = lastRow.Completed
		res.TotalTickets = lastRow.Tickets
	}
	return res
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
