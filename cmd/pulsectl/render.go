/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"fmt"
	"io"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/metrics"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/services"
	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func sp(v float64) string { return fmt.Sprintf("%.1f", v) }

func renderBurndown(w io.Writer, r domain.BurndownResult) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("Sprint %s / %s (%s)", r.SprintID, r.DeveloperID, r.DataSource))
	t.AppendHeader(table.Row{"Date", "Planned", "Completed", "Remaining", "Tickets", "Done"})
	for _, d := range r.Days {
		t.AppendRow(table.Row{d.Date.Format("2006-01-02"), sp(d.Planned), sp(d.Completed), sp(d.Remaining), d.Tickets, d.CompletedTickets})
	}
	t.AppendFooter(table.Row{"Total", sp(r.TotalPlanned), sp(r.TotalCompleted), "", r.TotalTickets, ""})
	t.Render()
}

func renderSprintRollups(w io.Writer, rs ...domain.SprintRollup) {
	t := newTable(w)
	header := table.Row{"Sprint", "Calculated", "Tickets", "Done", "SP", "Done SP", "Carryover", "Done %", "Lead (d)"}
	for _, s := range domain.AllStatuses {
		header = append(header, string(s))
	}
	t.AppendHeader(header)
	for _, r := range rs {
		row := table.Row{r.SprintID, r.CalculatedAt.Format("2006-01-02 15:04"), r.TotalTickets, r.CompletedTickets,
			sp(r.TotalStoryPoints), sp(r.CompletedStoryPoints), sp(r.CarryoverStoryPoints),
			fmt.Sprintf("%.0f%%", r.CompletionPercentage), sp(r.AvgLeadTimeDays)}
		for _, s := range domain.AllStatuses {
			row = append(row, r.StatusCounts[s])
		}
		t.AppendRow(row)
	}
	t.Render()
}

func renderDeveloperRollups(w io.Writer, rs []domain.DeveloperRollup, capacity float64) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("Capacity %s SP", sp(capacity)))
	t.AppendHeader(table.Row{"Developer", "Tickets", "Workload", "Velocity", "Carryover", "Lead (d)", "Squad", "Initiative", "Alloc %"})
	var all []domain.DeveloperAllocationRecord
	for _, r := range rs {
		all = append(all, r.Allocations...)
		base := table.Row{r.DeveloperID, r.Tickets, sp(r.Workload), sp(r.Velocity), sp(r.Carryover), sp(r.AvgLeadTimeDays)}
		if len(r.Allocations) == 0 {
			t.AppendRow(append(base, "", "", ""))
			continue
		}
		for i, a := range r.Allocations {
			row := base
			if i > 0 {
				row = table.Row{"", "", "", "", "", ""}
			}
			t.AppendRow(append(row, a.SquadID, a.InitiativeID, a.Percentage))
		}
	}
	t.Render()

	totals := metrics.NaiveTotal(all)
	if len(totals) == 0 {
		return
	}
	sum := newTable(w)
	sum.AppendHeader(table.Row{"Developer", "Summed alloc %"})
	for _, r := range rs {
		if v, ok := totals[r.DeveloperID]; ok {
			sum.AppendRow(table.Row{r.DeveloperID, v})
		}
	}
	sum.Render()
}

func renderRun(w io.Writer, run *services.Run) {
	fmt.Fprintln(w, run.Summary())
	if len(run.Failures) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Sprint", "Reason", "Error"})
	for _, f := range run.Failures {
		t.AppendRow(table.Row{f.SprintID, f.Reason, f.Error})
	}
	t.Render()
}
