package metrics

import (
	"testing"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/sprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day0 = time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	day2 = day0.AddDate(0, 0, 2)
	now  = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
)

func ptr[T any](v T) *T { return &v }

func closedSprint() (domain.SprintWindow, sprint.Classification) {
	w := domain.SprintWindow{ID: "s1", Name: "Sprint 1", SquadID: "sq-a", StartDate: ptr(day0), EndDate: ptr(day2), State: domain.SprintClosed}
	cls, _ := sprint.Classify(w, now)
	return w, cls
}

func frozenMember(id, assignee, statusAtClose string, sp float64) sprint.Member {
	return sprint.Member{
		Item:   domain.WorkItem{ID: id, CurrentAssigneeID: assignee, CurrentStatus: "To Do", CurrentStoryPoints: 99},
		Link:   &domain.SprintMembership{ItemID: id, SprintID: "s1", StatusAtClose: ptr(statusAtClose), StoryPointsAtClose: ptr(sp)},
		Frozen: true,
	}
}

func statusHist(id string, recs ...domain.FieldChangeRecord) map[string][]domain.FieldChangeRecord {
	for i := range recs {
		recs[i].ItemID = id
		recs[i].FieldName = domain.FieldStatus
	}
	return map[string][]domain.FieldChangeRecord{id: recs}
}

func TestBurndown_EndToEndClosedSprint(t *testing.T) {
	w, cls := closedSprint()
	in := BurndownInput{
		Window:      w,
		Class:       cls,
		DeveloperID: "dev-1",
		Members:     []sprint.Member{frozenMember("i1", "dev-1", "DONE", 5)},
		StatusHistory: statusHist("i1",
			domain.FieldChangeRecord{FromValue: "TO DO", ToValue: "IN PROGRESS", ChangedAt: day0},
			domain.FieldChangeRecord{FromValue: "IN PROGRESS", ToValue: "DONE", ChangedAt: day2},
		),
		AssigneeHistory: map[string][]domain.FieldChangeRecord{"i1": {}},
		Now:             now,
	}
	res := Burndown(in)
	require.Len(t, res.Days, 3)
	assert.Equal(t, domain.DayPoint{Date: day0, Planned: 5, Completed: 0, Remaining: 5, Tickets: 1}, res.Days[0])
	assert.Equal(t, 0.0, res.Days[1].Completed)
	assert.Equal(t, domain.DayPoint{Date: day2, Planned: 5, Completed: 5, Remaining: 0, Tickets: 1, CompletedTickets: 1}, res.Days[2])
	assert.Equal(t, 5.0, res.TotalPlanned)
	assert.Equal(t, 5.0, res.TotalCompleted)
	assert.Equal(t, 1, res.TotalTickets)
	assert.Equal(t, domain.DataSourceSnapshot, res.DataSource)
}

func TestBurndown_FallbackToCurrentAssignee(t *testing.T) {
	w, cls := closedSprint()
	base := BurndownInput{
		Window:  w,
		Class:   cls,
		Members: []sprint.Member{frozenMember("i1", "dev-1", "DONE", 5)},
		Now:     now,
	}

	base.DeveloperID = "dev-1"
	mine := Burndown(base)
	require.Len(t, mine.Days, 3)
	for _, d := range mine.Days {
		assert.Equal(t, 5.0, d.Planned, "day %s", d.Date)
	}

	base.DeveloperID = "dev-2"
	other := Burndown(base)
	require.Len(t, other.Days, 3)
	for _, d := range other.Days {
		assert.Equal(t, 0.0, d.Planned, "day %s", d.Date)
	}
	assert.Equal(t, 0, other.TotalTickets)
}

func TestBurndown_AssigneeHistoryMovesItem(t *testing.T) {
	w, cls := closedSprint()
	in := BurndownInput{
		Window:      w,
		Class:       cls,
		DeveloperID: "dev-2",
		Members:     []sprint.Member{frozenMember("i1", "dev-2", "QA", 3)},
		AssigneeHistory: map[string][]domain.FieldChangeRecord{"i1": {
			{ItemID: "i1", FieldName: domain.FieldAssignee, FromValue: "dev-1", ToValue: "dev-2", ChangedAt: day0.Add(36 * time.Hour)},
		}},
		Now: now,
	}
	res := Burndown(in)
	require.Len(t, res.Days, 3)
	assert.Equal(t, 0.0, res.Days[0].Planned)
	assert.Equal(t, 3.0, res.Days[1].Planned)
	assert.Equal(t, 3.0, res.Days[2].Planned)
	assert.Equal(t, 0.0, res.TotalPlanned)
	assert.Equal(t, 3.0, res.Days[2].Remaining)
}

func TestBurndown_NoMembers(t *testing.T) {
	w, cls := closedSprint()
	res := Burndown(BurndownInput{Window: w, Class: cls, DeveloperID: "dev-1", Now: now})
	assert.NotNil(t, res.Days)
	assert.Empty(t, res.Days)
	assert.Zero(t, res.TotalPlanned)
	assert.Zero(t, res.TotalCompleted)
	assert.Zero(t, res.TotalTickets)
}

func TestBurndown_ActiveSprintStopsAtNow(t *testing.T) {
	start := now.AddDate(0, 0, -1)
	w := domain.SprintWindow{ID: "s2", StartDate: &start, EndDate: ptr(now.AddDate(0, 0, 10)), State: domain.SprintActive}
	cls, err := sprint.Classify(w, now)
	require.NoError(t, err)
	m := sprint.Member{Item: domain.WorkItem{ID: "i1", CurrentAssigneeID: "dev-1", CurrentStatus: "In Progress", CurrentStoryPoints: 2}}
	res := Burndown(BurndownInput{Window: w, Class: cls, DeveloperID: "dev-1", Members: []sprint.Member{m}, Now: now})
	require.Len(t, res.Days, 2)
	assert.Equal(t, domain.DataSourceLive, res.DataSource)
	assert.Equal(t, 2.0, res.Days[1].Remaining)
}

func TestSprintMetrics_Rollup(t *testing.T) {
	start := day0
	members := []sprint.Member{
		frozenMember("a", "dev-1", "Done", 5),
		frozenMember("b", "dev-1", "Blocked", 3),
		frozenMember("c", "dev-2", "", 2),
		frozenMember("d", "dev-2", "In Progress", 1),
	}
	members[0].Item.DevStartAt = ptr(start)
	members[0].Item.DevCloseAt = ptr(start.Add(72 * time.Hour))
	members[1].Item.DevStartAt = ptr(start.Add(48 * time.Hour))
	members[1].Item.DevCloseAt = ptr(start)

	r := SprintMetrics("s1", members, now)
	assert.Equal(t, 4, r.TotalTickets)
	assert.Equal(t, 1, r.CompletedTickets)
	assert.Equal(t, 3, r.PendingTickets)
	assert.Equal(t, 1, r.Impediments)
	assert.Equal(t, 11.0, r.TotalStoryPoints)
	assert.Equal(t, 5.0, r.CompletedStoryPoints)
	assert.Equal(t, 6.0, r.CarryoverStoryPoints)
	assert.Equal(t, 25.0, r.CompletionPercentage)
	assert.InDelta(t, 3.0, r.AvgLeadTimeDays, 1e-9)
	assert.Equal(t, 1, r.StatusCounts[domain.StatusDone])
	assert.Equal(t, 1, r.StatusCounts[domain.StatusBlocked])
	assert.Equal(t, 1, r.StatusCounts[domain.StatusQA])
	assert.Equal(t, 1, r.StatusCounts[domain.StatusInProgress])
	assert.Equal(t, 0, r.StatusCounts[domain.StatusToDo])
}

func TestSprintMetrics_Empty(t *testing.T) {
	r := SprintMetrics("s1", nil, now)
	assert.Zero(t, r.CompletionPercentage)
	assert.Len(t, r.StatusCounts, 6)
}

func TestSprintMetrics_ClosedSprintIgnoresLiveDrift(t *testing.T) {
	members := []sprint.Member{frozenMember("a", "dev-1", "Done", 5), frozenMember("b", "dev-1", "QA", 3)}
	first := SprintMetrics("s1", members, now)

	members[0].Item.CurrentStatus = "Reopened"
	members[0].Item.CurrentStoryPoints = 40
	members[1].Item.CurrentStatus = "Done"
	second := SprintMetrics("s1", members, now.Add(48*time.Hour))

	assert.Equal(t, first.StatusCounts, second.StatusCounts)
	assert.Equal(t, first.TotalStoryPoints, second.TotalStoryPoints)
	assert.Equal(t, first.CompletedStoryPoints, second.CompletedStoryPoints)
	assert.Equal(t, first.CompletedTickets, second.CompletedTickets)
	assert.NotEqual(t, first.CalculatedAt, second.CalculatedAt)
}

func TestInitialStoryPoints(t *testing.T) {
	start := day0
	after := day0.Add(time.Hour)
	before := day0.Add(-time.Hour)

	withStart := sprint.Member{Item: domain.WorkItem{CurrentStoryPoints: 8, CreatedAt: &after}, Link: &domain.SprintMembership{StoryPointsAtStart: ptr(2.0)}}
	assert.Equal(t, 2.0, InitialStoryPoints(withStart, &start))

	createdAfter := sprint.Member{Item: domain.WorkItem{CurrentStoryPoints: 8, CreatedAt: &after}}
	assert.Equal(t, 0.0, InitialStoryPoints(createdAfter, &start))

	legacy := sprint.Member{Item: domain.WorkItem{CurrentStoryPoints: 8, CreatedAt: &before}}
	assert.Equal(t, 8.0, InitialStoryPoints(legacy, &start))
}

func TestDeveloperMetrics(t *testing.T) {
	w, _ := closedSprint()
	before := day0.Add(-24 * time.Hour)
	mk := func(id, dev, status string, current float64, atStart *float64, initiative string) sprint.Member {
		m := frozenMember(id, dev, status, current)
		m.Item.CurrentStoryPoints = current
		m.Item.CreatedAt = &before
		m.Item.InitiativeID = initiative
		m.Link.StoryPointsAtStart = atStart
		return m
	}
	members := []sprint.Member{
		mk("a", "dev-1", "Done", 5, ptr(3.0), "init-1"),
		mk("b", "dev-1", "In Progress", 4, nil, "init-2"),
		mk("c", "", "To Do", 2, nil, "init-1"),
	}
	members[0].Item.DevStartAt = ptr(day0)
	members[0].Item.DevCloseAt = ptr(day0.Add(24 * time.Hour))

	got := DeveloperMetrics(w, members, 17, now)
	require.Len(t, got, 2)

	dev := got[0]
	assert.Equal(t, "dev-1", dev.DeveloperID)
	assert.Equal(t, 7.0, dev.Workload)
	assert.Equal(t, 5.0, dev.Velocity)
	assert.Equal(t, 2.0, dev.Carryover)
	assert.Equal(t, 2, dev.Tickets)
	assert.InDelta(t, 1.0, dev.AvgLeadTimeDays, 1e-9)
	assert.Equal(t, 1, dev.StatusCounts[domain.StatusDone])
	assert.Equal(t, 1, dev.StatusCounts[domain.StatusInProgress])
	require.Len(t, dev.Allocations, 2)
	assert.Equal(t, "init-1", dev.Allocations[0].InitiativeID)
	assert.Equal(t, 18, dev.Allocations[0].Percentage)
	assert.Equal(t, "init-2", dev.Allocations[1].InitiativeID)
	assert.Equal(t, 24, dev.Allocations[1].Percentage)
	assert.Equal(t, "sq-a", dev.Allocations[0].SquadID)

	assert.Equal(t, domain.Unassigned, got[1].DeveloperID)
	assert.Equal(t, 2.0, got[1].Carryover)
}

func TestAllocation_CrossSquadOvercountIsReproduced(t *testing.T) {
	a := Allocation("squad-a", "init-1", "dev-1", 10, 17)
	b := Allocation("squad-b", "init-1", "dev-1", 10, 17)
	assert.Equal(t, 59, a.Percentage)
	assert.Equal(t, 59, b.Percentage)
	// Consumers sum without normalizing; 118% is the documented result.
	assert.Equal(t, 118, NaiveTotal([]domain.DeveloperAllocationRecord{a, b})["dev-1"])
}

func TestAllocation_ZeroCapacity(t *testing.T) {
	assert.Equal(t, 0, Allocation("s", "i", "d", 10, 0).Percentage)
}
