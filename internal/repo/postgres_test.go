package repo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/config"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/fields"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestRepo connects to TEST_DB_DSN and resets the schema. Tests skip
// when it is unset.
func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	db := MustOpen(ctx, config.Config{DBDSN: dsn}, zerolog.Nop())
	t.Cleanup(db.Close)
	_, err := db.Pool.Exec(ctx, `DROP TABLE IF EXISTS field_changes, sprint_items, sprint_metrics,
		developer_sprint_metrics, job_runs, sprints, work_items CASCADE`)
	require.NoError(t, err)
	r := NewRepository(db, zerolog.Nop(), fields.DefaultAliases())
	require.NoError(t, r.Migrate(ctx))
	require.NoError(t, r.Migrate(ctx), "migrate is idempotent")
	return r
}

func TestRepository_ReadSide(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	start := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)

	_, err := r.db.Pool.Exec(ctx, `INSERT INTO work_items(id, key, status, story_points, assignee_id, sprint_label, squad_id, properties)
		VALUES ('i1','DD-1','Done',5,'dev-1','Sprint 1','sq', NULL),
		       ('i2','DD-2',NULL,NULL,NULL,NULL,'sq', '{"Estado":{"type":"status","status":{"name":"En progreso"}},"Story Points":{"type":"number","number":3}}')`)
	require.NoError(t, err)
	_, err = r.db.Pool.Exec(ctx, `INSERT INTO field_changes(item_id, field, from_val, to_val, changed_at) VALUES
		('i1','status','To Do','In Progress',$1),
		('i1','status','In Progress','Done',$2),
		('i1','assignee','','dev-1',$1)`, start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	_, err = r.db.Pool.Exec(ctx, `INSERT INTO sprints(id, name, squad_id, start_date, end_date, state) VALUES
		('s1','Sprint 1','sq',$1,$2,'closed'), ('s0','No start','sq',NULL,NULL,'active')`, start, start.AddDate(0, 0, 14))
	require.NoError(t, err)
	_, err = r.db.Pool.Exec(ctx, `INSERT INTO sprint_items(sprint_id, item_id, status_at_close, story_points_at_close) VALUES ('s1','i1','Done',5)`)
	require.NoError(t, err)

	items, err := r.FetchWorkItems(ctx, domain.ItemFilter{SquadID: "sq"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "En progreso", items[1].CurrentStatus, "filled from provider properties")
	assert.Equal(t, 3.0, items[1].CurrentStoryPoints)

	byLabel, err := r.FetchActiveItemsBySprintLabel(ctx, "sq", " sprint 1 ")
	require.NoError(t, err)
	require.Len(t, byLabel, 1)

	hist, err := r.FetchFieldHistory(ctx, []string{"i1", "i2"}, domain.FieldStatus, nil)
	require.NoError(t, err)
	require.Len(t, hist["i1"], 2)
	assert.Equal(t, "Done", hist["i1"][1].ToValue)

	w, err := r.FetchSprintWindow(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SprintClosed, w.State)
	require.NotNil(t, w.StartDate)

	_, err = r.FetchSprintWindow(ctx, "nope")
	assert.True(t, errors.Is(err, domain.ErrSprintNotFound))

	sprints, err := r.ListSprints(ctx, "sq")
	require.NoError(t, err)
	require.Len(t, sprints, 2)
	assert.Equal(t, "s1", sprints[0].ID, "sprints without a start date sort last")

	links, err := r.FetchSprintMembership(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.NotNil(t, links[0].StatusAtClose)
	assert.Equal(t, "Done", *links[0].StatusAtClose)
	assert.Nil(t, links[0].StoryPointsAtStart)
}

func TestRepository_Rollups(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	roll := domain.SprintRollup{SprintID: "s1", CalculatedAt: at, TotalTickets: 4, CompletedTickets: 1, StatusCounts: domain.NewStatusCounts()}
	roll.StatusCounts[domain.StatusDone] = 1
	require.NoError(t, r.SaveSprintRollup(ctx, roll))
	roll.TotalTickets = 5
	require.NoError(t, r.SaveSprintRollup(ctx, roll), "same calculatedAt upserts")
	roll.CalculatedAt = at.Add(time.Hour)
	require.NoError(t, r.SaveSprintRollup(ctx, roll))

	got, err := r.ListSprintRollups(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].TotalTickets)
	assert.Equal(t, 1, got[1].StatusCounts[domain.StatusDone])

	devs := []domain.DeveloperRollup{
		{DeveloperID: "dev-1", SprintID: "s1", CalculatedAt: at, StatusCounts: domain.NewStatusCounts()},
		{DeveloperID: "dev-2", SprintID: "s1", CalculatedAt: at, StatusCounts: domain.NewStatusCounts()},
	}
	require.NoError(t, r.SaveDeveloperRollups(ctx, devs))
	require.NoError(t, r.SaveDeveloperRollups(ctx, nil))
}

func TestRepository_JobRunsAndLock(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	last, err := r.GetLastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	runID := uuid.New()
	id, err := r.StartJobRun(ctx, runID, time.Now().UTC(), "sq")
	require.NoError(t, err)
	require.NoError(t, r.FinishJobRun(ctx, id, 3, 1, false, "s0:invalid_window"))

	last, err = r.GetLastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, runID, last.RunID)
	assert.Equal(t, 3, last.SprintsProcessed)
	assert.False(t, last.Success)
	assert.NotNil(t, last.FinishedAt)

	ok, err := r.TryAdvisoryLock(ctx, 99)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, r.AdvisoryUnlock(ctx, 99))
}
