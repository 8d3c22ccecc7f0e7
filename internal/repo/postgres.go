/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/config"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/fields"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schemaSQL string

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
	db      *DB
	log     zerolog.Logger
	aliases fields.Aliases
}

func NewRepository(d *DB, log zerolog.Logger, aliases fields.Aliases) *Repository {
	if aliases == nil {
		aliases = fields.DefaultAliases()
	}
	return &Repository{db: d, log: log, aliases: aliases}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
	if !ok && err == nil {
		return errors.New("advisory unlock returned false")
	}
	return err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrDataSourceUnavailable, op, err)
}

const workItemCols = `id, COALESCE(key,''), COALESCE(status,''), COALESCE(story_points,0),
	COALESCE(assignee_id,''), COALESCE(sprint_label,''), COALESCE(initiative_id,''), COALESCE(squad_id,''),
	created_at, dev_start_at, dev_close_at, resolved_at, properties`

func (r *Repository) scanItems(rows pgx.Rows) ([]domain.WorkItem, error) {
	defer rows.Close()
	var out []domain.WorkItem
	for rows.Next() {
		var it domain.WorkItem
		var raw []byte
		if err := rows.Scan(&it.ID, &it.Key, &it.CurrentStatus, &it.CurrentStoryPoints,
			&it.CurrentAssigneeID, &it.CurrentSprintLabel, &it.InitiativeID, &it.SquadID,
			&it.CreatedAt, &it.DevStartAt, &it.DevCloseAt, &it.ResolvedAt, &raw); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			props, err := fields.Parse(raw)
			if err != nil {
				r.log.Warn().Err(err).Str("item", it.ID).Msg("repo: unreadable provider properties")
			} else {
				r.aliases.Fill(&it, props)
			}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// FetchWorkItems lists items matching every non-empty filter field.
func (r *Repository) FetchWorkItems(ctx context.Context, f domain.ItemFilter) ([]domain.WorkItem, error) {
	q := `SELECT ` + workItemCols + ` FROM work_items WHERE 1=1`
	var args []any
	if len(f.IDs) > 0 {
		args = append(args, f.IDs)
		q += fmt.Sprintf(" AND id = ANY($%d)", len(args))
	}
	if f.SquadID != "" {
		args = append(args, f.SquadID)
		q += fmt.Sprintf(" AND squad_id = $%d", len(args))
	}
	if f.AssigneeID != "" {
		args = append(args, f.AssigneeID)
		q += fmt.Sprintf(" AND assignee_id = $%d", len(args))
	}
	q += " ORDER BY id"
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, unavailable("fetch work items", err)
	}
	items, err := r.scanItems(rows)
	if err != nil {
		return nil, unavailable("scan work items", err)
	}
	return items, nil
}

// FetchActiveItemsBySprintLabel returns items whose live sprint label equals label.
func (r *Repository) FetchActiveItemsBySprintLabel(ctx context.Context, squadID, label string) ([]domain.WorkItem, error) {
	q := `SELECT ` + workItemCols + ` FROM work_items WHERE lower(trim(sprint_label)) = lower(trim($1))`
	args := []any{label}
	if squadID != "" {
		q += ` AND squad_id = $2`
		args = append(args, squadID)
	}
	rows, err := r.db.Pool.Query(ctx, q+" ORDER BY id", args...)
	if err != nil {
		return nil, unavailable("fetch items by sprint label", err)
	}
	items, err := r.scanItems(rows)
	if err != nil {
		return nil, unavailable("scan items by sprint label", err)
	}
	return items, nil
}

// FetchFieldHistory loads change records for one field, ascending per item.
func (r *Repository) FetchFieldHistory(ctx context.Context, itemIDs []string, fieldName string, window *domain.TimeWindow) (map[string][]domain.FieldChangeRecord, error) {
	out := make(map[string][]domain.FieldChangeRecord, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	q := `SELECT item_id, field, COALESCE(from_val,''), COALESCE(to_val,''), changed_at
		FROM field_changes WHERE item_id = ANY($1) AND lower(field) = lower($2)`
	args := []any{itemIDs, fieldName}
	if window != nil && window.From != nil {
		args = append(args, *window.From)
		q += fmt.Sprintf(" AND changed_at >= $%d", len(args))
	}
	if window != nil && window.To != nil {
		args = append(args, *window.To)
		q += fmt.Sprintf(" AND changed_at <= $%d", len(args))
	}
	q += " ORDER BY item_id, changed_at, id"
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, unavailable("fetch field history", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e domain.FieldChangeRecord
		if err := rows.Scan(&e.ItemID, &e.FieldName, &e.FromValue, &e.ToValue, &e.ChangedAt); err != nil {
			return nil, unavailable("scan field history", err)
		}
		e.FieldName = fieldName
		out[e.ItemID] = append(out[e.ItemID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read field history", err)
	}
	return out, nil
}

const sprintCols = `id, name, COALESCE(squad_id,''), start_date, end_date, complete_date, state`

func scanSprint(row pgx.Row) (domain.SprintWindow, error) {
	var w domain.SprintWindow
	var state string
	err := row.Scan(&w.ID, &w.Name, &w.SquadID, &w.StartDate, &w.EndDate, &w.CompleteDate, &state)
	w.State = domain.SprintState(state)
	return w, err
}

func (r *Repository) FetchSprintWindow(ctx context.Context, sprintID string) (domain.SprintWindow, error) {
	w, err := scanSprint(r.db.Pool.QueryRow(ctx, `SELECT `+sprintCols+` FROM sprints WHERE id=$1`, sprintID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SprintWindow{}, fmt.Errorf("%w: %s", domain.ErrSprintNotFound, sprintID)
	}
	if err != nil {
		return domain.SprintWindow{}, unavailable("fetch sprint", err)
	}
	return w, nil
}

// ListSprints returns sprints ordered by start date, optionally for one squad.
func (r *Repository) ListSprints(ctx context.Context, squadID string) ([]domain.SprintWindow, error) {
	q := `SELECT ` + sprintCols + ` FROM sprints`
	var args []any
	if squadID != "" {
		q += ` WHERE squad_id = $1`
		args = append(args, squadID)
	}
	rows, err := r.db.Pool.Query(ctx, q+` ORDER BY start_date NULLS LAST, id`, args...)
	if err != nil {
		return nil, unavailable("list sprints", err)
	}
	defer rows.Close()
	var out []domain.SprintWindow
	for rows.Next() {
		w, err := scanSprint(rows)
		if err != nil {
			return nil, unavailable("scan sprint", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read sprints", err)
	}
	return out, nil
}

func (r *Repository) FetchSprintMembership(ctx context.Context, sprintID string) ([]domain.SprintMembership, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT sprint_id, item_id, status_at_close, story_points_at_close, story_points_at_start
		FROM sprint_items WHERE sprint_id=$1 ORDER BY item_id`, sprintID)
	if err != nil {
		return nil, unavailable("fetch sprint membership", err)
	}
	defer rows.Close()
	var out []domain.SprintMembership
	for rows.Next() {
		var m domain.SprintMembership
		if err := rows.Scan(&m.SprintID, &m.ItemID, &m.StatusAtClose, &m.StoryPointsAtClose, &m.StoryPointsAtStart); err != nil {
			return nil, unavailable("scan sprint membership", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read sprint membership", err)
	}
	return out, nil
}

// SaveSprintRollup appends a rollup; re-saving the same calculatedAt replaces it.
func (r *Repository) SaveSprintRollup(ctx context.Context, s domain.SprintRollup) error {
	counts, err := json.Marshal(s.StatusCounts)
	if err != nil {
		return err
	}
	const q = `INSERT INTO sprint_metrics(sprint_id, calculated_at, total_tickets, completed_tickets, pending_tickets,
			impediments, total_story_points, completed_story_points, carryover_story_points,
			completion_percentage, avg_lead_time_days, status_counts)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (sprint_id, calculated_at) DO UPDATE SET
			total_tickets=EXCLUDED.total_tickets,
			completed_tickets=EXCLUDED.completed_tickets,
			pending_tickets=EXCLUDED.pending_tickets,
			impediments=EXCLUDED.impediments,
			total_story_points=EXCLUDED.total_story_points,
			completed_story_points=EXCLUDED.completed_story_points,
			carryover_story_points=EXCLUDED.carryover_story_points,
			completion_percentage=EXCLUDED.completion_percentage,
			avg_lead_time_days=EXCLUDED.avg_lead_time_days,
			status_counts=EXCLUDED.status_counts`
	_, err = r.db.Pool.Exec(ctx, q, s.SprintID, s.CalculatedAt, s.TotalTickets, s.CompletedTickets, s.PendingTickets,
		s.Impediments, s.TotalStoryPoints, s.CompletedStoryPoints, s.CarryoverStoryPoints,
		s.CompletionPercentage, s.AvgLeadTimeDays, string(counts))
	if err != nil {
		return unavailable("save sprint rollup", err)
	}
	return nil
}

func (r *Repository) SaveDeveloperRollups(ctx context.Context, rs []domain.DeveloperRollup) error {
	if len(rs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `INSERT INTO developer_sprint_metrics(developer_id, sprint_id, calculated_at, workload, velocity,
			carryover, tickets, avg_lead_time_days, status_counts, allocations)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (developer_id, sprint_id, calculated_at) DO UPDATE SET
			workload=EXCLUDED.workload,
			velocity=EXCLUDED.velocity,
			carryover=EXCLUDED.carryover,
			tickets=EXCLUDED.tickets,
			avg_lead_time_days=EXCLUDED.avg_lead_time_days,
			status_counts=EXCLUDED.status_counts,
			allocations=EXCLUDED.allocations`
	for _, d := range rs {
		counts, err := json.Marshal(d.StatusCounts)
		if err != nil {
			return err
		}
		allocs, err := json.Marshal(d.Allocations)
		if err != nil {
			return err
		}
		batch.Queue(q, d.DeveloperID, d.SprintID, d.CalculatedAt, d.Workload, d.Velocity,
			d.Carryover, d.Tickets, d.AvgLeadTimeDays, string(counts), string(allocs))
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rs {
		if _, err := br.Exec(); err != nil {
			return unavailable("save developer rollups", err)
		}
	}
	return nil
}

// ListSprintRollups returns the calculation history of a sprint, oldest first.
func (r *Repository) ListSprintRollups(ctx context.Context, sprintID string) ([]domain.SprintRollup, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT sprint_id, calculated_at, total_tickets, completed_tickets, pending_tickets,
			impediments, total_story_points, completed_story_points, carryover_story_points,
			completion_percentage, avg_lead_time_days, status_counts
		FROM sprint_metrics WHERE sprint_id=$1 ORDER BY calculated_at`, sprintID)
	if err != nil {
		return nil, unavailable("list sprint rollups", err)
	}
	defer rows.Close()
	var out []domain.SprintRollup
	for rows.Next() {
		var s domain.SprintRollup
		var counts []byte
		if err := rows.Scan(&s.SprintID, &s.CalculatedAt, &s.TotalTickets, &s.CompletedTickets, &s.PendingTickets,
			&s.Impediments, &s.TotalStoryPoints, &s.CompletedStoryPoints, &s.CarryoverStoryPoints,
			&s.CompletionPercentage, &s.AvgLeadTimeDays, &counts); err != nil {
			return nil, unavailable("scan sprint rollup", err)
		}
		if err := json.Unmarshal(counts, &s.StatusCounts); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read sprint rollups", err)
	}
	return out, nil
}

// Job runs
func (r *Repository) StartJobRun(ctx context.Context, runID uuid.UUID, startedAt time.Time, squad string) (int64, error) {
	const q = `INSERT INTO job_runs(run_id, started_at, squad, success) VALUES($1, $2, $3, false) RETURNING id`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, runID, startedAt, squad).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, processed, failed int, success bool, errStr string) error {
	const q = `UPDATE job_runs SET finished_at=now(), sprints_processed=$2, sprints_failed=$3, success=$4, error=$5 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, processed, failed, success, errStr)
	return err
}

type LastRun struct {
	RunID            uuid.UUID  `json:"run_id"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at"`
	Squad            string     `json:"squad"`
	SprintsProcessed int        `json:"sprints_processed"`
	SprintsFailed    int        `json:"sprints_failed"`
	Success          bool       `json:"success"`
	Error            string     `json:"error"`
}

// GetLastRun returns the newest job run, or nil before the first pass.
func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
	const q = `SELECT run_id, started_at, finished_at, coalesce(squad,''),
		coalesce(sprints_processed,0), coalesce(sprints_failed,0),
		coalesce(success,false), coalesce(error,'')
		FROM job_runs ORDER BY id DESC LIMIT 1`
	lr := &LastRun{}
	if err := r.db.Pool.QueryRow(ctx, q).Scan(&lr.RunID, &lr.StartedAt, &lr.FinishedAt, &lr.Squad,
		&lr.SprintsProcessed, &lr.SprintsFailed, &lr.Success, &lr.Error); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return lr, nil
}
