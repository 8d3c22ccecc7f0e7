/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/repo"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/sprint"
	"github.com/google/uuid"
)

// RunStore records recompute passes.
type RunStore interface {
	StartJobRun(ctx context.Context, runID uuid.UUID, startedAt time.Time, squad string) (int64, error)
	FinishJobRun(ctx context.Context, id int64, processed, failed int, success bool, errStr string) error
	GetLastRun(ctx context.Context) (*repo.LastRun, error)
}

// SprintFailure is one sprint skipped during a pass.
type SprintFailure struct {
	SprintID string `json:"sprintId"`
	Reason   string `json:"reason"`
	Error    string `json:"error"`
}

// Run is the context of one recompute pass. It is created per invocation
// and handed back to the caller; nothing about it outlives the call.
type Run struct {
	ID         uuid.UUID       `json:"id"`
	Squad      string          `json:"squad"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Processed  int             `json:"processed"`
	Rollups    int             `json:"rollups"`
	Failures   []SprintFailure `json:"failures"`
}

func (r *Run) fail(sprintID string, err error) {
	r.Failures = append(r.Failures, SprintFailure{SprintID: sprintID, Reason: failureReason(err), Error: err.Error()})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSprintWindow):
		return "invalid_window"
	case errors.Is(err, domain.ErrSprintNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDataSourceUnavailable):
		return "data_source"
	default:
		return "other"
	}
}

// RecomputeAll recomputes sprint and developer rollups for every sprint,
// optionally one squad's, one sprint at a time. A failing sprint is recorded
// on the run and the loop moves on; nothing is rolled back.
func (s *Service) RecomputeAll(ctx context.Context, squadID string) (*Run, error) {
	run := &Run{ID: uuid.New(), Squad: squadID, StartedAt: s.now()}
	log := s.log.With().Str("run", run.ID.String()).Logger()

	var jobID int64
	if s.runs != nil {
		id, err := s.runs.StartJobRun(ctx, run.ID, run.StartedAt, squadID)
		if err != nil {
			log.Error().Err(err).Msg("start job run failed")
		}
		jobID = id
	}

	sprints, err := s.store.ListSprints(ctx, squadID)
	if err != nil {
		run.FinishedAt = s.now()
		s.finish(ctx, jobID, run, err)
		return run, err
	}
	log.Info().Int("sprints", len(sprints)).Str("squad", squadID).Msg("recompute: start")

	for _, w := range sprints {
		if w.StartDate == nil {
			err := fmt.Errorf("%w: sprint %s has no start date", domain.ErrInvalidSprintWindow, w.ID)
			log.Warn().Str("sprint", w.ID).Msg("recompute: skipping sprint without start date")
			run.fail(w.ID, err)
			s.tm.SprintFailed(failureReason(err))
			continue
		}
		// One read phase feeds both aggregators so their rollups share membership and calculatedAt.
		l, err := s.load(ctx, w.ID, sprint.Scope{})
		if err != nil {
			log.Error().Err(err).Str("sprint", w.ID).Msg("recompute: load failed")
			run.fail(w.ID, err)
			s.tm.SprintFailed(failureReason(err))
			continue
		}
		if _, err := s.saveSprintRollup(ctx, l); err != nil {
			log.Error().Err(err).Str("sprint", w.ID).Msg("recompute: sprint metrics failed")
			run.fail(w.ID, err)
			s.tm.SprintFailed(failureReason(err))
			continue
		}
		devs, err := s.saveDeveloperRollups(ctx, l)
		if err != nil {
			log.Error().Err(err).Str("sprint", w.ID).Msg("recompute: developer metrics failed")
			run.fail(w.ID, err)
			s.tm.SprintFailed(failureReason(err))
			continue
		}
		run.Processed++
		run.Rollups += 1 + len(devs)
	}
	run.FinishedAt = s.now()
	s.tm.RunCompleted(run.FinishedAt.Sub(run.StartedAt))
	log.Info().Int("processed", run.Processed).Int("failed", len(run.Failures)).
		Dur("took", run.FinishedAt.Sub(run.StartedAt)).Msg("recompute: done")
	s.finish(ctx, jobID, run, nil)
	s.notify(ctx, run)
	return run, nil
}

func (s *Service) finish(ctx context.Context, jobID int64, run *Run, fatal error) {
	if s.runs == nil || jobID == 0 {
		return
	}
	errStr := ""
	switch {
	case fatal != nil:
		errStr = fatal.Error()
	case len(run.Failures) > 0:
		ids := make([]string, 0, len(run.Failures))
		for _, f := range run.Failures {
			ids = append(ids, f.SprintID+":"+f.Reason)
		}
		errStr = strings.Join(ids, ",")
	}
	if err := s.runs.FinishJobRun(ctx, jobID, run.Processed, len(run.Failures), fatal == nil && len(run.Failures) == 0, errStr); err != nil {
		s.log.Error().Err(err).Str("run", run.ID.String()).Msg("finish job run failed")
	}
}

// Summary renders a short plain-text report of a run.
func (r *Run) Summary() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Delivery metrics recompute %s\n", r.ID.String()[:8])
	if r.Squad != "" {
		fmt.Fprintf(b, "Squad: %s\n", r.Squad)
	}
	fmt.Fprintf(b, "Sprints processed: %d\nRollups written: %d\nFailures: %d\n", r.Processed, r.Rollups, len(r.Failures))
	for i, f := range r.Failures {
		if i == 5 {
			fmt.Fprintf(b, "... and %d more\n", len(r.Failures)-5)
			break
		}
		fmt.Fprintf(b, "- %s (%s)\n", f.SprintID, f.Reason)
	}
	fmt.Fprintf(b, "Took: %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	return b.String()
}

func (s *Service) notify(ctx context.Context, run *Run) {
	if s.tg == nil {
		return
	}
	text := run.Summary()
	for _, chat := range s.cfg.TelegramChatIDs {
		if err := s.tg.SendMessage(ctx, chat, text); err != nil {
			s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
		}
	}
}

func (s *Service) GetLastRun(ctx context.Context) (any, error) {
	if s.runs == nil {
		return nil, errors.New("run history not configured")
	}
	return s.runs.GetLastRun(ctx)
}
