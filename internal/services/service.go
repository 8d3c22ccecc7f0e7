/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/config"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/history"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/metrics"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/sprint"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/telemetry"
	"github.com/rs/zerolog"
)

// Store is the persisted read side plus the rollup upsert contract.
type Store interface {
	sprint.Source
	history.Source
	FetchSprintWindow(ctx context.Context, sprintID string) (domain.SprintWindow, error)
	ListSprints(ctx context.Context, squadID string) ([]domain.SprintWindow, error)
	SaveSprintRollup(ctx context.Context, r domain.SprintRollup) error
	SaveDeveloperRollups(ctx context.Context, rs []domain.DeveloperRollup) error
	ListSprintRollups(ctx context.Context, sprintID string) ([]domain.SprintRollup, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Service struct {
	cfg      config.Config
	log      zerolog.Logger
	store    Store
	runs     RunStore
	members  *sprint.Resolver
	hist     *history.Reader
	tm       *telemetry.Metrics
	tg       Notifier
	loc      *time.Location
	capacity float64
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithTelemetry(m *telemetry.Metrics) Option { return func(s *Service) { s.tm = m } }
func WithNotifier(n Notifier) Option          { return func(s *Service) { s.tg = n } }
func WithRunStore(r RunStore) Option          { return func(s *Service) { s.runs = r } }

func New(cfg config.Config, log zerolog.Logger, store Store, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		log:      log,
		store:    store,
		members:  sprint.NewResolver(store, log),
		hist:     history.NewReader(store, log),
		loc:      cfg.Location(),
		capacity: cfg.SprintCapacitySP,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.capacity <= 0 {
		s.capacity = metrics.DefaultSprintCapacitySP
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// BurndownOptions restrict the candidate items of a burndown.
type BurndownOptions struct {
	SquadID      string
	InitiativeID string
}

type loaded struct {
	window  domain.SprintWindow
	class   sprint.Classification
	members []sprint.Member
	now     time.Time
}

// load runs the read phases shared by every aggregator: window, classification, membership.
func (s *Service) load(ctx context.Context, sprintID string, scope sprint.Scope) (loaded, error) {
	now := s.now()
	w, err := s.store.FetchSprintWindow(ctx, sprintID)
	if err != nil {
		return loaded{}, err
	}
	cls, err := sprint.Classify(w, now)
	if err != nil {
		return loaded{}, err
	}
	members, err := s.members.Resolve(ctx, w, cls, scope)
	if err != nil {
		return loaded{}, err
	}
	return loaded{window: w, class: cls, members: members, now: now}, nil
}

// ComputeBurndown builds the per-day series for one developer.
func (s *Service) ComputeBurndown(ctx context.Context, sprintID, developerID string, opts BurndownOptions) (domain.BurndownResult, error) {
	l, err := s.load(ctx, sprintID, sprint.Scope{SquadID: opts.SquadID, InitiativeID: opts.InitiativeID})
	if err != nil {
		return domain.BurndownResult{}, err
	}
	in := metrics.BurndownInput{
		Window:      l.window,
		Class:       l.class,
		DeveloperID: developerID,
		Members:     l.members,
		Now:         l.now,
		Location:    s.loc,
	}
	if len(l.members) > 0 {
		ids := make([]string, 0, len(l.members))
		for _, m := range l.members {
			ids = append(ids, m.Item.ID)
		}
		// Full histories: trimming to the window would change what resolves before the first record.
		if in.StatusHistory, err = s.hist.Load(ctx, ids, domain.FieldStatus, nil); err != nil {
			return domain.BurndownResult{}, err
		}
		if in.AssigneeHistory, err = s.hist.Load(ctx, ids, domain.FieldAssignee, nil); err != nil {
			return domain.BurndownResult{}, err
		}
	}
	res := metrics.Burndown(in)
	s.log.Debug().Str("sprint", sprintID).Str("developer", developerID).Int("items", len(l.members)).
		Int("days", len(res.Days)).Str("source", res.DataSource).Msg("burndown computed")
	return res, nil
}

// ComputeSprintMetrics computes and appends one sprint rollup.
func (s *Service) ComputeSprintMetrics(ctx context.Context, sprintID string) (domain.SprintRollup, error) {
	l, err := s.load(ctx, sprintID, sprint.Scope{})
	if err != nil {
		return domain.SprintRollup{}, err
	}
	return s.saveSprintRollup(ctx, l)
}

// ComputeDeveloperMetrics computes and appends one rollup per developer.
func (s *Service) ComputeDeveloperMetrics(ctx context.Context, sprintID string) ([]domain.DeveloperRollup, error) {
	l, err := s.load(ctx, sprintID, sprint.Scope{})
	if err != nil {
		return nil, err
	}
	return s.saveDeveloperRollups(ctx, l)
}

func (s *Service) saveSprintRollup(ctx context.Context, l loaded) (domain.SprintRollup, error) {
	r := metrics.SprintMetrics(l.window.ID, l.members, l.now)
	if err := s.store.SaveSprintRollup(ctx, r); err != nil {
		return domain.SprintRollup{}, err
	}
	s.tm.RollupsWritten("sprint", 1)
	return r, nil
}

func (s *Service) saveDeveloperRollups(ctx context.Context, l loaded) ([]domain.DeveloperRollup, error) {
	rs := metrics.DeveloperMetrics(l.window, l.members, s.capacity, l.now)
	if err := s.store.SaveDeveloperRollups(ctx, rs); err != nil {
		return nil, err
	}
	s.tm.RollupsWritten("developer", len(rs))
	return rs, nil
}

// SprintHistory returns every stored rollup of a sprint, oldest first.
func (s *Service) SprintHistory(ctx context.Context, sprintID string) ([]domain.SprintRollup, error) {
	return s.store.ListSprintRollups(ctx, sprintID)
}

// Capacity is the sprint capacity used for allocation percentages.
func (s *Service) Capacity() float64 { return s.capacity }
