/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package sprint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/rs/zerolog"
)

// Source is the subset of the store the membership rules read.
type Source interface {
	FetchWorkItems(ctx context.Context, filter domain.ItemFilter) ([]domain.WorkItem, error)
	FetchSprintMembership(ctx context.Context, sprintID string) ([]domain.SprintMembership, error)
	FetchActiveItemsBySprintLabel(ctx context.Context, squadID, label string) ([]domain.WorkItem, error)
}

// Scope optionally restricts candidates before matching.
type Scope struct {
	SquadID      string
	InitiativeID string
}

func (s Scope) accepts(it domain.WorkItem) bool {
	if s.SquadID != "" && it.SquadID != s.SquadID {
		return false
	}
	if s.InitiativeID != "" && it.InitiativeID != s.InitiativeID {
		return false
	}
	return true
}

// Member is one work item in a sprint. Link is nil for items inferred from
// live data. Frozen marks closed-sprint rows whose close values are authoritative.
type Member struct {
	Item   domain.WorkItem
	Link   *domain.SprintMembership
	Frozen bool
}

// Status is the frozen close status for closed sprints, else the live one.
func (m Member) Status() string {
	if m.Frozen && m.Link != nil && m.Link.StatusAtClose != nil {
		return *m.Link.StatusAtClose
	}
	return m.Item.CurrentStatus
}

// StoryPoints is the frozen close value for closed sprints, else the live one.
func (m Member) StoryPoints() float64 {
	if m.Frozen && m.Link != nil && m.Link.StoryPointsAtClose != nil {
		return *m.Link.StoryPointsAtClose
	}
	return m.Item.CurrentStoryPoints
}

type Resolver struct {
	src Source
	log zerolog.Logger
}

func NewResolver(src Source, log zerolog.Logger) *Resolver { return &Resolver{src: src, log: log} }

// Resolve lists the sprint's members. Closed sprints use only the explicit
// membership rows; active sprints add items carrying the sprint label and
// items created inside the window.
func (r *Resolver) Resolve(ctx context.Context, w domain.SprintWindow, cls Classification, scope Scope) ([]Member, error) {
	links, err := r.src.FetchSprintMembership(ctx, w.ID)
	if err != nil {
		return nil, unavailable("sprint membership", err)
	}
	if cls.Closed {
		return r.closed(ctx, w, links, scope)
	}
	return r.active(ctx, w, links, scope)
}

func (r *Resolver) closed(ctx context.Context, w domain.SprintWindow, links []domain.SprintMembership, scope Scope) ([]Member, error) {
	if len(links) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ItemID)
	}
	items, err := r.src.FetchWorkItems(ctx, domain.ItemFilter{IDs: ids})
	if err != nil {
		return nil, unavailable("work items", err)
	}
	byID := make(map[string]domain.WorkItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]Member, 0, len(links))
	for i := range links {
		l := links[i]
		it, ok := byID[l.ItemID]
		if !ok {
			// Frozen values still count; live fields stay empty.
			r.log.Warn().Str("sprint", w.ID).Str("item", l.ItemID).Msg("membership: linked item missing from store")
			it = domain.WorkItem{ID: l.ItemID}
		}
		if !scope.accepts(it) {
			continue
		}
		out = append(out, Member{Item: it, Link: &l, Frozen: true})
	}
	return out, nil
}

func (r *Resolver) active(ctx context.Context, w domain.SprintWindow, links []domain.SprintMembership, scope Scope) ([]Member, error) {
	squad := scope.SquadID
	if squad == "" {
		squad = w.SquadID
	}
	linkByID := make(map[string]*domain.SprintMembership, len(links))
	var linked []domain.WorkItem
	if len(links) > 0 {
		ids := make([]string, 0, len(links))
		for i := range links {
			linkByID[links[i].ItemID] = &links[i]
			ids = append(ids, links[i].ItemID)
		}
		items, err := r.src.FetchWorkItems(ctx, domain.ItemFilter{IDs: ids})
		if err != nil {
			return nil, unavailable("work items", err)
		}
		linked = items
	}
	labelled, err := r.src.FetchActiveItemsBySprintLabel(ctx, squad, w.Name)
	if err != nil {
		return nil, unavailable("items by sprint label", err)
	}
	pool, err := r.src.FetchWorkItems(ctx, domain.ItemFilter{SquadID: squad})
	if err != nil {
		return nil, unavailable("work items", err)
	}

	seen := map[string]struct{}{}
	var out []Member
	add := func(it domain.WorkItem) {
		if _, dup := seen[it.ID]; dup || !scope.accepts(it) {
			return
		}
		seen[it.ID] = struct{}{}
		out = append(out, Member{Item: it, Link: linkByID[it.ID]})
	}
	for _, it := range linked {
		add(it)
	}
	for _, it := range labelled {
		if labelMatches(it.CurrentSprintLabel, w.Name) {
			add(it)
		}
	}
	for _, it := range pool {
		if labelMatches(it.CurrentSprintLabel, w.Name) || createdInside(it, w) {
			add(it)
		}
	}
	return out, nil
}

func labelMatches(label, name string) bool {
	label = strings.TrimSpace(label)
	return label != "" && strings.EqualFold(label, strings.TrimSpace(name))
}

func createdInside(it domain.WorkItem, w domain.SprintWindow) bool {
	if it.CreatedAt == nil || w.StartDate == nil {
		return false
	}
	if it.CreatedAt.Before(*w.StartDate) {
		return false
	}
	return w.EndDate == nil || !it.CreatedAt.After(*w.EndDate)
}

func unavailable(what string, err error) error {
	if errors.Is(err, domain.ErrDataSourceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDataSourceUnavailable, what, err)
}
