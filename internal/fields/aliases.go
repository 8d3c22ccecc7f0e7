/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package fields

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"gopkg.in/yaml.v3"
)

// Semantic names a field independent of how a provider spells it.
type Semantic string

const (
	Status      Semantic = "status"
	Assignee    Semantic = "assignee"
	StoryPoints Semantic = "story_points"
	SprintLabel Semantic = "sprint"
	Squad       Semantic = "squad"
	Initiative  Semantic = "initiative"
	CreatedAt   Semantic = "created_at"
	DevStart    Semantic = "dev_start"
	DevClose    Semantic = "dev_close"
	Resolved    Semantic = "resolved"
)

// Aliases holds the ordered candidate property names per semantic field.
// Earlier names win.
type Aliases map[Semantic][]string

func DefaultAliases() Aliases {
	return Aliases{
		Status:      {"Status", "Estado", "status"},
		Assignee:    {"Assignee", "Asignado", "Owner", "Developer", "assignee"},
		StoryPoints: {"Story Points", "Story points", "SP", "Points", "Estimate", "customfield_10016"},
		SprintLabel: {"Sprint", "Current Sprint", "Sprint actual", "customfield_10020"},
		Squad:       {"Squad", "Team", "Equipo"},
		Initiative:  {"Initiative", "Iniciativa", "Epic", "Epic Link"},
		CreatedAt:   {"Created", "Created time", "created"},
		DevStart:    {"Dev Start", "Development Start", "Start Date", "Fecha inicio"},
		DevClose:    {"Dev Close", "Development Done", "Dev End", "Fecha fin"},
		Resolved:    {"Resolved", "Resolution Date", "resolutiondate"},
	}
}

// LoadAliases reads a YAML (or JSON) file of semantic field -> names and
// puts those names ahead of the defaults.
func LoadAliases(path string) (Aliases, error) {
	out := DefaultAliases()
	if strings.TrimSpace(path) == "" {
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	var extra map[Semantic][]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return out, fmt.Errorf("fields: parse %s: %w", path, err)
	}
	for k, names := range extra {
		merged := make([]string, 0, len(names)+len(out[k]))
		seen := map[string]struct{}{}
		for _, n := range append(names, out[k]...) {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			merged = append(merged, n)
		}
		out[k] = merged
	}
	return out, nil
}

// Lookup returns the first non-empty value among the field's candidates.
// An exact name match is tried before a case-insensitive one.
func (a Aliases) Lookup(props Properties, field Semantic) (Value, bool) {
	for _, name := range a[field] {
		p, ok := props[name]
		if !ok {
			p, ok = foldLookup(props, name)
		}
		if !ok {
			continue
		}
		v, err := Extract(p)
		if err != nil || v.Empty() {
			continue
		}
		return v, true
	}
	return Value{}, false
}

func foldLookup(props Properties, name string) (Property, bool) {
	for k, p := range props {
		if strings.EqualFold(k, name) {
			return p, true
		}
	}
	return Property{}, false
}

// Fill completes empty live fields of it from the provider payload. Typed
// columns already set are left alone.
func (a Aliases) Fill(it *domain.WorkItem, props Properties) {
	if len(props) == 0 {
		return
	}
	text := func(dst *string, f Semantic) {
		if *dst != "" {
			return
		}
		if v, ok := a.Lookup(props, f); ok {
			*dst = v.Text
		}
	}
	when := func(dst **time.Time, f Semantic) {
		if *dst != nil {
			return
		}
		if v, ok := a.Lookup(props, f); ok && v.Time != nil {
			*dst = v.Time
		}
	}
	text(&it.CurrentStatus, Status)
	text(&it.CurrentAssigneeID, Assignee)
	text(&it.CurrentSprintLabel, SprintLabel)
	text(&it.SquadID, Squad)
	text(&it.InitiativeID, Initiative)
	if it.CurrentStoryPoints == 0 {
		if v, ok := a.Lookup(props, StoryPoints); ok && v.Number != nil {
			it.CurrentStoryPoints = *v.Number
		}
	}
	when(&it.CreatedAt, CreatedAt)
	when(&it.DevStartAt, DevStart)
	when(&it.DevCloseAt, DevClose)
	when(&it.ResolvedAt, Resolved)
}
