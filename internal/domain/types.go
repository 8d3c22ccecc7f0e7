/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import "time"

// Field names understood by the change log.
const (
	FieldStatus   = "status"
	FieldAssignee = "assignee"
)

// WorkItem is the live view of a ticket as last written by ingestion.
type WorkItem struct {
	ID                 string
	Key                string
	CurrentStatus      string
	CurrentStoryPoints float64
	CurrentAssigneeID  string
	CurrentSprintLabel string
	InitiativeID       string
	SquadID            string
	CreatedAt          *time.Time
	DevStartAt         *time.Time
	DevCloseAt         *time.Time
	ResolvedAt         *time.Time
}

// FieldChangeRecord is one entry of the append-only audit trail.
type FieldChangeRecord struct {
	ItemID    string
	FieldName string
	FromValue string
	ToValue   string
	ChangedAt time.Time
}

type SprintState string

const (
	SprintActive SprintState = "active"
	SprintClosed SprintState = "closed"
)

type SprintWindow struct {
	ID           string
	Name         string
	SquadID      string
	StartDate    *time.Time
	EndDate      *time.Time
	CompleteDate *time.Time
	State        SprintState
}

// SprintMembership links an item to a sprint. The frozen fields are only
// written when the sprint closes and never change afterwards.
type SprintMembership struct {
	ItemID             string
	SprintID           string
	StatusAtClose      *string
	StoryPointsAtClose *float64
	StoryPointsAtStart *float64
}

// ItemFilter narrows fetchWorkItems. Empty fields do not filter.
type ItemFilter struct {
	IDs        []string
	SquadID    string
	AssigneeID string
}

// TimeWindow bounds a history read. Nil ends are open.
type TimeWindow struct {
	From *time.Time
	To   *time.Time
}

// DayPoint is one row of a burndown.
type DayPoint struct {
	Date             time.Time `json:"date"`
	Planned          float64   `json:"planned"`
	Completed        float64   `json:"completed"`
	Remaining        float64   `json:"remaining"`
	Tickets          int       `json:"tickets"`
	CompletedTickets int       `json:"completedTickets"`
}

type BurndownResult struct {
	SprintID       string     `json:"sprintId"`
	DeveloperID    string     `json:"developerId"`
	Days           []DayPoint `json:"days"`
	TotalPlanned   float64    `json:"totalPlanned"`
	TotalCompleted float64    `json:"totalCompleted"`
	TotalTickets   int        `json:"totalTickets"`
	DataSource     string     `json:"dataSource"`
}

// Data sources reported on a burndown.
const (
	DataSourceSnapshot = "snapshot"
	DataSourceLive     = "live"
)

// StatusCounts is the 6-way histogram keyed by normalized status.
type StatusCounts map[NormalizedStatus]int

type SprintRollup struct {
	SprintID             string       `json:"sprintId"`
	CalculatedAt         time.Time    `json:"calculatedAt"`
	TotalTickets         int          `json:"totalTickets"`
	CompletedTickets     int          `json:"completedTickets"`
	PendingTickets       int          `json:"pendingTickets"`
	Impediments          int          `json:"impediments"`
	TotalStoryPoints     float64      `json:"totalStoryPoints"`
	CompletedStoryPoints float64      `json:"completedStoryPoints"`
	CarryoverStoryPoints float64      `json:"carryoverStoryPoints"`
	CompletionPercentage float64      `json:"completionPercentage"`
	AvgLeadTimeDays      float64      `json:"avgLeadTimeDays"`
	StatusCounts         StatusCounts `json:"statusCounts"`
}

type DeveloperRollup struct {
	DeveloperID     string                      `json:"developerId"`
	SprintID        string                      `json:"sprintId"`
	CalculatedAt    time.Time                   `json:"calculatedAt"`
	Workload        float64                     `json:"workload"`
	Velocity        float64                     `json:"velocity"`
	Carryover       float64                     `json:"carryover"`
	Tickets         int                         `json:"tickets"`
	AvgLeadTimeDays float64                     `json:"avgLeadTimeDays"`
	StatusCounts    StatusCounts                `json:"statusCounts"`
	Allocations     []DeveloperAllocationRecord `json:"allocations"`
}

// Unassigned is the developer bucket for items without an assignee.
const Unassigned = "unassigned"

// DeveloperAllocationRecord is derived, never stored on its own.
type DeveloperAllocationRecord struct {
	SquadID          string  `json:"squadId"`
	InitiativeID     string  `json:"initiativeId"`
	DeveloperID      string  `json:"developerId"`
	TotalStoryPoints float64 `json:"totalStoryPoints"`
	Percentage       int     `json:"percentage"`
}
