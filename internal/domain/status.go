/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import "strings"

type NormalizedStatus string

const (
	StatusToDo       NormalizedStatus = "ToDo"
	StatusReopen     NormalizedStatus = "Reopen"
	StatusInProgress NormalizedStatus = "InProgress"
	StatusQA         NormalizedStatus = "QA"
	StatusBlocked    NormalizedStatus = "Blocked"
	StatusDone       NormalizedStatus = "Done"
)

// AllStatuses lists the canonical states in display order.
var AllStatuses = []NormalizedStatus{StatusToDo, StatusReopen, StatusInProgress, StatusQA, StatusBlocked, StatusDone}

// NormalizeStatus maps any provider status text to one canonical state.
// Rules are checked in order; anything unmatched, empty included, lands in QA
// so historical rollups keep the same numbers.
func NormalizeStatus(raw string) NormalizedStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "done", "development done", "resolved", "closed", "finished":
		return StatusDone
	case "blocked", "impediment":
		return StatusBlocked
	}
	switch {
	case strings.Contains(s, "in progress") || strings.Contains(s, "in development") ||
		strings.Contains(s, "doing") || strings.Contains(s, "desarrollo"):
		return StatusInProgress
	case strings.Contains(s, "reopen"):
		return StatusReopen
	case strings.Contains(s, "qa") || strings.Contains(s, "test") || strings.Contains(s, "review") ||
		strings.Contains(s, "staging") || strings.Contains(s, "compliance check"):
		return StatusQA
	case s == "to do" || s == "backlog" || strings.Contains(s, "pendiente"):
		return StatusToDo
	default:
		return StatusQA
	}
}

// IsDone reports whether raw normalizes to Done.
func IsDone(raw string) bool { return NormalizeStatus(raw) == StatusDone }

// NewStatusCounts returns a histogram with every bucket present.
func NewStatusCounts() StatusCounts {
	out := make(StatusCounts, len(AllStatuses))
	for _, st := range AllStatuses {
		out[st] = 0
	}
	return out
}
