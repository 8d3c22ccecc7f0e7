package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]NormalizedStatus{
		"Done":                    StatusDone,
		"  DEVELOPMENT DONE ":     StatusDone,
		"Resolved":                StatusDone,
		"closed":                  StatusDone,
		"Finished":                StatusDone,
		"Blocked":                 StatusBlocked,
		"impediment":              StatusBlocked,
		"IN PROGRESS":             StatusInProgress,
		"In Development":          StatusInProgress,
		"Doing":                   StatusInProgress,
		"En desarrollo":           StatusInProgress,
		"Reopened":                StatusReopen,
		"QA Review":               StatusQA,
		"Ready for testing":       StatusQA,
		"Code Review":             StatusQA,
		"Staging":                 StatusQA,
		"Compliance Check":        StatusQA,
		"To Do":                   StatusToDo,
		"Backlog":                 StatusToDo,
		"Pendiente de revisión":   StatusToDo,
		"pendiente":               StatusToDo,
		"":                        StatusQA,
		"Unknown Provider String": StatusQA,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeStatus(in), "input %q", in)
	}
}

func TestNormalizeStatus_OrderMatters(t *testing.T) {
	// "done" only matches exactly; a substring does not make it Done.
	assert.Equal(t, StatusQA, NormalizeStatus("Done in QA"))
	// In-progress substring wins over the QA substring.
	assert.Equal(t, StatusInProgress, NormalizeStatus("in progress (qa)"))
	// "todo" without a space is not a ToDo synonym.
	assert.Equal(t, StatusQA, NormalizeStatus("todo"))
}

func TestNormalizeStatus_Total(t *testing.T) {
	valid := map[NormalizedStatus]bool{}
	for _, st := range AllStatuses {
		valid[st] = true
	}
	for _, in := range []string{"", " ", "Unknown Provider String", "Done", "QA Review", "\t\n", "🚀"} {
		assert.True(t, valid[NormalizeStatus(in)], "input %q", in)
	}
}

func TestNewStatusCounts(t *testing.T) {
	c := NewStatusCounts()
	assert.Len(t, c, 6)
	for _, st := range AllStatuses {
		assert.Equal(t, 0, c[st])
	}
}
