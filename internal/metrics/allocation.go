package metrics

import (
	"math"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
)

// DefaultSprintCapacitySP is the observed per-developer sprint capacity.
const DefaultSprintCapacitySP = 17

// Allocation is round(sp / capacity * 100) for one (squad, initiative, developer).
func Allocation(squadID, initiativeID, developerID string, sp, capacity float64) domain.DeveloperAllocationRecord {
	rec := domain.DeveloperAllocationRecord{
		SquadID:          squadID,
		InitiativeID:     initiativeID,
		DeveloperID:      developerID,
		TotalStoryPoints: sp,
	}
	if capacity > 0 {
		rec.Percentage = int(math.Round(sp / capacity * 100))
	}
	return rec
}

// NaiveTotal sums percentages per developer across all records, the way
// reporting consumers do. Nothing normalizes the sum, so a developer spread
// over several squads or sprints can exceed 100.
func NaiveTotal(records []domain.DeveloperAllocationRecord) map[string]int {
	out := map[string]int{}
	for _, r := range records {
		out[r.DeveloperID] += r.Percentage
	}
	return out
}
