/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package history

import (
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
)

// Resolve returns the value a field had at t.
//
// history must be ascending by ChangedAt. An empty history means the field
// never changed, so fallback (the live value) holds for every t. Before the
// first record the value is that record's FromValue; otherwise it is the
// ToValue of the last record at or before t. Consecutive records are not
// checked for chaining: a broken chain is returned as recorded.
func Resolve(history []domain.FieldChangeRecord, fallback string, t time.Time) string {
	if len(history) == 0 {
		return fallback
	}
	last := -1
	for i := range history {
		if history[i].ChangedAt.After(t) {
			break
		}
		last = i
	}
	if last < 0 {
		return history[0].FromValue
	}
	return history[last].ToValue
}
