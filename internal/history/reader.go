/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/rs/zerolog"
)

// Source is the store-side half of the audit trail.
type Source interface {
	FetchFieldHistory(ctx context.Context, itemIDs []string, fieldName string, window *domain.TimeWindow) (map[string][]domain.FieldChangeRecord, error)
}

// Reader loads ordered change records for a set of items and one field.
type Reader struct {
	src Source
	log zerolog.Logger
}

func NewReader(src Source, log zerolog.Logger) *Reader { return &Reader{src: src, log: log} }

// Load returns one ascending list per requested id. Ids without records map
// to an empty, non-nil slice. Records sharing a timestamp keep source order.
func (r *Reader) Load(ctx context.Context, itemIDs []string, fieldName string, window *domain.TimeWindow) (map[string][]domain.FieldChangeRecord, error) {
	out := make(map[string][]domain.FieldChangeRecord, len(itemIDs))
	for _, id := range itemIDs {
		out[id] = []domain.FieldChangeRecord{}
	}
	if len(itemIDs) == 0 {
		return out, nil
	}
	raw, err := r.src.FetchFieldHistory(ctx, itemIDs, fieldName, window)
	if err != nil {
		if errors.Is(err, domain.ErrDataSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: field history %s: %v", domain.ErrDataSourceUnavailable, fieldName, err)
	}
	missing := 0
	for _, id := range itemIDs {
		recs := raw[id]
		kept := make([]domain.FieldChangeRecord, 0, len(recs))
		for _, rec := range recs {
			if rec.FieldName != "" && rec.FieldName != fieldName {
				continue
			}
			if !inWindow(rec, window) {
				continue
			}
			kept = append(kept, rec)
		}
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].ChangedAt.Before(kept[j].ChangedAt) })
		if len(kept) == 0 {
			missing++
		}
		out[id] = kept
	}
	if missing > 0 {
		r.log.Debug().Str("field", fieldName).Int("items", len(itemIDs)).Int("without_history", missing).Msg("history: falling back to current values")
	}
	return out, nil
}

func inWindow(rec domain.FieldChangeRecord, w *domain.TimeWindow) bool {
	if w == nil {
		return true
	}
	if w.From != nil && rec.ChangedAt.Before(*w.From) {
		return false
	}
	if w.To != nil && rec.ChangedAt.After(*w.To) {
		return false
	}
	return true
}
