package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	recs  map[string][]domain.FieldChangeRecord
	err   error
	calls int
}

func (f *fakeSource) FetchFieldHistory(_ context.Context, _ []string, _ string, _ *domain.TimeWindow) (map[string][]domain.FieldChangeRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.recs, nil
}

func TestReader_LoadOrdersAndFillsEmpty(t *testing.T) {
	src := &fakeSource{recs: map[string][]domain.FieldChangeRecord{
		"i1": {
			rec("QA", "Done", t0.Add(2*time.Hour)),
			rec("To Do", "QA", t0),
		},
	}}
	r := NewReader(src, zerolog.Nop())
	got, err := r.Load(context.Background(), []string{"i1", "i2"}, domain.FieldStatus, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got["i1"], 2)
	assert.Equal(t, "QA", got["i1"][0].ToValue)
	assert.Equal(t, "Done", got["i1"][1].ToValue)
	assert.NotNil(t, got["i2"])
	assert.Empty(t, got["i2"])
}

func TestReader_LoadAppliesWindowAndField(t *testing.T) {
	other := rec("dev-1", "dev-2", t0.Add(time.Hour))
	other.FieldName = domain.FieldAssignee
	src := &fakeSource{recs: map[string][]domain.FieldChangeRecord{
		"i1": {rec("a", "b", t0.Add(-48*time.Hour)), rec("b", "c", t0.Add(time.Hour)), other},
	}}
	from := t0
	got, err := NewReader(src, zerolog.Nop()).Load(context.Background(), []string{"i1"}, domain.FieldStatus, &domain.TimeWindow{From: &from})
	require.NoError(t, err)
	require.Len(t, got["i1"], 1)
	assert.Equal(t, "c", got["i1"][0].ToValue)
}

func TestReader_LoadWrapsFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	_, err := NewReader(src, zerolog.Nop()).Load(context.Background(), []string{"i1"}, domain.FieldStatus, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDataSourceUnavailable))
	assert.Equal(t, 1, src.calls)
}

func TestReader_LoadNoIDsSkipsSource(t *testing.T) {
	src := &fakeSource{}
	got, err := NewReader(src, zerolog.Nop()).Load(context.Background(), nil, domain.FieldStatus, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, src.calls)
}
