package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/watermark"
)

// staticSource serves a fixed record set, like a table that is not
// changing between runs.
type staticSource struct {
	name    string
	records []types.Record
	err     error
	closed  bool
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Extract(ctx context.Context) ([]types.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]types.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *staticSource) Close() error {
	s.closed = true
	return nil
}

func newTestManager(t *testing.T) *watermark.Manager {
	t.Helper()
	mgr, err := watermark.NewManager(filepath.Join(t.TempDir(), "watermarks.json"))
	require.NoError(t, err)
	return mgr
}

func bookings(ids ...int64) []types.Record {
	out := make([]types.Record, len(ids))
	for i, id := range ids {
		out[i] = types.Record{"booking_id": id, "campsite": "chapada"}
	}
	return out
}

func TestIncrementalFirstRunThenEmpty(t *testing.T) {
	mgr := newTestManager(t)
	src := NewIncremental(&staticSource{name: "bookings", records: bookings(1, 2, 3)}, mgr, "booking_id")

	first, err := src.Extract(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 3)
	assert.Equal(t, int64(3), mgr.Get("bookings", nil))

	// Same data, no additions: the second run must be empty and must not
	// touch the watermark.
	second, err := src.Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, int64(3), mgr.Get("bookings", nil))
}

func TestIncrementalStrictGreaterThanBoundary(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Update("bookings", 2))

	src := NewIncremental(&staticSource{name: "bookings", records: bookings(1, 2, 3)}, mgr, "booking_id")
	got, err := src.Extract(context.Background())
	require.NoError(t, err)

	// The boundary record (id == watermark) was delivered by the run that
	// set the watermark; only strictly newer records come back.
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0]["booking_id"])
}

func TestIncrementalPicksUpNewRecords(t *testing.T) {
	mgr := newTestManager(t)
	inner := &staticSource{name: "bookings", records: bookings(1, 2, 3)}
	src := NewIncremental(inner, mgr, "booking_id")

	_, err := src.Extract(context.Background())
	require.NoError(t, err)

	inner.records = bookings(1, 2, 3, 4, 5)
	got, err := src.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(5), mgr.Get("bookings", nil))
}

func TestIncrementalResetForcesFullLoad(t *testing.T) {
	mgr := newTestManager(t)
	src := NewIncremental(&staticSource{name: "bookings", records: bookings(1, 2, 3)}, mgr, "booking_id")

	_, err := src.Extract(context.Background())
	require.NoError(t, err)

	require.NoError(t, mgr.Reset("bookings"))

	got, err := src.Extract(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3, "reset must behave like a first run")
}

func TestIncrementalStringTimestampWatermark(t *testing.T) {
	mgr := newTestManager(t)
	records := []types.Record{
		{"customer": "ana", "updated_at": "2024-10-19T08:00:00"},
		{"customer": "joao", "updated_at": "2024-10-20T23:59:59"},
		{"customer": "marcos", "updated_at": "2024-10-21T06:30:00"},
	}
	require.NoError(t, mgr.Update("customers", "2024-10-20T23:59:59"))

	src := NewIncremental(&staticSource{name: "customers", records: records}, mgr, "updated_at")
	got, err := src.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "marcos", got[0]["customer"])
	assert.Equal(t, "2024-10-21T06:30:00", mgr.Get("customers", nil))
}

func TestIncrementalSkipsRecordsWithoutWatermarkField(t *testing.T) {
	mgr := newTestManager(t)
	records := []types.Record{
		{"booking_id": int64(1)},
		{"campsite": "itatiaia"}, // no booking_id
		{"booking_id": int64(2)},
	}
	src := NewIncremental(&staticSource{name: "bookings", records: records}, mgr, "booking_id")

	got, err := src.Extract(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, src.Skipped())

	// The malformed record stays counted on every run; it never becomes
	// a silent success or a fatal error.
	_, err = src.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.Skipped())
}

func TestIncrementalSkipsIncomparableValues(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Update("bookings", 10))

	records := []types.Record{
		{"booking_id": "not-a-number"},
		{"booking_id": int64(11)},
	}
	src := NewIncremental(&staticSource{name: "bookings", records: records}, mgr, "booking_id")

	got, err := src.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(11), got[0]["booking_id"])
	assert.Equal(t, 1, src.Skipped())
}

func TestIncrementalSkipsIncomparableValuesOnFirstRun(t *testing.T) {
	mgr := newTestManager(t)

	records := []types.Record{
		{"booking_id": int64(1)},
		{"booking_id": "not-a-number"},
		{"booking_id": int64(2)},
	}
	src := NewIncremental(&staticSource{name: "bookings", records: records}, mgr, "booking_id")

	got, err := src.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2, "odd-typed record must be skipped, not delivered once")
	assert.Equal(t, 1, src.Skipped())
	assert.Equal(t, int64(2), mgr.Get("bookings", nil))

	// The skipped record never comes back on later runs either.
	got, err = src.Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, src.Skipped())
}

func TestIncrementalExtractionFailureLeavesWatermark(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Update("bookings", 7))

	src := NewIncremental(&staticSource{name: "bookings", err: errors.New("connection refused")}, mgr, "booking_id")
	_, err := src.Extract(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(7), mgr.Get("bookings", nil))
}

func TestIncrementalCloseClosesInner(t *testing.T) {
	inner := &staticSource{name: "bookings"}
	src := NewIncremental(inner, newTestManager(t), "booking_id")
	require.NoError(t, src.Close())
	assert.True(t, inner.closed)
}
