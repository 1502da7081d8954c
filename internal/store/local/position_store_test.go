package local

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

func newTestStore(t *testing.T) *PositionStore {
	t.Helper()
	s, err := NewPositionStore(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)
	return s
}

func testPosition(id, owner string, start time.Time) domain.Position {
	return domain.Position{
		ID:            id,
		Owner:         owner,
		AssetID:       "ethereum",
		EntryPrice:    2500,
		RangeLow:      2000,
		RangeHigh:     3000,
		Capital:       1000,
		EstimatedAPR:  50,
		ShortLeverage: 3,
		StartTime:     start,
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPosition("p1", "alice", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Create(ctx, p))

	got, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestCreateDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPosition("p1", "alice", time.Now().UTC())
	require.NoError(t, s.Create(ctx, p))
	assert.Error(t, s.Create(ctx, p))
}

func TestGetByIDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByOwnerOrderAndPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, s.Create(ctx, testPosition(id, "alice", base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, s.Create(ctx, testPosition("q1", "bob", base)))

	all, err := s.ListByOwner(ctx, "alice", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// newest first
	assert.Equal(t, "p3", all[0].ID)
	assert.Equal(t, "p1", all[2].ID)

	page, err := s.ListByOwner(ctx, "alice", domain.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p2", page[0].ID)

	since := base.Add(90 * time.Minute)
	recent, err := s.ListByOwner(ctx, "alice", domain.ListOpts{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "p3", recent[0].ID)
}

func TestListAllOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, testPosition("p2", "alice", base.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, testPosition("p1", "bob", base)))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].ID)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testPosition("p1", "alice", time.Now().UTC())))
	require.NoError(t, s.Delete(ctx, "p1"))

	_, err := s.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "p1"), domain.ErrNotFound)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "positions.json")
	ctx := context.Background()

	s1, err := NewPositionStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Create(ctx, testPosition("p1", "alice", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))))

	s2, err := NewPositionStore(path)
	require.NoError(t, err)
	got, err := s2.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Owner)
}
