package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/televator/internal/models"
)

func newTestStore(t *testing.T) (*RideStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rides.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSaveAndListRides(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		saved, err := s.SaveRide(ctx, models.Ride{Enter: i, Exit: i + 2, EstimatedDuration: float64(i + 1), Floors: 1})
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), saved.ID)
	}

	rides, err := s.ListRides(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rides, 3)
	assert.Equal(t, uint64(3), rides[0].ID)
	assert.Equal(t, 2, rides[0].Enter)
	assert.Equal(t, uint64(1), rides[2].ID)

	limited, err := s.ListRides(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRidesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rides.db")
	s, err := Open(path)
	require.NoError(t, err)
	completed := time.Date(2024, 2, 27, 10, 0, 0, 0, time.UTC)
	_, err = s.SaveRide(context.Background(), models.Ride{Enter: 4, Exit: 9, EstimatedDuration: 12, Floors: 3, CompletedAt: completed})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	rides, err := reopened.ListRides(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rides, 1)
	assert.Equal(t, 3, rides[0].Floors)
	assert.True(t, completed.Equal(rides[0].CompletedAt))
}

func TestListRidesEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	rides, err := s.ListRides(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, rides)
}

func TestSaveRideCancelled(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SaveRide(ctx, models.Ride{})
	assert.ErrorIs(t, err, context.Canceled)
}
