package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/utils"
)

func historyOf(latencies ...float64) []models.ClassifiedSample {
	out := make([]models.ClassifiedSample, len(latencies))
	for i, l := range latencies {
		out[i] = models.ClassifiedSample{Index: i, Latency: l}
	}
	return out
}

func TestEstimateUsesLargerOfObservedAndExpected(t *testing.T) {
	history := historyOf(0.05, 0.05, 0.05, 0.05, 0.05)

	ride, err := Estimate(history, 0, 4, 1.0, SecondsPerFloor(5))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, ride.ObservedLatency, 1e-12)
	assert.Equal(t, 4.0, ride.EstimatedDuration)
	assert.Equal(t, 1, ride.Floors)
}

func TestEstimateSingleIndex(t *testing.T) {
	ride, err := Estimate(historyOf(1, 7, 1), 1, 1, 1.0, nil)
	require.NoError(t, err)
	assert.Equal(t, 7.0, ride.EstimatedDuration)
	assert.Equal(t, 2, ride.Floors)
}

func TestEstimateOrdering(t *testing.T) {
	_, err := Estimate(historyOf(1, 1, 1), 2, 1, 1.0, nil)
	assert.ErrorIs(t, err, utils.ErrOrdering)
}

func TestEstimateOutOfRange(t *testing.T) {
	_, err := Estimate(historyOf(1, 1, 1), 0, 3, 1.0, nil)
	assert.ErrorIs(t, err, utils.ErrInsufficientHistory)
}

func TestSecondsPerFloor(t *testing.T) {
	assert.Equal(t, 3, SecondsPerFloor(5).Floors(12))
	assert.Equal(t, 2, SecondsPerFloor(5).Floors(10))
	assert.Equal(t, 0, SecondsPerFloor(5).Floors(0))
	assert.Equal(t, 0, SecondsPerFloor(0).Floors(12))
}
