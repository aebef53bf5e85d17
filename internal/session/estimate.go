package session

import (
	"fmt"
	"math"

	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/utils"
)

// FloorPolicy turns an estimated ride duration into a floor count.
type FloorPolicy interface {
	Floors(seconds float64) int
}

// SecondsPerFloor assumes a constant travel time per floor.
type SecondsPerFloor float64

// DefaultFloorPolicy is a heuristic, not a measured constant.
const DefaultFloorPolicy = SecondsPerFloor(5.0)

// Floors returns ceil(seconds / s), or 0 when s is not positive.
func (s SecondsPerFloor) Floors(seconds float64) int {
	if s <= 0 || seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds / float64(s)))
}

// Estimate computes a ride over history[enter..exit] inclusive. The duration is the
// larger of the summed latencies and the nominal elapsed ping time, since probes still
// in flight at either boundary make the sum undercount.
func Estimate(history []models.ClassifiedSample, enter, exit int, pingInterval float64, policy FloorPolicy) (models.Ride, error) {
	if exit < enter {
		return models.Ride{}, utils.NewAppError("session.Estimate", fmt.Sprintf("exit %d precedes enter %d", exit, enter), utils.ErrOrdering)
	}
	if enter < 0 || exit >= len(history) {
		return models.Ride{}, utils.NewAppError("session.Estimate", fmt.Sprintf("range [%d,%d] outside history of %d", enter, exit, len(history)), utils.ErrInsufficientHistory)
	}
	if policy == nil {
		policy = DefaultFloorPolicy
	}

	observed := 0.0
	for _, s := range history[enter : exit+1] {
		observed += s.Latency
	}
	expected := float64(exit-enter) * pingInterval
	estimated := math.Max(observed, expected)

	return models.Ride{
		Enter:             enter,
		Exit:              exit,
		ObservedLatency:   observed,
		ExpectedLatency:   expected,
		EstimatedDuration: estimated,
		Floors:            policy.Floors(estimated),
	}, nil
}
