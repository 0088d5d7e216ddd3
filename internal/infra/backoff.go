package infra

import (
	"math"
	"time"
)

const (
	BaseDelay = 1 * time.Second
	MaxDelay  = 60 * time.Second
)

// CalculateBackoff returns the exponential delay for the given retry attempt, capped at MaxDelay.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 16 {
		return MaxDelay
	}
	delay := BaseDelay * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > MaxDelay {
		delay = MaxDelay
	}
	return delay
}
