package utils

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"sahara/internal/config"
)

// RandomIntInRange returns a random integer within the range [min, max]
func RandomIntInRange(min, max int) int {
	if min > max {
		min, max = max, min
	}
	if min == max {
		return min
	}
	return rand.Intn(max-min+1) + min
}

// RandomFloatInRange returns a random value within [min, max] rounded to the given number of decimals.
func RandomFloatInRange(min, max float64, decimals int) float64 {
	if min > max {
		min, max = max, min
	}
	v := min + rand.Float64()*(max-min)
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// RandomDuration returns a random time.Duration based on the config DelayRange.
// A zero range without unit is a valid "no delay".
func RandomDuration(delayRange config.DelayRange) (time.Duration, error) {
	if delayRange.Unit == "" && delayRange.Min == 0 && delayRange.Max == 0 {
		return 0, nil
	}
	unit, ok := delayRange.Unit.Duration()
	if !ok {
		return 0, fmt.Errorf("unknown delay unit: %s", delayRange.Unit)
	}
	return time.Duration(RandomIntInRange(delayRange.Min, delayRange.Max)) * unit, nil
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SleepRange waits for a random duration from delayRange. An invalid range does not wait.
func SleepRange(ctx context.Context, delayRange config.DelayRange) error {
	d, err := RandomDuration(delayRange)
	if err != nil {
		return ctx.Err()
	}
	return Sleep(ctx, d)
}
