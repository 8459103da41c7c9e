package types

import "time"

// TimeUnit определяет единицы измерения времени для задержек.
// EN: TimeUnit defines the units for time delays.
type TimeUnit string

const (
	TimeUnitMilliseconds TimeUnit = "milliseconds"
	TimeUnitSeconds      TimeUnit = "seconds"
	TimeUnitMinutes      TimeUnit = "minutes"
)

// Duration returns the size of one unit, or false for an unknown unit.
func (u TimeUnit) Duration() (time.Duration, bool) {
	switch u {
	case TimeUnitMilliseconds:
		return time.Millisecond, true
	case TimeUnitSeconds:
		return time.Second, true
	case TimeUnitMinutes:
		return time.Minute, true
	default:
		return 0, false
	}
}
