package tasks

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidParam indicates a task parameter of the wrong type or out of range.
var ErrInvalidParam = errors.New("invalid task parameter")

// floatParam reads a number from YAML params, which decode as int or float64.
func floatParam(params map[string]interface{}, key string, def float64) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidParam, key, raw)
	}
}

func intParam(params map[string]interface{}, key string, def int) (int, error) {
	f, err := floatParam(params, key, float64(def))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func stringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}

// percentRange reads min_percent/max_percent bounded to 1..100.
func percentRange(params map[string]interface{}, defMin, defMax int) (int, int, error) {
	lo, err := intParam(params, "min_percent", defMin)
	if err != nil {
		return 0, 0, err
	}
	hi, err := intParam(params, "max_percent", defMax)
	if err != nil {
		return 0, 0, err
	}
	if lo < 1 || hi > 100 || lo > hi {
		return 0, 0, fmt.Errorf("%w: percent range %d..%d", ErrInvalidParam, lo, hi)
	}
	return lo, hi, nil
}
