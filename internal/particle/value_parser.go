package particle

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// ParseValueAndVariance parses a value with an optional random variance.
// Supported formats:
//   - Fixed value: "1500" → value=1500, variance=0
//   - Percentage: "10~50%" → value=10, variance=0.5
//   - Absolute: "10~5" → value=10, variance=5/10=0.5
//   - Absolute on zero: "0~5" or "~5" → value=0, variance=5
//
// The variance is always a fraction of value, except when value is zero
// where it is an absolute amount.
//
// When allowNegative is false a negative value is replaced with 1, the
// same fallback the legacy scripts were tuned against.
func ParseValueAndVariance(token string, allowNegative bool) (value, variance float64, err error) {
	valuePart, variancePart, hasVariance := strings.Cut(token, "~")
	if hasVariance && valuePart == "" {
		// "~5" is a pure variance around zero
		valuePart = "0"
	}

	value, err = parseNumber(valuePart, allowNegative)
	if err != nil {
		return 0, 0, err
	}
	if !hasVariance {
		return value, 0, nil
	}

	if pct, ok := strings.CutSuffix(variancePart, "%"); ok {
		v, err := parseNumber(pct, false)
		if err != nil {
			return 0, 0, err
		}
		return value, v / 100, nil
	}

	v, err := parseNumber(variancePart, false)
	if err != nil {
		return 0, 0, err
	}
	if value != 0 {
		return value, v / value, nil
	}
	return value, v, nil
}

// parseNumber accepts the lenient float syntax scripts use (".5", "1.", "-3").
func parseNumber(s string, allowNegative bool) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidNumber)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	if !allowNegative && v < 0 {
		return 1, nil
	}
	return v, nil
}

// parseInt truncates a numeric token towards zero.
func parseInt(s string, allowNegative bool) (int, error) {
	v, err := parseNumber(s, allowNegative)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// RandomiseValue jitters value by up to ±variance of itself.
// A zero value is jittered by an absolute ±variance instead.
func RandomiseValue(value, variance float64, rng *rand.Rand) float64 {
	jitter := (2*rng.Float64() - 1) * variance
	if value != 0 {
		return value * (1 + jitter)
	}
	return jitter
}

// LerpValues interpolates from a to b, holding a when b is SameAsInitial.
func LerpValues(a, b, f float64) float64 {
	if b == SameAsInitial {
		return a
	}
	return a + f*(b-a)
}

// CalculateTimeFrac returns how far through its life a particle is, in [0, 1].
// The fraction stays 0 for the first delay milliseconds and then ramps
// linearly to 1 at the time of death.
func CalculateTimeFrac(now, birth, life, delay int) float64 {
	rampTime := now - (birth + delay)
	if rampTime <= 0 {
		return 0
	}
	adjustedLife := life - delay
	if adjustedLife <= 0 {
		return 1
	}
	f := float64(rampTime) / float64(adjustedLife)
	if f > 1 {
		return 1
	}
	return f
}
