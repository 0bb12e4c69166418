// Package backoff provides the pure retry-delay calculation used by retry
// wrapper nodes.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy selects how the delay grows with the attempt count.
type Strategy string

const (
	StrategyFixed       Strategy = "fixed"
	StrategyLinear      Strategy = "linear"
	StrategyExponential Strategy = "exponential"
	StrategyJitter      Strategy = "jitter"
)

// ParseStrategy maps a configuration string to a Strategy, defaulting to
// exponential for unknown values.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyFixed, StrategyLinear, StrategyExponential, StrategyJitter:
		return Strategy(s)
	default:
		return StrategyExponential
	}
}

// Delay returns the backoff delay before the given attempt (1-based).
//
//	fixed:       initial
//	linear:      initial * attempt
//	exponential: initial * multiplier^(attempt-1)
//	jitter:      exponential base plus a uniformly random addition in [0, base]
//
// The result is clamped to [0, max].
func Delay(attempt int, initial time.Duration, strategy Strategy, multiplier float64, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	if initial < 0 {
		initial = 0
	}

	var delay time.Duration

	switch strategy {
	case StrategyFixed:
		delay = initial
	case StrategyLinear:
		delay = initial * time.Duration(attempt)
	case StrategyJitter:
		base := exponential(attempt, initial, multiplier)
		delay = base + jitter(base)
	default: // exponential
		delay = exponential(attempt, initial, multiplier)
	}

	if delay > max {
		return max
	}

	if delay < 0 {
		return 0
	}

	return delay
}

func exponential(attempt int, initial time.Duration, multiplier float64) time.Duration {
	if multiplier <= 0 {
		multiplier = 2.0
	}

	scaled := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if scaled > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(scaled)
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(int64(base) + 1))
}
