package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelay_Fixed(t *testing.T) {
	for attempt := 1; attempt <= 5; attempt++ {
		delay := Delay(attempt, 100*time.Millisecond, StrategyFixed, 2.0, 30*time.Second)
		assert.Equal(t, 100*time.Millisecond, delay)
	}
}

func TestDelay_Linear(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Delay(1, 100*time.Millisecond, StrategyLinear, 2.0, 30*time.Second))
	assert.Equal(t, 300*time.Millisecond, Delay(3, 100*time.Millisecond, StrategyLinear, 2.0, 30*time.Second))
}

func TestDelay_Exponential(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Delay(1, 100*time.Millisecond, StrategyExponential, 2.0, 30*time.Second))
	assert.Equal(t, 200*time.Millisecond, Delay(2, 100*time.Millisecond, StrategyExponential, 2.0, 30*time.Second))
	assert.Equal(t, 400*time.Millisecond, Delay(3, 100*time.Millisecond, StrategyExponential, 2.0, 30*time.Second))
}

func TestDelay_ClampedToMax(t *testing.T) {
	max := 500 * time.Millisecond
	delay := Delay(20, time.Second, StrategyExponential, 3.0, max)
	assert.Equal(t, max, delay)
}

func TestDelay_AllStrategiesBounded(t *testing.T) {
	max := 30 * time.Second

	for _, strategy := range []Strategy{StrategyFixed, StrategyLinear, StrategyExponential, StrategyJitter} {
		for attempt := 1; attempt <= 20; attempt++ {
			delay := Delay(attempt, time.Second, strategy, 2.0, max)
			assert.GreaterOrEqual(t, delay, time.Duration(0), "strategy=%s attempt=%d", strategy, attempt)
			assert.LessOrEqual(t, delay, max, "strategy=%s attempt=%d", strategy, attempt)
		}
	}
}

func TestDelay_ExponentialWeaklyIncreasing(t *testing.T) {
	max := time.Hour

	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		delay := Delay(attempt, 50*time.Millisecond, StrategyExponential, 2.0, max)
		assert.GreaterOrEqual(t, delay, prev)
		prev = delay
	}
}

func TestDelay_JitterWithinBounds(t *testing.T) {
	// jitter = exponential base plus a uniform addition in [0, base], so the
	// result stays within [base, 2*base] before clamping.
	for range 50 {
		base := Delay(3, 100*time.Millisecond, StrategyExponential, 2.0, time.Hour)
		jittered := Delay(3, 100*time.Millisecond, StrategyJitter, 2.0, time.Hour)
		assert.GreaterOrEqual(t, jittered, base)
		assert.LessOrEqual(t, jittered, 2*base)
	}
}

func TestDelay_OverflowSafe(t *testing.T) {
	delay := Delay(500, time.Hour, StrategyExponential, 10.0, 30*time.Second)
	assert.Equal(t, 30*time.Second, delay)
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, StrategyFixed, ParseStrategy("fixed"))
	assert.Equal(t, StrategyJitter, ParseStrategy("jitter"))
	assert.Equal(t, StrategyExponential, ParseStrategy("bogus"))
	assert.Equal(t, StrategyExponential, ParseStrategy(""))
}
