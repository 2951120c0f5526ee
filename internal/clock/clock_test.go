package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLapTimerAdvancesReference(t *testing.T) {
	var lt LapTimer
	lt.Start()

	time.Sleep(2 * time.Millisecond)
	first := lt.Lap()
	assert.Greater(t, first, int64(0))
	assert.Equal(t, first, lt.LastLap())

	time.Sleep(2 * time.Millisecond)
	second := lt.Lap()
	assert.Greater(t, second, int64(0))
	assert.Equal(t, second, lt.LastLap())
}

func TestNowUsMonotonicallyNonDecreasing(t *testing.T) {
	a := NowUs()
	b := NowUs()
	assert.GreaterOrEqual(t, b, a)
}
