package actuator

import (
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeandkey/b3/internal/config"
	"github.com/codeandkey/b3/internal/queue"
)

// mockLine is a hand-rolled GPIO line double, following the mock/testify
// idiom used for GPIO test doubles elsewhere in this lineage.
type mockLine struct {
	values []int
	closed bool
}

func (m *mockLine) SetValue(v int) error {
	m.values = append(m.values, v)
	return nil
}

func (m *mockLine) Close() error {
	m.closed = true
	return nil
}

func testLogger() *log.Logger {
	return log.New(os.Stderr)
}

func newMockActuator(t *testing.T, sampleRate int) (*Actuator, *mockLine) {
	t.Helper()

	body := &mockLine{}
	cfg := config.New(testLogger())
	cfg.BodyThreshold = 100
	cfg.MouthThreshold = 100
	cfg.RMSWindowMs = 20
	cfg.FlipIntervalMs = 2000

	a := &Actuator{
		queue:      queue.New(),
		cfg:        cfg,
		pins:       &pins{mock: false, logger: testLogger(), bodySpeed: body, bodyDirA: &mockLine{}, bodyDirB: &mockLine{}, mouthDirA: &mockLine{}, mouthDirB: &mockLine{}, mouthSpeed: &mockLine{}},
		logger:     testLogger(),
		sampleRate: sampleRate,
		done:       make(chan struct{}),
	}
	a.running.Store(true)

	t.Cleanup(func() { require.NotPanics(t, func() { _ = body }) })

	return a, body
}

func TestComputeRMSZeroForSilence(t *testing.T) {
	frame := make([]int16, 100)
	rms := computeRMS(frame, nil, 50, 20)
	assert.Equal(t, 0.0, rms)
}

func TestComputeRMSPullsFromPreviousFrameTail(t *testing.T) {
	previous := make([]int16, 100)
	for i := range previous {
		previous[i] = 1000
	}
	current := make([]int16, 100)

	// cursor=5, window=20 -> start=-15, pulls from tail of previous.
	rms := computeRMS(current, previous, 5, 20)
	assert.Greater(t, rms, 0.0)
}

func TestWritePinsBodyThresholdGatesMovement(t *testing.T) {
	a, bodySpeed := newMockActuator(t, 44100)

	a.writePins(0, 0, 0) // below threshold
	require.NotEmpty(t, bodySpeed.values)
	assert.Equal(t, 0, bodySpeed.values[len(bodySpeed.values)-1])

	a.writePins(1, 9999, 0) // above threshold
	assert.Equal(t, 1, bodySpeed.values[len(bodySpeed.values)-1]) // duty>127 -> high
}

func TestWritePinsZeroRMSMovesNeitherActuator(t *testing.T) {
	a, _ := newMockActuator(t, 44100)
	a.writePins(0, 0, 0)

	assert.Equal(t, 0, a.pins.mouthSpeed.(*mockLine).values[len(a.pins.mouthSpeed.(*mockLine).values)-1])
}

func TestWritePinsMouthThresholdGatesMovement(t *testing.T) {
	a, _ := newMockActuator(t, 44100)
	mouthSpeed := a.pins.mouthSpeed.(*mockLine)

	a.writePins(0, 0, 0) // below threshold
	require.NotEmpty(t, mouthSpeed.values)
	assert.Equal(t, 0, mouthSpeed.values[len(mouthSpeed.values)-1])

	a.writePins(1, 0, 9999) // rmsHPF above mouthThreshold
	assert.Equal(t, 1, mouthSpeed.values[len(mouthSpeed.values)-1]) // duty>127 -> high

	mouthDirB := a.pins.mouthDirB.(*mockLine)
	assert.Equal(t, 1, mouthDirB.values[len(mouthDirB.values)-1])
}

func TestConsecutiveLowEnablesFlipAfterInterval(t *testing.T) {
	a, _ := newMockActuator(t, 8000) // small sample rate -> small threshold

	threshold := a.sampleRate/80 + 1
	for i := 0; i < threshold; i++ {
		a.writePins(int64(i), 0, 0)
	}

	before := a.flip
	a.lastFlipUs = -1 * a.cfg.FlipIntervalMs * 1000 * 2 // force interval elapsed
	a.writePins(int64(threshold+1), 0, 0)

	assert.NotEqual(t, before, a.flip)
}
