// Package actuator implements the GPIO-driving scheduler (spec §4.4): it
// consumes filtered audio frames from a queue, computes a sliding-window RMS
// at a wall-clock-derived cursor, and drives body/mouth motors accordingly.
package actuator

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/codeandkey/b3/internal/clock"
	"github.com/codeandkey/b3/internal/config"
	"github.com/codeandkey/b3/internal/queue"
)

const (
	bodyDuty  = 255 * 90 / 100
	mouthDuty = 255 * 90 / 100

	debugInterval = 3 * time.Second
)

// Actuator owns the GPIO hardware and the consumer side of the frame queue.
// Only its own goroutine ever touches the hardware.
type Actuator struct {
	queue  *queue.Queue
	cfg    *config.Config
	pins   *pins
	logger *log.Logger

	sampleRate int

	previousFrame queue.Frame
	frameStartUs  int64

	flip           bool
	lastFlipUs     int64
	consecutiveLow int

	writeCount   uint64
	lastDebugUs  int64

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New constructs an Actuator. GPIO hardware is opened eagerly; failure to
// reach it degrades to mock mode rather than an error (spec §7 failure mode a).
func New(q *queue.Queue, cfg *config.Config, pm config.PinMap, sampleRate int, logger *log.Logger) *Actuator {
	return &Actuator{
		queue:      q,
		cfg:        cfg,
		pins:       openPins(pm, logger),
		logger:     logger,
		sampleRate: sampleRate,
		done:       make(chan struct{}),
	}
}

// Start launches the actuator's main loop on its own goroutine.
func (a *Actuator) Start() {
	a.running.Store(true)
	a.frameStartUs = clock.NowUs()
	a.lastDebugUs = a.frameStartUs

	a.wg.Add(1)
	go a.threadMain()
}

// Stop signals the actuator loop to exit and waits for it to flush pins and
// release hardware.
func (a *Actuator) Stop() {
	a.running.Store(false)
	close(a.done)
	a.wg.Wait()
}

func (a *Actuator) threadMain() {
	defer a.wg.Done()
	defer a.pins.terminate()

	for a.running.Load() {
		select {
		case <-a.done:
			return
		default:
		}

		frame, ok := a.queue.TryPop()
		if !ok {
			a.frameStartUs = clock.NowUs()
			continue
		}

		a.processFrame(frame)
		a.previousFrame = frame
	}
}

// processFrame spins until the wall-clock cursor passes the end of frame,
// computing RMS and driving pins at each iteration. Mirrors
// original_source/b3/gpio.cpp's _handleChunk, generalized to separate
// body/mouth thresholds per spec §4.4.
func (a *Actuator) processFrame(frame queue.Frame) {
	frameLen := len(frame.LPF)
	if frameLen == 0 {
		return
	}

	for a.running.Load() {
		now := clock.NowUs()
		cursor := int((now - a.frameStartUs) * int64(a.sampleRate) / 1_000_000)

		if cursor < 0 || cursor >= frameLen {
			break
		}

		windowSamples := int(a.cfg.RMSWindowMs * float64(a.sampleRate) / 1000)

		rmsLPF := computeRMS(frame.LPF, a.previousFrame.LPF, cursor, windowSamples)
		rmsHPF := computeRMS(frame.HPF, a.previousFrame.HPF, cursor, windowSamples)

		a.writePins(now, rmsLPF, rmsHPF)
		a.maybeLogDebug(now)

		select {
		case <-a.done:
			return
		default:
		}
	}

	a.frameStartUs += int64(frameLen) * 1_000_000 / int64(a.sampleRate)
}

// computeRMS averages squared samples over [cursor-window, cursor), pulling
// negative indices from the tail of the previous frame.
func computeRMS(current, previous []int16, cursor, window int) float64 {
	start := cursor - window
	var sum float64
	var count int

	if start < 0 && len(previous) > 0 {
		from := len(previous) + start
		if from < 0 {
			from = 0
		}
		for i := from; i < len(previous); i++ {
			v := float64(previous[i])
			sum += v * v
			count++
		}
	}

	lo := start
	if lo < 0 {
		lo = 0
	}
	for i := lo; i < cursor && i < len(current); i++ {
		v := float64(current[i])
		sum += v * v
		count++
	}

	if count == 0 {
		return 0
	}

	mean := sum / float64(count)
	if mean <= 0 {
		return 0
	}
	return math.Sqrt(mean)
}

func (a *Actuator) writePins(now int64, rmsLPF, rmsHPF float64) {
	moveBody := rmsLPF > float64(a.cfg.BodyThreshold)
	moveMouth := rmsHPF > float64(a.cfg.MouthThreshold)

	if moveBody {
		if a.flip {
			a.pins.write(a.pins.bodyDirA, 0)
			a.pins.write(a.pins.bodyDirB, 1)
		} else {
			a.pins.write(a.pins.bodyDirB, 0)
			a.pins.write(a.pins.bodyDirA, 1)
		}
		a.pins.setPWM(a.pins.bodySpeed, clampDuty(bodyDuty))
		a.consecutiveLow = 0
	} else {
		a.pins.setPWM(a.pins.bodySpeed, 0)
		a.consecutiveLow++

		if a.consecutiveLow > a.sampleRate/80 && now-a.lastFlipUs > a.cfg.FlipIntervalMs*1000 {
			a.flip = !a.flip
			a.lastFlipUs = now
		}
	}

	if moveMouth {
		a.pins.write(a.pins.mouthDirA, 0)
		a.pins.write(a.pins.mouthDirB, 1)
		a.pins.setPWM(a.pins.mouthSpeed, clampDuty(mouthDuty))
	} else {
		a.pins.setPWM(a.pins.mouthSpeed, 0)
	}

	a.writeCount++
}

func (a *Actuator) maybeLogDebug(now int64) {
	if now-a.lastDebugUs < debugInterval.Microseconds() {
		return
	}

	elapsed := float64(now-a.lastDebugUs) / 1e6
	a.logger.Debug("actuator write rate",
		"writes_per_sec", float64(a.writeCount)/elapsed,
		"body_threshold", a.cfg.BodyThreshold,
		"mouth_threshold", a.cfg.MouthThreshold,
	)

	a.writeCount = 0
	a.lastDebugUs = now
}
