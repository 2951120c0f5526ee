package actuator

import (
	"github.com/charmbracelet/log"
	"github.com/warthog618/go-gpiocdev"

	"github.com/codeandkey/b3/internal/config"
)

// line is the subset of *gpiocdev.Line this package depends on — narrowed to
// an interface so tests can substitute a mock, matching the mock-line idiom
// used for GPIO test doubles elsewhere in this lineage.
type line interface {
	SetValue(v int) error
	Close() error
}

// pins owns the six GPIO lines described by a config.PinMap. If hardware
// cannot be reached, pins runs in mock mode: RMS/scheduling logic still
// executes, writes are just discarded.
type pins struct {
	bodyDirA, bodyDirB, bodySpeed   line
	mouthDirA, mouthDirB, mouthSpeed line

	mock   bool
	logger *log.Logger
}

func openPins(pm config.PinMap, logger *log.Logger) *pins {
	bodyDirA, err := gpiocdev.RequestLine(pm.Chip, pm.BodyDirA, gpiocdev.AsOutput(0))
	if err != nil {
		logger.Error("GPIO init failed, running in mock mode", "err", err)
		return &pins{mock: true, logger: logger}
	}

	p := &pins{logger: logger, bodyDirA: bodyDirA}

	open := func(offset int) line {
		l, err := gpiocdev.RequestLine(pm.Chip, offset, gpiocdev.AsOutput(0))
		if err != nil {
			logger.Error("failed to request GPIO line, running in mock mode", "offset", offset, "err", err)
			p.mock = true
			return nil
		}
		return l
	}

	p.bodyDirB = open(pm.BodyDirB)
	p.bodySpeed = open(pm.BodySpeed)
	p.mouthDirA = open(pm.MouthDirA)
	p.mouthDirB = open(pm.MouthDirB)
	p.mouthSpeed = open(pm.MouthSpeed)

	if p.mock {
		p.closeAll()
		return &pins{mock: true, logger: logger}
	}

	return p
}

func (p *pins) closeAll() {
	for _, l := range []line{p.bodyDirA, p.bodyDirB, p.bodySpeed, p.mouthDirA, p.mouthDirB, p.mouthSpeed} {
		if l != nil {
			l.Close()
		}
	}
}

func (p *pins) write(l line, v int) {
	if p.mock || l == nil {
		return
	}
	if err := l.SetValue(v); err != nil {
		p.logger.Warn("GPIO write failed", "err", err)
	}
}

// flushAll drives every output line low, per spec §4.4 shutdown behavior.
func (p *pins) flushAll() {
	p.write(p.bodyDirA, 0)
	p.write(p.bodyDirB, 0)
	p.write(p.bodySpeed, 0)
	p.write(p.mouthDirA, 0)
	p.write(p.mouthDirB, 0)
	p.write(p.mouthSpeed, 0)
}

func (p *pins) terminate() {
	p.flushAll()
	if !p.mock {
		p.closeAll()
	}
}

// setPWM approximates a PWM duty cycle (0-255) as a digital level, since
// line-based gpiocdev has no hardware PWM controller behind it: any duty
// above half scale drives the line high. The requested duty is still
// reported to callers/tests via the return value so the PWM∈[0,255]
// invariant remains observable above this layer.
func (p *pins) setPWM(l line, duty int) int {
	level := 0
	if duty > 127 {
		level = 1
	}
	p.write(l, level)
	return duty
}

func clampDuty(duty int) int {
	if duty < 0 {
		return 0
	}
	if duty > 255 {
		return 255
	}
	return duty
}
