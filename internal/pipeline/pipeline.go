// Package pipeline implements the audio playback loop (spec §4.5) and the
// STOPPED/PLAYING/PAUSED run-state machine (spec §4.6): it drives a decoder
// and a sound device in lockstep, and hands filtered frames to an
// internal/actuator via a shared internal/queue.Queue.
package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/codeandkey/b3/internal/biquad"
	"github.com/codeandkey/b3/internal/clock"
	"github.com/codeandkey/b3/internal/config"
	"github.com/codeandkey/b3/internal/queue"
)

// audioDecoder is the subset of *decode.Decoder the pipeline needs,
// narrowed to an interface so tests can inject a fake source.
type audioDecoder interface {
	SampleRate() int
	Channels() int
	CurrentTimestampUs() int64
	ReadChunk(dst []int16) (int, error)
	Close() error
}

// soundDevice is the subset of *sound.Device the pipeline needs.
type soundDevice interface {
	UpdateChannelData(sampleRate float64, channels, framesPerPeriod int) (int, error)
	Write(pcm []int16) error
	Close() error
}

// Pipeline owns the decode/filter/actuate/play loop for one playback
// session. Only the thread that calls Tick touches its internal buffers.
type Pipeline struct {
	cfg    *config.Config
	queue  *queue.Queue
	logger *log.Logger

	decoder audioDecoder
	sound   soundDevice

	lpf, hpf *biquad.Filter

	state         RunState
	stopRequested bool

	chunkSamples int
	chunkSizeUs  int64
	bufferChunks int

	nextChunkDeadline int64
	underrunCount     int
	preFill           bool

	lap clock.LapTimer

	pcmBuf  []int16
	lpfBuf  []int16
	hpfBuf  []int16
}

// New constructs a Pipeline in the STOPPED state.
func New(cfg *config.Config, q *queue.Queue, logger *log.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		queue:  q,
		logger: logger,
		state:  Stopped,
	}
}

// State reports the current run state.
func (p *Pipeline) State() RunState {
	return p.state
}

// Tick drives a transition toward target, then — if the resulting
// state is PLAYING — runs the tick loop's transition/sleep/process logic
// (spec §4.5's tick(target_state)).
func (p *Pipeline) Tick(target RunState) {
	if p.state != target {
		p.transition(target)
	}

	if p.state != Playing || p.stopRequested {
		return
	}

	p.lpf.SetCutoff(p.cfg.LPFCutoff)
	p.hpf.SetCutoff(p.cfg.HPFCutoff)

	now := clock.NowUs()
	dt := p.nextChunkDeadline - now
	if dt < 0 {
		dt = 0
	}

	sleepUs := dt
	if sleepUs > p.chunkSizeUs {
		sleepUs = p.chunkSizeUs
	}
	if sleepUs > 0 {
		time.Sleep(time.Duration(sleepUs) * time.Microsecond)
	}

	if p.preFill {
		for i := 0; i < p.bufferChunks-1; i++ {
			if p.processChunk() {
				break
			}
		}
		p.preFill = false
	}

	stoppedThisChunk := p.processChunk()

	if dt == 0 {
		p.underrunCount++
		if p.underrunCount >= p.bufferChunks {
			if !p.preFill {
				p.logger.Warn("playback underrun, re-priming buffer")
			}
			p.preFill = true
		}
	} else if p.underrunCount > 0 {
		p.underrunCount--
	}

	if stoppedThisChunk {
		p.stopRequested = true
	}

	if p.stopRequested {
		p.transition(Stopped)
	}
}

// transition applies a state change per spec §4.6. Failed preconditions log
// ERROR and leave the state unchanged; self-transitions are no-ops.
func (p *Pipeline) transition(target RunState) {
	if target == p.state {
		return
	}

	switch {
	case p.state == Stopped && target == Playing:
		if p.decoder == nil || p.sound == nil {
			p.logger.Error("cannot start playback: no decoder or sound device loaded")
			return
		}
		if err := p.negotiateChunkSize(); err != nil {
			p.logger.Error("chunk size negotiation failed", "err", err)
			return
		}

		p.bufferChunks = p.cfg.BufferChunks
		p.nextChunkDeadline = clock.NowUs()
		p.stopRequested = false
		p.preFill = true
		p.underrunCount = 0
		p.lap.Start()
		p.state = Playing
		p.logger.Info("playback started", "chunk_samples", p.chunkSamples, "chunk_size_us", p.chunkSizeUs)

	case p.state == Playing && target == Stopped:
		if p.decoder != nil {
			p.decoder.Close()
			p.decoder = nil
		}
		if p.sound != nil {
			p.sound.Close()
			p.sound = nil
		}
		p.lpf = nil
		p.hpf = nil
		p.state = Stopped
		p.logger.Info("playback stopped")

	case target == Paused || p.state == Paused:
		// Reserved: no side effects either direction (spec §4.6).
		p.state = target

	default:
		p.logger.Error("invalid state transition", "from", p.state, "to", target)
	}
}

// Load attaches a decoder and sound device for the next PLAYING transition.
// Must be called while STOPPED.
func (p *Pipeline) Load(d audioDecoder, s soundDevice) error {
	if p.state != Stopped {
		return fmt.Errorf("pipeline: cannot load while %s", p.state)
	}
	p.decoder = d
	p.sound = s
	p.lpf = biquad.New(float64(decoderRateOr(d, 44100)), p.cfg.LPFCutoff, 0.707, 0, biquad.LowPass)
	p.hpf = biquad.New(float64(decoderRateOr(d, 44100)), p.cfg.HPFCutoff, 0.707, 0, biquad.HighPass)
	return nil
}

func decoderRateOr(d audioDecoder, fallback int) int {
	if d == nil {
		return fallback
	}
	return d.SampleRate()
}

// negotiateChunkSize implements the once-per-session renegotiation in spec
// §4.5: ask the device for its nearest supported period, latch whatever it
// returns.
func (p *Pipeline) negotiateChunkSize() error {
	desired := int(p.cfg.ChunkSizeMs * float64(p.decoder.SampleRate()) / 1000)

	negotiated, err := p.sound.UpdateChannelData(float64(p.decoder.SampleRate()), p.decoder.Channels(), desired)
	if err != nil {
		return fmt.Errorf("negotiating chunk size: %w", err)
	}

	if negotiated != desired {
		p.logger.Warn("device adjusted chunk size", "desired", desired, "negotiated", negotiated)
	}

	p.chunkSamples = negotiated
	p.chunkSizeUs = int64(negotiated) * 1_000_000 / int64(p.decoder.SampleRate())

	channels := p.decoder.Channels()
	p.pcmBuf = make([]int16, p.chunkSamples*channels)
	p.lpfBuf = make([]int16, p.chunkSamples)
	p.hpfBuf = make([]int16, p.chunkSamples)

	return nil
}

// processChunk implements spec §4.5's process_chunk: read one chunk, filter
// it, submit the filtered frame to the actuator queue, and write the
// original PCM to the sound device. Returns true if this was the final
// chunk (decoder hit EOF/short read).
func (p *Pipeline) processChunk() bool {
	channels := p.decoder.Channels()

	n, err := p.decoder.ReadChunk(p.pcmBuf)
	framesRead := n / channels
	stopAfter := err != nil

	for i := 0; i < framesRead; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(p.pcmBuf[i*channels+c])
		}
		mono := sum / float64(channels)

		p.lpfBuf[i] = saturateInt16(p.lpf.Update(mono))
		p.hpfBuf[i] = saturateInt16(p.hpf.Update(mono))
	}

	if framesRead > 0 {
		p.queue.Push(queue.Frame{
			LPF: append([]int16(nil), p.lpfBuf[:framesRead]...),
			HPF: append([]int16(nil), p.hpfBuf[:framesRead]...),
		})
	}

	if werr := p.sound.Write(p.pcmBuf[:framesRead*channels]); werr != nil {
		p.logger.Warn("sound device underrun, recovering", "err", werr)
	}

	p.nextChunkDeadline += p.chunkSizeUs

	return stopAfter
}

func saturateInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
