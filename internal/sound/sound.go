// Package sound wraps the PortAudio output device behind the contract
// described in spec §6 (update_channel_data / write / close), matching
// original_source/b3/audioDriver.h.
package sound

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

// ErrUnderrun is returned by Write when the backend reports an output
// buffer under-run. The caller (internal/pipeline) treats this as a
// transient condition: log and continue, per spec §7.
var ErrUnderrun = errors.New("sound: output underrun")

// Device is an interleaved PCM16 output stream, driven via blocking
// Read/Write rather than PortAudio's callback mode.
type Device struct {
	stream          *portaudio.Stream
	outBuf          []int16
	sampleRate      float64
	channels        int
	framesPerPeriod int
}

// Open initializes PortAudio and opens the default output device at the
// requested (rate, channels, period), negotiating the period PortAudio
// actually grants. If no device is reachable, Open returns a non-nil error;
// callers fall back to mock sound output rather than failing the whole
// pipeline (spec §7 failure mode a).
func Open(sampleRate float64, channels int, framesPerPeriod int) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	d := &Device{sampleRate: sampleRate, channels: channels}

	if err := d.open(sampleRate, channels, framesPerPeriod); err != nil {
		portaudio.Terminate()
		return nil, err
	}

	return d, nil
}

func (d *Device) open(sampleRate float64, channels, framesPerPeriod int) error {
	outDevice, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return fmt.Errorf("no default output device: %w", err)
	}

	params := portaudio.HighLatencyParameters(nil, outDevice)
	params.Output.Channels = channels
	params.SampleRate = sampleRate
	params.FramesPerBuffer = framesPerPeriod

	d.outBuf = make([]int16, framesPerPeriod*channels)

	stream, err := portaudio.OpenStream(params, &d.outBuf)
	if err != nil {
		return fmt.Errorf("portaudio open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("portaudio start stream: %w", err)
	}

	d.stream = stream
	d.sampleRate = sampleRate
	d.channels = channels
	d.framesPerPeriod = framesPerPeriod

	return nil
}

// UpdateChannelData negotiates the device's period size, returning the
// frames-per-period the device actually settled on. Callers must latch this
// value for the session (spec §4.5 chunk-size negotiation).
func (d *Device) UpdateChannelData(sampleRate float64, channels, framesPerPeriod int) (int, error) {
	if d.stream != nil {
		if err := d.stream.Close(); err != nil {
			return 0, fmt.Errorf("closing previous stream: %w", err)
		}
	}

	if err := d.open(sampleRate, channels, framesPerPeriod); err != nil {
		return 0, err
	}

	return framesPerPeriod, nil
}

// Write pushes interleaved PCM16 samples to the device, one bound-buffer's
// worth at a time. Under-runs surface as ErrUnderrun so the pipeline can
// recover and continue, rather than aborting playback.
func (d *Device) Write(pcm []int16) error {
	n := copy(d.outBuf, pcm)
	for i := n; i < len(d.outBuf); i++ {
		d.outBuf[i] = 0
	}

	if err := d.stream.Write(); err != nil {
		if errors.Is(err, portaudio.OutputUnderflowed) {
			return ErrUnderrun
		}
		return fmt.Errorf("portaudio write: %w", err)
	}
	return nil
}

// FramesPerPeriod returns the negotiated period size.
func (d *Device) FramesPerPeriod() int {
	return d.framesPerPeriod
}

// Close stops the stream and releases PortAudio's global state.
func (d *Device) Close() error {
	if d.stream == nil {
		return nil
	}
	if err := d.stream.Stop(); err != nil {
		return err
	}
	if err := d.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// NullDevice is a no-op sound sink: negotiation always grants the requested
// period, writes are discarded. cmd/b3 falls back to this when
// the real PortAudio device cannot be opened, mirroring internal/actuator's
// GPIO mock mode (spec §7 failure mode a) — the pipeline still runs
// end-to-end (decode, filter, actuate) with no audible output.
type NullDevice struct {
	logger *log.Logger
}

// NewNullDevice constructs a NullDevice.
func NewNullDevice(logger *log.Logger) *NullDevice {
	return &NullDevice{logger: logger}
}

// UpdateChannelData always grants the requested period.
func (n *NullDevice) UpdateChannelData(sampleRate float64, channels, framesPerPeriod int) (int, error) {
	return framesPerPeriod, nil
}

// Write discards the samples.
func (n *NullDevice) Write(pcm []int16) error {
	return nil
}

// Close is a no-op.
func (n *NullDevice) Close() error {
	return nil
}
