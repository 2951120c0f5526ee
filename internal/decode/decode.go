// Package decode implements the audio decoder contract from spec §6: open a
// file, read fixed-size PCM16 chunks, report sample rate/channels/timestamp,
// and guarantee the canonical sample rate regardless of source format.
package decode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// CanonicalSampleRate is the single sample rate the rest of the pipeline
// assumes (spec §3).
const CanonicalSampleRate = 44100

// ErrShortRead is returned (alongside whatever samples were read) when a
// chunk read comes back short and the source reported no error of its own;
// if it did (e.g. io.EOF), that error is returned instead. Per spec §7 /
// Open Question (c), any short
// read is treated as EOF — the caller finishes the chunk with partial data
// and marks stop-after-this-chunk.
var ErrShortRead = errors.New("decode: short read")

// rawDecoder is the per-format decode primitive: interleaved PCM16 samples
// at the file's native rate/channels, not yet resampled.
type rawDecoder interface {
	SampleRate() int
	Channels() int
	// ReadFrames reads up to len(dst)/Channels() interleaved frames,
	// returning the number of frames actually read. At end of stream an
	// implementation returns either io.EOF or a short (possibly zero) count
	// with a nil error; callers treat both as exhaustion.
	ReadFrames(dst []int16) (int, error)
	Close() error
}

// Decoder is the canonical, resampled decoder handed to internal/pipeline.
type Decoder struct {
	raw        rawDecoder
	resampler  *resampler
	channels   int
	framesRead int64
}

// Open dispatches on file extension to a format-specific raw decoder, wraps
// it in a resampler if the source isn't already at CanonicalSampleRate, and
// seeks to seekUs if it is positive.
func Open(path string, seekUs int64) (*Decoder, error) {
	raw, err := openRaw(path)
	if err != nil {
		return nil, err
	}

	d := &Decoder{raw: raw, channels: raw.Channels()}
	if raw.SampleRate() != CanonicalSampleRate {
		d.resampler = newResampler(raw.SampleRate(), CanonicalSampleRate, raw.Channels())
	}

	if seekUs > 0 {
		if err := d.skipTo(seekUs); err != nil {
			raw.Close()
			return nil, err
		}
	}

	return d, nil
}

func openRaw(path string) (rawDecoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return openWav(path)
	case ".mp3":
		return openMP3(path)
	case ".flac":
		return openFLAC(path)
	case ".ogg":
		return openVorbis(path)
	default:
		return nil, fmt.Errorf("decode: unsupported file extension %q", filepath.Ext(path))
	}
}

// SampleRate always reports CanonicalSampleRate — the decoder's entire job
// is to guarantee it.
func (d *Decoder) SampleRate() int {
	return CanonicalSampleRate
}

// Channels reports the source channel count (preserved; downmixing to mono
// happens in internal/pipeline, not here).
func (d *Decoder) Channels() int {
	return d.channels
}

// CurrentTimestampUs reports playback position derived from frames emitted
// so far at the canonical rate.
func (d *Decoder) CurrentTimestampUs() int64 {
	return d.framesRead * 1_000_000 / CanonicalSampleRate
}

// ReadChunk fills dst with up to len(dst) interleaved PCM16 samples
// (frames*channels), returning the number of samples actually written. A
// short or zero read means EOF: the caller proceeds with the partial chunk
// and stops after it (spec §4.5 process_chunk).
func (d *Decoder) ReadChunk(dst []int16) (int, error) {
	frameCapacity := len(dst) / d.channels
	if frameCapacity == 0 {
		return 0, nil
	}

	var n int
	var err error
	if d.resampler != nil {
		n, err = d.resampler.readFrames(d.raw, dst, frameCapacity)
	} else {
		n, err = d.raw.ReadFrames(dst[:frameCapacity*d.channels])
	}

	d.framesRead += int64(n)

	samples := n * d.channels
	if err != nil || n < frameCapacity {
		if err == nil {
			err = ErrShortRead
		}
		return samples, err
	}
	return samples, nil
}

// skipTo discards samples until CurrentTimestampUs reaches target.
func (d *Decoder) skipTo(targetUs int64) error {
	scratch := make([]int16, 4096*d.channels)
	for d.CurrentTimestampUs() < targetUs {
		n, err := d.ReadChunk(scratch)
		if n == 0 || err != nil {
			return nil
		}
	}
	return nil
}

// Close releases the underlying file/decoder.
func (d *Decoder) Close() error {
	return d.raw.Close()
}
