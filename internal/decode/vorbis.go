package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// vorbisDecoder wraps jfreymuth/oggvorbis, which decodes to float32 samples
// in [-1, 1]; these are scaled to int16 here.
type vorbisDecoder struct {
	file   *os.File
	reader *oggvorbis.Reader

	scratch []float32
}

func openVorbis(path string) (rawDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ogg: %w", err)
	}

	r, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding ogg: %w", err)
	}

	return &vorbisDecoder{file: f, reader: r}, nil
}

func (v *vorbisDecoder) SampleRate() int { return v.reader.SampleRate() }
func (v *vorbisDecoder) Channels() int   { return v.reader.Channels() }

func (v *vorbisDecoder) ReadFrames(dst []int16) (int, error) {
	if len(v.scratch) < len(dst) {
		v.scratch = make([]float32, len(dst))
	}

	n, err := v.reader.Read(v.scratch[:len(dst)])
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading ogg pcm: %w", err)
	}

	for i := 0; i < n; i++ {
		dst[i] = floatToInt16(v.scratch[i])
	}

	return n / v.Channels(), nil
}

func floatToInt16(f float32) int16 {
	v := f * 32767
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func (v *vorbisDecoder) Close() error {
	return v.file.Close()
}
