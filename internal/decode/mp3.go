package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// mp3Decoder wraps go-mp3, which exposes decoded PCM16 stereo as a plain
// io.Reader of little-endian bytes.
type mp3Decoder struct {
	file    *os.File
	decoder *mp3.Decoder
}

func openMP3(path string) (rawDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mp3: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding mp3: %w", err)
	}

	return &mp3Decoder{file: f, decoder: dec}, nil
}

func (m *mp3Decoder) SampleRate() int { return m.decoder.SampleRate() }
func (m *mp3Decoder) Channels() int  { return 2 } // go-mp3 always decodes to stereo

func (m *mp3Decoder) ReadFrames(dst []int16) (int, error) {
	raw := make([]byte, len(dst)*2)

	read, err := io.ReadFull(m.decoder, raw)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, fmt.Errorf("reading mp3 pcm: %w", err)
	}

	n := read / 4 // 2 bytes/sample * 2 channels
	for i := 0; i < n*2; i++ {
		dst[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}

	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, io.EOF
	}
	return n, nil
}

func (m *mp3Decoder) Close() error {
	return m.file.Close()
}
