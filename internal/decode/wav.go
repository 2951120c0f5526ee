package decode

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type wavDecoder struct {
	file    *os.File
	decoder *wav.Decoder
	channels int
}

func openWav(path string) (rawDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("decode: %q is not a valid wav file", path)
	}
	dec.ReadInfo()

	return &wavDecoder{file: f, decoder: dec, channels: int(dec.NumChans)}, nil
}

func (w *wavDecoder) SampleRate() int { return int(w.decoder.SampleRate) }
func (w *wavDecoder) Channels() int   { return w.channels }

func (w *wavDecoder) ReadFrames(dst []int16) (int, error) {
	frameCapacity := len(dst) / w.channels
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: w.channels, SampleRate: int(w.decoder.SampleRate)},
		Data:   make([]int, frameCapacity*w.channels),
	}

	if err := w.decoder.PCMBuffer(buf); err != nil {
		return 0, fmt.Errorf("reading wav pcm: %w", err)
	}

	n := len(buf.Data) / w.channels
	for i, s := range buf.Data {
		dst[i] = int16(s)
	}

	return n, nil
}

func (w *wavDecoder) Close() error {
	return w.file.Close()
}
