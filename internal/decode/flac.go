package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

type flacDecoder struct {
	file     *os.File
	stream   *flac.Stream
	channels int

	pending []int16 // leftover samples from a partially-consumed frame
}

func openFLAC(path string) (rawDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening flac: %w", err)
	}

	stream, err := flac.NewSeek(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding flac: %w", err)
	}

	return &flacDecoder{file: f, stream: stream, channels: int(stream.Info.NChannels)}, nil
}

func (fd *flacDecoder) SampleRate() int { return int(fd.stream.Info.SampleRate) }
func (fd *flacDecoder) Channels() int   { return fd.channels }

func (fd *flacDecoder) ReadFrames(dst []int16) (int, error) {
	frameCapacity := len(dst) / fd.channels
	var written int

	for written < frameCapacity {
		if len(fd.pending) == 0 {
			frame, err := fd.stream.ParseNext()
			if err != nil {
				if err == io.EOF {
					return written, io.EOF
				}
				return written, fmt.Errorf("reading flac frame: %w", err)
			}

			n := len(frame.Subframes[0].Samples)
			fd.pending = make([]int16, 0, n*fd.channels)
			for i := 0; i < n; i++ {
				for c := 0; c < fd.channels; c++ {
					fd.pending = append(fd.pending, int16(frame.Subframes[c].Samples[i]))
				}
			}
		}

		avail := len(fd.pending) / fd.channels
		take := frameCapacity - written
		if take > avail {
			take = avail
		}

		copy(dst[written*fd.channels:(written+take)*fd.channels], fd.pending[:take*fd.channels])
		fd.pending = fd.pending[take*fd.channels:]
		written += take
	}

	return written, nil
}

func (fd *flacDecoder) Close() error {
	return fd.file.Close()
}
