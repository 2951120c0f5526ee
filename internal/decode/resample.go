package decode

// resampler converts a rawDecoder's native sample rate to a target rate via
// linear interpolation, per channel, pulling more source frames from the
// wrapped rawDecoder as needed.
type resampler struct {
	srcRate, dstRate int
	channels         int

	srcBuf   []int16 // leftover unconsumed source frames, interleaved
	srcFrames int
	pos      float64 // fractional read position in srcBuf, in source frames
	ratio    float64 // srcRate / dstRate
}

func newResampler(srcRate, dstRate, channels int) *resampler {
	return &resampler{
		srcRate:  srcRate,
		dstRate:  dstRate,
		channels: channels,
		ratio:    float64(srcRate) / float64(dstRate),
	}
}

// readFrames fills dst with up to wantFrames resampled frames, pulling
// additional raw source frames from raw as needed. Returns frames written.
func (r *resampler) readFrames(raw rawDecoder, dst []int16, wantFrames int) (int, error) {
	var written int
	var lastErr error

	for written < wantFrames {
		// Ensure at least 2 source frames are available ahead of pos for
		// interpolation; refill from raw otherwise.
		for r.srcFrames < int(r.pos)+2 {
			chunk := make([]int16, 4096*r.channels)
			n, err := raw.ReadFrames(chunk)
			if n > 0 {
				r.appendSource(chunk[:n*r.channels], n)
			}
			if err != nil {
				lastErr = err
				break
			}
			if n == 0 {
				lastErr = ErrShortRead
				break
			}
		}

		if r.srcFrames < int(r.pos)+2 {
			// Not enough source left to interpolate another frame.
			break
		}

		i0 := int(r.pos)
		frac := r.pos - float64(i0)

		for c := 0; c < r.channels; c++ {
			a := float64(r.srcBuf[i0*r.channels+c])
			b := float64(r.srcBuf[(i0+1)*r.channels+c])
			dst[written*r.channels+c] = int16(a + (b-a)*frac)
		}

		written++
		r.pos += r.ratio
	}

	r.dropConsumed()

	if written == 0 && lastErr != nil {
		return 0, lastErr
	}
	return written, nil
}

func (r *resampler) appendSource(frames []int16, n int) {
	r.srcBuf = append(r.srcBuf, frames...)
	r.srcFrames += n
}

// dropConsumed discards fully-consumed leading source frames to keep srcBuf
// bounded, rebasing pos accordingly.
func (r *resampler) dropConsumed() {
	consumedFrames := int(r.pos)
	if consumedFrames == 0 {
		return
	}
	if consumedFrames > r.srcFrames {
		consumedFrames = r.srcFrames
	}

	r.srcBuf = r.srcBuf[consumedFrames*r.channels:]
	r.srcFrames -= consumedFrames
	r.pos -= float64(consumedFrames)
}
