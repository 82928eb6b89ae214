package audio

import "encoding/binary"

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// FromFloat appends stereo float samples in [-1,1] to dst as interleaved
// int16, scaled by gain and clipped to the int16 range.
func FromFloat(dst []int16, src [][2]float64, gain float64) []int16 {
	for _, s := range src {
		dst = append(dst, toInt16(s[0]*gain), toInt16(s[1]*gain))
	}
	return dst
}

func toInt16(v float64) int16 {
	v *= 32767
	if v > 32767 {
		return 32767
	} else if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Framer slices a continuous sample stream into FrameSamples-sized frames.
type Framer struct {
	buf []int16
}

// Push appends interleaved samples and returns every complete frame.
// Returned frames are freshly allocated and safe to hand to other goroutines.
func (f *Framer) Push(samples []int16) [][]int16 {
	f.buf = append(f.buf, samples...)
	var out [][]int16
	for len(f.buf) >= FrameSamples {
		frame := make([]int16, FrameSamples)
		copy(frame, f.buf[:FrameSamples])
		out = append(out, frame)
		f.buf = f.buf[FrameSamples:]
	}
	if len(f.buf) == 0 {
		f.buf = f.buf[:0:0]
	}
	return out
}

// Buffered returns the number of samples waiting for a full frame.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset drops any partial frame.
func (f *Framer) Reset() {
	f.buf = nil
}
