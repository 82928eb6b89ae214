package audio

import "time"

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// FramesIn returns how many whole 20ms frames fit in d.
func FramesIn(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / FrameDuration)
}
