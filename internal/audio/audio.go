package audio

import "time"

// Narration audio is raw 16-bit signed mono PCM at 24 kHz, the fixed format
// the speech backend produces. Playback and streaming advance in 20ms frames.
const (
	SampleRate    = 24000
	Channels      = 1
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 480                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// Buffer holds one scene's decoded narration samples.
type Buffer struct {
	Samples []int16
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(len(b.Samples)) * time.Second / SampleRate
}

// Seconds returns the playback length as a float, for progress ratios.
func (b *Buffer) Seconds() float64 {
	return float64(len(b.Samples)) / SampleRate
}

// Frames returns the number of 20ms frames needed to play the buffer,
// counting a trailing partial frame.
func (b *Buffer) Frames() int {
	return (len(b.Samples) + FrameSamples - 1) / FrameSamples
}

// Frame returns the i-th 20ms frame, zero-padded when the buffer ends
// mid-frame. Out-of-range indexes yield silence.
func (b *Buffer) Frame(i int) []int16 {
	frame := make([]int16, FrameSamples)
	start := i * FrameSamples
	if start < 0 || start >= len(b.Samples) {
		return frame
	}
	copy(frame, b.Samples[start:])
	return frame
}

// TotalDuration sums the playback length of a scene buffer sequence.
func TotalDuration(buffers []*Buffer) time.Duration {
	var total time.Duration
	for _, b := range buffers {
		total += b.Duration()
	}
	return total
}
