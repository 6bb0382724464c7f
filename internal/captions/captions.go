package captions

import (
	"math"
	"strings"
	"unicode"
)

// boundaryEpsilon absorbs float rounding at segment edges so a progress
// value that lands exactly on a boundary still matches the earlier segment.
const boundaryEpsilon = 0.001

// Segment is a sub-phrase of a scene's narration with a proportional time
// window. Ratios are fractions of the scene's total audio duration, derived
// from character counts rather than spoken timing.
type Segment struct {
	Text       string
	StartRatio float64
	EndRatio   float64
}

func isDelimiter(r rune) bool {
	switch r {
	case '.', '!', '?', ',', '\n':
		return true
	}
	return false
}

// Split breaks narration text into caption segments at sentence and clause
// boundaries. Each raw chunk keeps its trailing punctuation run and any
// whitespace that follows it, so the ratio windows of consecutive segments
// tile [0,1] exactly. Chunks that trim to nothing are dropped. Empty input
// yields no segments.
func Split(text string) []Segment {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	var segs []Segment
	consumed := 0
	windowStart := 0 // raw position where the next emitted segment's window opens
	i := 0
	for i < total {
		start := i
		for i < total && !isDelimiter(runes[i]) {
			i++
		}
		for i < total && isDelimiter(runes[i]) {
			i++
		}
		for i < total && unicode.IsSpace(runes[i]) && runes[i] != '\n' {
			i++
		}

		raw := runes[start:i]
		consumed += len(raw)

		trimmed := strings.TrimSpace(string(raw))
		if trimmed == "" {
			// Whitespace-only chunk: its window merges into the next segment.
			continue
		}
		segs = append(segs, Segment{
			Text:       trimmed,
			StartRatio: float64(windowStart) / float64(total),
			EndRatio:   math.Min(float64(consumed)/float64(total), 1),
		})
		windowStart = consumed
	}

	// A trailing whitespace-only chunk would otherwise leave the final
	// window short of the scene end.
	if len(segs) > 0 {
		segs[len(segs)-1].EndRatio = 1
	}
	return segs
}

// Reveal returns the caption visible at the given playback progress: the
// leading characters of the matching segment, proportional to how far
// progress has travelled through that segment's window. Progress outside
// every window yields an empty caption.
func Reveal(segs []Segment, progress float64) string {
	for _, seg := range segs {
		if progress < seg.StartRatio || progress > seg.EndRatio+boundaryEpsilon {
			continue
		}
		span := seg.EndRatio - seg.StartRatio
		if span <= 0 {
			return seg.Text
		}
		frac := (progress - seg.StartRatio) / span
		if frac > 1 {
			frac = 1
		}
		runes := []rune(seg.Text)
		show := int(math.Floor(float64(len(runes)) * frac))
		if show > len(runes) {
			show = len(runes)
		}
		return string(runes[:show])
	}
	return ""
}
