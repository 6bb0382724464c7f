package compositor

import (
	"image"
	"math/rand/v2"
)

// Envelope is a per-scene pan/zoom animation: scale and pan each glide
// linearly from their start to end values over the scene's duration. One
// envelope is drawn at random per scene when an export starts and stays
// fixed for that scene, so every frame of the scene is deterministic.
type Envelope struct {
	StartScale float64
	EndScale   float64
	StartPanX  float64
	EndPanX    float64
	StartPanY  float64
	EndPanY    float64
}

// NewEnvelope draws a random animation envelope: a gentle zoom-in from
// around 1.0x to around 1.1x with a drift of up to 40px horizontally and
// 20px vertically in source-image space.
func NewEnvelope(rng *rand.Rand) Envelope {
	return Envelope{
		StartScale: 1.0 + rng.Float64()*0.1,
		EndScale:   1.1 + rng.Float64()*0.1,
		StartPanX:  (rng.Float64() - 0.5) * 80,
		EndPanX:    (rng.Float64() - 0.5) * 80,
		StartPanY:  (rng.Float64() - 0.5) * 40,
		EndPanY:    (rng.Float64() - 0.5) * 40,
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// At interpolates the envelope at the given progress in [0,1].
func (e Envelope) At(progress float64) (scale, panX, panY float64) {
	return lerp(e.StartScale, e.EndScale, progress),
		lerp(e.StartPanX, e.EndPanX, progress),
		lerp(e.StartPanY, e.EndPanY, progress)
}

// cropWindow computes the source rectangle for a zoomed, panned view of a
// w*h image: a window of size (w/scale, h/scale) centered and shifted by
// the pan, clamped so it never leaves the image.
func cropWindow(w, h int, scale, panX, panY float64) image.Rectangle {
	if scale < 1 {
		scale = 1
	}
	cw := float64(w) / scale
	ch := float64(h) / scale
	x := (float64(w)-cw)/2 - panX
	y := (float64(h)-ch)/2 - panY

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x+cw > float64(w) {
		x = float64(w) - cw
	}
	if y+ch > float64(h) {
		y = float64(h) - ch
	}

	return image.Rect(int(x), int(y), int(x+cw), int(y+ch))
}
