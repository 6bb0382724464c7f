package compositor

import (
	"bytes"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"
)

// --- Envelope ---

func TestNewEnvelopeRanges(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		e := NewEnvelope(rng)
		if e.StartScale < 1.0 || e.StartScale > 1.1 {
			t.Fatalf("StartScale %v out of [1.0, 1.1]", e.StartScale)
		}
		if e.EndScale < 1.1 || e.EndScale > 1.2 {
			t.Fatalf("EndScale %v out of [1.1, 1.2]", e.EndScale)
		}
		if e.StartPanX < -40 || e.StartPanX > 40 || e.EndPanX < -40 || e.EndPanX > 40 {
			t.Fatalf("pan X out of range: %+v", e)
		}
		if e.StartPanY < -20 || e.StartPanY > 20 || e.EndPanY < -20 || e.EndPanY > 20 {
			t.Fatalf("pan Y out of range: %+v", e)
		}
	}
}

func TestEnvelopeAt(t *testing.T) {
	e := Envelope{
		StartScale: 1.0, EndScale: 1.2,
		StartPanX: -10, EndPanX: 10,
		StartPanY: 20, EndPanY: 0,
	}
	scale, x, y := e.At(0)
	if scale != 1.0 || x != -10 || y != 20 {
		t.Errorf("At(0) = %v, %v, %v", scale, x, y)
	}
	scale, x, y = e.At(1)
	if scale != 1.2 || x != 10 || y != 0 {
		t.Errorf("At(1) = %v, %v, %v", scale, x, y)
	}
	scale, x, y = e.At(0.5)
	if scale != 1.1 || x != 0 || y != 10 {
		t.Errorf("At(0.5) = %v, %v, %v", scale, x, y)
	}
}

func TestCropWindowCentered(t *testing.T) {
	r := cropWindow(1600, 900, 2, 0, 0)
	if r.Dx() != 800 || r.Dy() != 450 {
		t.Errorf("crop size = %dx%d, want 800x450", r.Dx(), r.Dy())
	}
	if r.Min.X != 400 || r.Min.Y != 225 {
		t.Errorf("crop origin = %v, want (400, 225)", r.Min)
	}
}

func TestCropWindowClamped(t *testing.T) {
	full := image.Rect(0, 0, 1600, 900)
	for _, pan := range [][2]float64{{5000, 0}, {-5000, 0}, {0, 5000}, {0, -5000}} {
		r := cropWindow(1600, 900, 1.05, pan[0], pan[1])
		if !r.In(full) {
			t.Errorf("crop %v with pan %v leaves image bounds", r, pan)
		}
	}
}

// --- Renderer ---

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 7), B: 128, A: 255})
		}
	}
	return img
}

func TestDrawNilImageIsBlack(t *testing.T) {
	r, err := NewRenderer(160, 90)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	frame := r.NewFrame()
	r.Draw(frame, nil, Envelope{StartScale: 1, EndScale: 1.1}, 0.5, "")
	for i := 0; i < len(frame.Pix); i += 4 {
		if frame.Pix[i] != 0 || frame.Pix[i+1] != 0 || frame.Pix[i+2] != 0 {
			t.Fatalf("non-black pixel at offset %d", i)
		}
	}
}

func TestDrawDeterministic(t *testing.T) {
	r, err := NewRenderer(160, 90)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	env := NewEnvelope(rand.New(rand.NewPCG(7, 7)))
	img := testImage()

	a := r.NewFrame()
	b := r.NewFrame()
	r.Draw(a, img, env, 0.37, "A caption line")
	r.Draw(b, img, env, 0.37, "A caption line")
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("identical draws produced different pixels")
	}
}

func TestDrawCaptionChangesPixels(t *testing.T) {
	r, err := NewRenderer(320, 180)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	env := Envelope{StartScale: 1, EndScale: 1.1}

	plain := r.NewFrame()
	captioned := r.NewFrame()
	r.Draw(plain, nil, env, 0, "")
	r.Draw(captioned, nil, env, 0, "Hello")
	if bytes.Equal(plain.Pix, captioned.Pix) {
		t.Error("caption drew nothing")
	}
}

func TestDrawProgressMovesImage(t *testing.T) {
	r, err := NewRenderer(160, 90)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	env := Envelope{StartScale: 1.0, EndScale: 1.2, StartPanX: -30, EndPanX: 30}
	img := testImage()

	early := r.NewFrame()
	late := r.NewFrame()
	r.Draw(early, img, env, 0, "")
	r.Draw(late, img, env, 1, "")
	if bytes.Equal(early.Pix, late.Pix) {
		t.Error("animation envelope had no visible effect across progress")
	}
}
