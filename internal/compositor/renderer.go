package compositor

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// Caption styling at the 1080p reference frame; both values scale with the
// actual output height.
const (
	refFontSize   = 52.0
	refBaselineUp = 80.0
	outlineRadius = 4.0
)

// Renderer draws scene frames at a fixed output resolution: a Ken Burns
// crop-stretch of the scene image under a stroked caption line.
type Renderer struct {
	width    int
	height   int
	face     font.Face
	fontSize float64
}

// NewRenderer creates a renderer for the given output size. The caption
// face is the embedded Go Bold font, so rendering needs no font files on
// the host.
func NewRenderer(width, height int) (*Renderer, error) {
	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse caption font: %w", err)
	}
	size := refFontSize * float64(height) / 1080
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build caption face: %w", err)
	}
	return &Renderer{width: width, height: height, face: face, fontSize: size}, nil
}

// NewFrame allocates an RGBA frame of the output size.
func (r *Renderer) NewFrame() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, r.width, r.height))
}

// Draw composites one frame into dst: black clear, the scene image cropped
// per the envelope at the given progress and stretched to fill the frame,
// then the caption bottom-centered. A nil img leaves a black background.
// Deterministic for identical inputs.
func (r *Renderer) Draw(dst *image.RGBA, img image.Image, env Envelope, progress float64, caption string) {
	dc := gg.NewContextForRGBA(dst)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	if img != nil {
		b := img.Bounds()
		scale, panX, panY := env.At(progress)
		src := cropWindow(b.Dx(), b.Dy(), scale, panX, panY).Add(b.Min)
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)
	}

	if caption == "" {
		return
	}

	dc.SetFontFace(r.face)
	cx := float64(r.width) / 2
	cy := float64(r.height) - refBaselineUp*float64(r.height)/1080

	// White outline behind the fill: the string drawn in a ring of offsets.
	dc.SetRGB(1, 1, 1)
	for _, off := range outlineOffsets {
		dc.DrawStringAnchored(caption, cx+off[0], cy+off[1], 0.5, 0.5)
	}
	dc.SetHexColor("#FACC15")
	dc.DrawStringAnchored(caption, cx, cy, 0.5, 0.5)
}

var outlineOffsets = [][2]float64{
	{-outlineRadius, 0}, {outlineRadius, 0},
	{0, -outlineRadius}, {0, outlineRadius},
	{-3, -3}, {-3, 3}, {3, -3}, {3, 3},
}
