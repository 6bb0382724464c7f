// Package export renders a finished story to a video file. Frames are
// composited in-process and piped to ffmpeg as raw RGBA; the narration is
// handed over as a single headerless PCM file so ffmpeg muxes both in one
// pass.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/fabulaforge/fabula/internal/audio"
	"github.com/fabulaforge/fabula/internal/captions"
	"github.com/fabulaforge/fabula/internal/compositor"
	"github.com/fabulaforge/fabula/internal/story"
)

// ErrNoEncoder means ffmpeg is not installed on this host.
var ErrNoEncoder = errors.New("export: ffmpeg not found in PATH")

// Format names the container and codec pair for one output flavor.
type Format struct {
	Ext        string
	VideoCodec string
	AudioCodec string
}

var (
	formatMP4  = Format{Ext: "mp4", VideoCodec: "libx264", AudioCodec: "aac"}
	formatWebM = Format{Ext: "webm", VideoCodec: "libvpx", AudioCodec: "libopus"}
)

// ProgressFunc receives the overall export progress in percent, 0 to 100.
type ProgressFunc func(percent float64)

// Options configure one exporter instance.
type Options struct {
	Width     int
	Height    int
	FPS       int
	OutputDir string
}

// Exporter renders stories to video files. Safe for sequential reuse; a
// single export runs at a time.
type Exporter struct {
	opts     Options
	renderer *compositor.Renderer
	rng      *rand.Rand
}

// New builds an exporter, loading the caption typeface for the requested
// frame size.
func New(opts Options) (*Exporter, error) {
	r, err := compositor.NewRenderer(opts.Width, opts.Height)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return &Exporter{
		opts:     opts,
		renderer: r,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

// Export renders every scene of st in order and writes the result under the
// configured output directory, returning the file path. The narration is
// decoded fresh from the story so a paused or mid-scene player never bleeds
// into the output. Scene images that fail to decode degrade to a black
// backdrop instead of aborting the run.
func (e *Exporter) Export(ctx context.Context, st *story.Story, onProgress ProgressFunc) (string, error) {
	if onProgress == nil {
		onProgress = func(float64) {}
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return "", ErrNoEncoder
	}
	if len(st.Scenes) == 0 {
		return "", errors.New("export: story has no scenes")
	}

	buffers := make([]*audio.Buffer, len(st.Scenes))
	images := make([]image.Image, len(st.Scenes))
	segments := make([][]captions.Segment, len(st.Scenes))
	for i, sc := range st.Scenes {
		buf, err := audio.DecodePCM(sc.AudioB64)
		if err != nil {
			return "", fmt.Errorf("export: scene %d audio: %w", i+1, err)
		}
		buffers[i] = buf
		segments[i] = captions.Split(sc.Text)

		img, err := decodeImageRef(sc.ImageRef)
		if err != nil {
			log.Printf("export: scene %d image unusable, using black backdrop: %v", i+1, err)
		}
		images[i] = img
	}
	total := audio.TotalDuration(buffers).Seconds()

	pcmPath := filepath.Join(os.TempDir(), "fabula-"+uuid.NewString()+".pcm")
	if err := writePCM(pcmPath, buffers); err != nil {
		return "", err
	}
	defer os.Remove(pcmPath)

	format := detectFormat()
	outPath := filepath.Join(e.opts.OutputDir, sanitizeFilename(st.Title)+"."+format.Ext)

	pr, pw := io.Pipe()
	renderErr := make(chan error, 1)
	go func() {
		renderErr <- e.renderFrames(ctx, pw, buffers, images, segments, total, onProgress)
	}()

	videoIn := ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", e.opts.Width, e.opts.Height),
		"framerate": e.opts.FPS,
	})
	audioIn := ffmpeg.Input(pcmPath, ffmpeg.KwArgs{
		"f":  "s16le",
		"ar": audio.SampleRate,
		"ac": audio.Channels,
	})
	err := ffmpeg.Output([]*ffmpeg.Stream{videoIn, audioIn}, outPath, ffmpeg.KwArgs{
		"c:v":     format.VideoCodec,
		"pix_fmt": "yuv420p",
		"c:a":     format.AudioCodec,
		"b:a":     "192k",
	}).OverWriteOutput().WithInput(pr).Silent(true).Run()

	// If ffmpeg quit early the renderer may still be blocked on a pipe
	// write; closing the read end unblocks it.
	pr.Close()

	if rerr := <-renderErr; rerr != nil {
		os.Remove(outPath)
		return "", rerr
	}
	if err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("export: ffmpeg: %w", err)
	}

	onProgress(100)
	return outPath, nil
}

// renderFrames draws every scene at the configured frame rate and streams
// raw RGBA to w. Each scene gets its own random camera envelope, matching
// the live preview's motion style. Frame counts come from the cumulative
// audio timeline, not per-scene rounding, so the video track never drifts
// more than one frame from the narration.
func (e *Exporter) renderFrames(ctx context.Context, w *io.PipeWriter, buffers []*audio.Buffer, images []image.Image, segments [][]captions.Segment, total float64, onProgress ProgressFunc) error {
	frame := e.renderer.NewFrame()
	fps := float64(e.opts.FPS)

	emitted := 0
	var completed float64
	for i, buf := range buffers {
		env := compositor.NewEnvelope(e.rng)
		secs := buf.Seconds()
		frames := sceneFrameCount(completed+secs, fps, emitted)
		for f := 0; f < frames; f++ {
			select {
			case <-ctx.Done():
				w.CloseWithError(ctx.Err())
				return ctx.Err()
			default:
			}

			elapsed := float64(f) / fps
			sceneProgress := elapsed / secs
			if sceneProgress > 1 {
				sceneProgress = 1
			}
			caption := captions.Reveal(segments[i], sceneProgress)
			e.renderer.Draw(frame, images[i], env, sceneProgress, caption)

			if _, err := w.Write(frame.Pix); err != nil {
				w.CloseWithError(err)
				return fmt.Errorf("export: write frame: %w", err)
			}
			emitted++
			onProgress(percent(completed+elapsed, total))
		}
		completed += secs
	}
	return w.Close()
}

// sceneFrameCount returns how many frames the scene ending at cumEnd
// seconds gets, given the frames already emitted for earlier scenes.
// Rounding against the cumulative timeline keeps the total within half a
// frame of the audio length and stops per-scene rounding from stacking up.
func sceneFrameCount(cumEnd, fps float64, emitted int) int {
	n := int(math.Round(cumEnd*fps)) - emitted
	if n < 0 {
		return 0
	}
	return n
}

// percent converts elapsed seconds over total seconds to a percentage,
// clamped to [0, 100].
func percent(done, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := done / total * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// writePCM concatenates the scene buffers into one headerless little-endian
// 16-bit file.
func writePCM(path string, buffers []*audio.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: temp audio: %w", err)
	}
	for _, buf := range buffers {
		if _, err := f.Write(audio.SamplesToBytes(buf.Samples)); err != nil {
			f.Close()
			return fmt.Errorf("export: temp audio: %w", err)
		}
	}
	return f.Close()
}

// detectFormat probes the local ffmpeg build for H.264 support and falls
// back to WebM when it is absent.
func detectFormat() Format {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		return formatWebM
	}
	if hasEncoder(string(out), formatMP4.VideoCodec) {
		return formatMP4
	}
	return formatWebM
}

// hasEncoder reports whether the `ffmpeg -encoders` listing names enc. The
// encoder name is the second column of each listing line.
func hasEncoder(listing, enc string) bool {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == enc {
			return true
		}
	}
	return false
}

// sanitizeFilename maps a story title to a safe file stem: every
// non-alphanumeric rune becomes an underscore and the result is lowercased.
func sanitizeFilename(title string) string {
	if title == "" {
		return "story"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

var imageClient = &http.Client{Timeout: 30 * time.Second}

// decodeImageRef resolves a scene image reference: a data URL
// ("data:image/png;base64,..."), a fetchable http(s) URL, or plain base64
// without a prefix.
func decodeImageRef(ref string) (image.Image, error) {
	if ref == "" {
		return nil, errors.New("empty image reference")
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return fetchImage(ref)
	}
	payload := ref
	if strings.HasPrefix(ref, "data:") {
		_, after, ok := strings.Cut(ref, ",")
		if !ok {
			return nil, errors.New("malformed data URL")
		}
		payload = after
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func fetchImage(url string) (image.Image, error) {
	resp, err := imageClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
