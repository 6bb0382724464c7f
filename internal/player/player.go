package player

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fabulaforge/fabula/internal/audio"
	"github.com/fabulaforge/fabula/internal/captions"
)

// State is the playback lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateReady
	StatePlaying
	StatePaused
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "idle"
	}
}

// Status is a snapshot of the player for the control API.
type Status struct {
	State      State
	SceneIndex int
	SceneCount int
	Caption    string
	Position   time.Duration // elapsed within the current scene
	Duration   time.Duration // current scene length
}

// Player drives sequential gapless playback of per-scene narration,
// emitting 20ms PCM frames into a sink channel at real-time rate. The frame
// cursor doubles as the playback clock: elapsed time within a scene is
// framesEmitted * FrameDuration, which keeps captions sample-accurate to
// the audio actually sent downstream.
type Player struct {
	sink chan<- []int16

	mu       sync.Mutex
	buffers  []*audio.Buffer
	segments [][]captions.Segment
	state    State
	index    int
	cursor   int  // frames emitted in the current scene; also the resume offset
	manual   bool // set by Pause before stopping, read by the scene-end path
	closed   bool
}

// New creates a ready player for the given scenes. Paragraph i narrates
// buffer i; both slices must have equal length. Frames are written to sink,
// which the player never closes (it is shared with future sessions).
func New(paragraphs []string, buffers []*audio.Buffer, sink chan<- []int16) *Player {
	segs := make([][]captions.Segment, len(paragraphs))
	for i, text := range paragraphs {
		segs[i] = captions.Split(text)
	}
	return &Player{
		sink:     sink,
		buffers:  buffers,
		segments: segs,
		state:    StateReady,
	}
}

// Run emits frames at real-time rate until ctx is cancelled or the player
// is closed. Blocks.
func (p *Player) Run(ctx context.Context) {
	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, ok := p.step()
		if p.isClosed() {
			return
		}
		if !ok {
			continue
		}

		select {
		case p.sink <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// step advances playback by one tick: either the next frame of the current
// scene, or the scene-end transition when the cursor has run past the
// buffer. Returns false when nothing is playing.
func (p *Player) step() ([]int16, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.state != StatePlaying {
		return nil, false
	}
	if p.index >= len(p.buffers) {
		p.state = StateFinished
		return nil, false
	}

	buf := p.buffers[p.index]
	if p.cursor >= buf.Frames() {
		p.sceneEnded()
		return nil, false
	}

	frame := buf.Frame(p.cursor)
	p.cursor++
	return frame, true
}

// sceneEnded handles the end-of-scene notification. Both a natural end and
// a manual stop funnel through here; the manual flag decides whether the
// cursor auto-advances. Must be called with mu held.
func (p *Player) sceneEnded() {
	if p.manual {
		return
	}
	p.cursor = 0
	if p.index+1 >= len(p.buffers) {
		p.state = StateFinished
		log.Printf("Playback finished after scene %d", p.index+1)
		return
	}
	p.index++
	log.Printf("Scene %d playing", p.index+1)
}

// Play starts or resumes playback: first play from scene 0, resume from the
// stored offset after a pause, or replay from the start when finished.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	switch p.state {
	case StateReady, StatePaused:
		p.manual = false
		p.state = StatePlaying
	case StateFinished:
		p.replayLocked()
	}
}

// Pause stops playback immediately and records the resume offset. The
// manual flag is raised before the state change so a scene-end notification
// racing this call cannot auto-advance.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.state != StatePlaying {
		return
	}
	p.manual = true
	p.state = StatePaused
}

// Replay restarts playback at scene 0, offset 0.
func (p *Player) Replay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.replayLocked()
}

func (p *Player) replayLocked() {
	p.cursor = 0
	p.index = 0
	p.manual = false
	p.state = StatePlaying
}

// Close tears the player down. Further operations are no-ops, not errors.
func (p *Player) Close() {
	p.mu.Lock()
	p.closed = true
	p.state = StateIdle
	p.mu.Unlock()
}

func (p *Player) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Caption returns the live caption for the current playback position. Empty
// while idle, ready, or finished; frozen at its last value while paused.
func (p *Player) Caption() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captionLocked()
}

func (p *Player) captionLocked() string {
	if p.state != StatePlaying && p.state != StatePaused {
		return ""
	}
	if p.index >= len(p.buffers) {
		return ""
	}
	buf := p.buffers[p.index]
	if len(buf.Samples) == 0 {
		return ""
	}
	elapsed := time.Duration(p.cursor) * audio.FrameDuration
	progress := elapsed.Seconds() / buf.Seconds()
	if progress > 1 {
		progress = 1
	}
	return captions.Reveal(p.segments[p.index], progress)
}

// Status returns a consistent snapshot for the control API.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		State:      p.state,
		SceneIndex: p.index,
		SceneCount: len(p.buffers),
		Caption:    p.captionLocked(),
		Position:   time.Duration(p.cursor) * audio.FrameDuration,
	}
	if len(p.buffers) > 0 {
		st.Duration = p.buffers[p.index].Duration()
	}
	return st
}
