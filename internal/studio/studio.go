// Package studio owns the live session: the current story, its player, and
// the background generation and export jobs. All mutation goes through one
// mutex so HTTP handlers can poll and poke it concurrently.
package studio

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/fabulaforge/fabula/internal/audio"
	"github.com/fabulaforge/fabula/internal/export"
	"github.com/fabulaforge/fabula/internal/player"
	"github.com/fabulaforge/fabula/internal/producer"
	"github.com/fabulaforge/fabula/internal/story"
)

var (
	// ErrGenerating means a generation run is already in flight.
	ErrGenerating = errors.New("studio: generation already in progress")
	// ErrExporting means an export is already in flight.
	ErrExporting = errors.New("studio: export already in progress")
	// ErrNoStory means an operation needs a loaded story and there is none.
	ErrNoStory = errors.New("studio: no story loaded")
)

// Exporter is the slice of the export package the studio needs.
type Exporter interface {
	Export(ctx context.Context, st *story.Story, onProgress export.ProgressFunc) (string, error)
}

// Studio coordinates one producer session end to end.
type Studio struct {
	backend  producer.Backend
	exporter Exporter
	sink     chan []int16

	mu     sync.Mutex
	ctx    context.Context
	story  *story.Story
	player *player.Player

	generating bool
	genStep    string
	genErr     string

	exporting  bool
	exportPct  float64
	exportPath string
	exportErr  string
}

// Status is a snapshot of the whole session for the UI poll loop.
type Status struct {
	Generating    bool    `json:"generating"`
	Step          string  `json:"step,omitempty"`
	GenerateError string  `json:"generateError,omitempty"`
	HasStory      bool    `json:"hasStory"`
	Title         string  `json:"title,omitempty"`
	PlayerState   string  `json:"playerState"`
	Scene         int     `json:"scene"`
	SceneCount    int     `json:"sceneCount"`
	Caption       string  `json:"caption"`
	Position      float64 `json:"position"`
	Duration      float64 `json:"duration"`
	Exporting     bool    `json:"exporting"`
	ExportPercent float64 `json:"exportPercent"`
	ExportPath    string  `json:"exportPath,omitempty"`
	ExportError   string  `json:"exportError,omitempty"`
}

// New creates a studio. Every player the studio spawns writes into the same
// sink channel, so one broadcaster drains it for the session's lifetime.
func New(backend producer.Backend, exporter Exporter) *Studio {
	return &Studio{
		backend:  backend,
		exporter: exporter,
		sink:     make(chan []int16, 4),
	}
}

// Source is the frame channel the broadcaster should drain.
func (s *Studio) Source() <-chan []int16 {
	return s.sink
}

// Run pins the studio to ctx and blocks until it is cancelled. Background
// jobs and players started afterwards inherit this context.
func (s *Studio) Run(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	if s.player != nil {
		s.player.Close()
	}
	s.mu.Unlock()
}

// Generate kicks off a full story build in the background. Only one run at
// a time; the UI follows along via Status.
func (s *Studio) Generate(req producer.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return ErrGenerating
	}
	if s.ctx == nil {
		return errors.New("studio: not running")
	}
	s.generating = true
	s.genStep = "Starting..."
	s.genErr = ""
	ctx := s.ctx

	go s.generate(ctx, req)
	return nil
}

func (s *Studio) generate(ctx context.Context, req producer.Request) {
	st, err := producer.Produce(ctx, s.backend, req, func(step string) {
		s.mu.Lock()
		s.genStep = step
		s.mu.Unlock()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	s.genStep = ""
	if err != nil {
		s.genErr = producer.FriendlyMessage(err)
		log.Printf("studio: generation failed: %v", err)
		return
	}
	if err := s.loadLocked(ctx, st); err != nil {
		s.genErr = producer.FriendlyMessage(err)
		log.Printf("studio: load story: %v", err)
	}
}

// Load replaces the current story with st and arms a fresh player.
func (s *Studio) Load(st *story.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return errors.New("studio: not running")
	}
	return s.loadLocked(s.ctx, st)
}

func (s *Studio) loadLocked(ctx context.Context, st *story.Story) error {
	if len(st.Scenes) == 0 {
		return errors.New("story has no scenes")
	}
	buffers := make([]*audio.Buffer, len(st.Scenes))
	for i, sc := range st.Scenes {
		buf, err := audio.DecodePCM(sc.AudioB64)
		if err != nil {
			return err
		}
		buffers[i] = buf
	}

	if s.player != nil {
		s.player.Close()
	}
	s.story = st
	s.player = player.New(st.Paragraphs(), buffers, s.sink)
	go s.player.Run(ctx)
	log.Printf("studio: story %q loaded (%d scenes)", st.Title, len(st.Scenes))
	return nil
}

// Play starts or resumes narration.
func (s *Studio) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return ErrNoStory
	}
	s.player.Play()
	return nil
}

// Pause halts narration, keeping the position.
func (s *Studio) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return ErrNoStory
	}
	s.player.Pause()
	return nil
}

// Replay restarts the story from the first scene.
func (s *Studio) Replay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return ErrNoStory
	}
	s.player.Replay()
	return nil
}

// ClosePlayer tears down the player and drops the story.
func (s *Studio) ClosePlayer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return ErrNoStory
	}
	s.player.Close()
	s.player = nil
	s.story = nil
	return nil
}

// Export renders the loaded story to a video file in the background. Live
// playback is paused first so the narration does not fight the encoder for
// attention.
func (s *Studio) Export() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.story == nil {
		return ErrNoStory
	}
	if s.exporting {
		return ErrExporting
	}
	s.player.Pause()
	s.exporting = true
	s.exportPct = 0
	s.exportPath = ""
	s.exportErr = ""
	ctx := s.ctx
	st := s.story

	go s.export(ctx, st)
	return nil
}

func (s *Studio) export(ctx context.Context, st *story.Story) {
	path, err := s.exporter.Export(ctx, st, func(pct float64) {
		s.mu.Lock()
		if pct > s.exportPct {
			s.exportPct = pct
		}
		s.mu.Unlock()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.exporting = false
	if err != nil {
		s.exportErr = err.Error()
		log.Printf("studio: export failed: %v", err)
		return
	}
	s.exportPath = path
	log.Printf("studio: export written to %s", path)
}

// Status snapshots the session.
func (s *Studio) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Generating:    s.generating,
		Step:          s.genStep,
		GenerateError: s.genErr,
		HasStory:      s.story != nil,
		PlayerState:   player.StateIdle.String(),
		Exporting:     s.exporting,
		ExportPercent: s.exportPct,
		ExportPath:    s.exportPath,
		ExportError:   s.exportErr,
	}
	if s.story != nil {
		st.Title = s.story.Title
	}
	if s.player != nil {
		ps := s.player.Status()
		st.PlayerState = ps.State.String()
		st.Scene = ps.SceneIndex
		st.SceneCount = ps.SceneCount
		st.Caption = ps.Caption
		st.Position = ps.Position.Seconds()
		st.Duration = ps.Duration.Seconds()
	}
	return st
}
