// Package producer runs the full story generation workflow: one script,
// then narration audio and an illustration for every scene, strictly in
// order. The backend rate-limits aggressively, so scene assets are fetched
// sequentially with a pacing delay between calls.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fabulaforge/fabula/internal/gemini"
	"github.com/fabulaforge/fabula/internal/story"
)

// PaceDelay spaces consecutive backend calls to stay under the free-tier
// request rate. A variable so tests can shrink it.
var PaceDelay = time.Second

// Request describes one generation run.
type Request struct {
	Topic string
	Niche string
	Voice string
}

// Backend is the slice of the Gemini client the producer needs; narrowed
// for tests.
type Backend interface {
	GenerateScript(ctx context.Context, topic, niche string) (*story.Story, error)
	GenerateSceneImage(ctx context.Context, paragraph string, finalScene bool, niche string) (string, error)
	GenerateSceneAudio(ctx context.Context, text, voiceID string) (string, error)
}

// StepFunc receives human-readable progress lines ("Producing scene 3 of 8...").
type StepFunc func(step string)

// Produce generates a complete story: script first, then audio and image
// per scene. Any failure aborts the whole run; scene failures carry the
// 1-based scene number. The returned story is fully populated and immutable
// from the caller's point of view.
func Produce(ctx context.Context, backend Backend, req Request, onStep StepFunc) (*story.Story, error) {
	if onStep == nil {
		onStep = func(string) {}
	}
	if req.Topic == "" {
		return nil, errors.New("a topic is required")
	}

	onStep("Writing the script...")
	st, err := backend.GenerateScript(ctx, req.Topic, req.Niche)
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}
	log.Printf("Script ready: %q (%d scenes)", st.Title, len(st.Scenes))

	total := len(st.Scenes)
	for i := range st.Scenes {
		onStep(fmt.Sprintf("Producing scene %d of %d...", i+1, total))

		audio, err := backend.GenerateSceneAudio(ctx, st.Scenes[i].Text, req.Voice)
		if err != nil {
			return nil, fmt.Errorf("scene %d: generate audio: %w", i+1, err)
		}
		st.Scenes[i].AudioB64 = audio

		if err := pace(ctx); err != nil {
			return nil, err
		}

		finalScene := i == total-1
		image, err := backend.GenerateSceneImage(ctx, st.Scenes[i].Text, finalScene, req.Niche)
		if err != nil {
			return nil, fmt.Errorf("scene %d: generate image: %w", i+1, err)
		}
		st.Scenes[i].ImageRef = image

		if err := pace(ctx); err != nil {
			return nil, err
		}
	}

	return st, nil
}

func pace(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(PaceDelay):
		return nil
	}
}

// FriendlyMessage turns a generation failure into the one consolidated line
// shown to the user. Overload gets a distinct retry-later message; anything
// else keeps its diagnostic detail.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, gemini.ErrBusy) {
		return "Too many people are using the AI right now. Please wait a minute and try again."
	}
	return "Story generation failed: " + err.Error()
}
