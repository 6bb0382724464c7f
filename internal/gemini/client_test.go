package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fabulaforge/fabula/internal/story"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, "test-key", DefaultModels()), srv
}

func textResponse(text string) string {
	resp := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
	out, _ := json.Marshal(resp)
	return string(out)
}

func scriptJSON(title string, n int) string {
	paragraphs := make([]string, n)
	for i := range paragraphs {
		paragraphs[i] = fmt.Sprintf("Scene %d text.", i+1)
	}
	out, _ := json.Marshal(map[string]any{"title": title, "paragraphs": paragraphs})
	return string(out)
}

func TestGenerateScript(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("missing API key header")
		}
		fmt.Fprint(w, textResponse(scriptJSON("Noah's Ark", story.SceneCount)))
	})
	defer srv.Close()

	st, err := client.GenerateScript(context.Background(), "Noah's Ark", "biblical")
	if err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}
	if st.Title != "Noah's Ark" {
		t.Errorf("title = %q", st.Title)
	}
	if len(st.Scenes) != story.SceneCount {
		t.Errorf("scenes = %d, want %d", len(st.Scenes), story.SceneCount)
	}
}

func TestGenerateScriptWrongSceneCount(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse(scriptJSON("Short Story", 5)))
	})
	defer srv.Close()

	if _, err := client.GenerateScript(context.Background(), "topic", "tech"); err == nil {
		t.Error("accepted a script with the wrong scene count")
	}
}

func TestGenerateScriptMalformedJSON(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("this is not json"))
	})
	defer srv.Close()

	if _, err := client.GenerateScript(context.Background(), "topic", "tech"); err == nil {
		t.Error("accepted a non-JSON script response")
	}
}

func TestCheckAvailabilityReady(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("ok"))
	})
	defer srv.Close()

	status, err := client.CheckAvailability(context.Background())
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if status != StatusReady {
		t.Errorf("status = %v, want ready", status)
	}
}

func TestCheckAvailabilityBusyOn429(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"code": 429, "status": "RESOURCE_EXHAUSTED", "message": "quota"}}`)
	})
	defer srv.Close()

	status, err := client.CheckAvailability(context.Background())
	if err != nil {
		t.Fatalf("CheckAvailability on 429: %v", err)
	}
	if status != StatusBusy {
		t.Errorf("status = %v, want busy", status)
	}
}

func TestCheckAvailabilityHardFailure(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	})
	defer srv.Close()

	if _, err := client.CheckAvailability(context.Background()); err == nil {
		t.Error("hard failure reported as availability status")
	}
}

func TestGenerateSceneImage(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": "aW1n"}},
			}}}},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer srv.Close()

	url, err := client.GenerateSceneImage(context.Background(), "A calm sea.", false, "spirituality")
	if err != nil {
		t.Fatalf("GenerateSceneImage: %v", err)
	}
	if url != "data:image/png;base64,aW1n" {
		t.Errorf("image ref = %q", url)
	}
}

func TestGenerateSceneAudio(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig == nil || req.GenerationConfig.SpeechConfig == nil {
			t.Error("TTS request missing speech config")
		} else if got := req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; got != "Puck" {
			t.Errorf("voice = %q, want Puck", got)
		}
		resp := map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"inlineData": map[string]any{"mimeType": "audio/pcm", "data": "cGNt"}},
			}}}},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer srv.Close()

	data, err := client.GenerateSceneAudio(context.Background(), "Hello.", "Puck")
	if err != nil {
		t.Fatalf("GenerateSceneAudio: %v", err)
	}
	if data != "cGNt" {
		t.Errorf("audio = %q", data)
	}
}

func TestPromptFallbackNiche(t *testing.T) {
	p := scriptPrompt("mystery", "unknown_niche")
	if !strings.Contains(p, "viral") {
		t.Error("unknown niche did not fall back to the curiosities style")
	}
	img := imagePrompt("some fact", false, "unknown_niche")
	if !strings.Contains(img, "curiosity") {
		t.Error("unknown niche image prompt did not fall back")
	}
}
