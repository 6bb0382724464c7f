package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fabulaforge/fabula/internal/story"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// ErrBusy marks an overloaded backend: rate limits and quota exhaustion.
// Callers surface it as "try again in a minute", never as a hard failure.
var ErrBusy = errors.New("generation backend is busy")

// Status is the result of an availability probe.
type Status string

const (
	StatusReady Status = "ready"
	StatusBusy  Status = "busy"
)

// Models used for each generation task.
type Models struct {
	Text  string
	Image string
	TTS   string
}

// DefaultModels returns the model set the service was built against.
func DefaultModels() Models {
	return Models{
		Text:  "gemini-2.5-flash",
		Image: "gemini-2.5-flash-image",
		TTS:   "gemini-2.5-flash-preview-tts",
	}
}

// Client talks to the Gemini REST API. It is constructed once with its
// endpoint and key and injected wherever generation is needed; nothing in
// the package reads ambient credentials.
type Client struct {
	baseURL string
	apiKey  string
	models  Models
	http    *http.Client
}

// NewClient creates a Gemini API client.
func NewClient(baseURL, apiKey string, models Models) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		models:  models,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// --- wire types ---

type generateRequest struct {
	Contents         []content       `json:"contents"`
	GenerationConfig *generateConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateConfig struct {
	Temperature        *float64        `json:"temperature,omitempty"`
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     json.RawMessage `json:"responseSchema,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig   `json:"speechConfig,omitempty"`
	ImageConfig        *imageConfig    `json:"imageConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuiltVoiceConfig"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// generate posts one generateContent call and returns the first candidate.
func (c *Client) generate(ctx context.Context, model string, req generateRequest) (*content, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if isBusySignal(resp.StatusCode, string(raw)) {
			return nil, fmt.Errorf("%s returned %d: %w", model, resp.StatusCode, ErrBusy)
		}
		return nil, fmt.Errorf("%s returned %d: %s", model, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error %d (%s): %s", parsed.Error.Code, parsed.Error.Status, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("%s returned no candidates", model)
	}
	return &parsed.Candidates[0].Content, nil
}

// isBusySignal recognizes overload responses that deserve a retry-later
// message rather than a raw error.
func isBusySignal(status int, body string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(body, "RESOURCE_EXHAUSTED") || strings.Contains(body, "rate limit")
}

// CheckAvailability probes the text model with a trivial prompt. Overload
// maps to StatusBusy; anything else unexpected is a real error.
func (c *Client) CheckAvailability(ctx context.Context) (Status, error) {
	temp := 0.0
	_, err := c.generate(ctx, c.models.Text, generateRequest{
		Contents:         []content{{Parts: []part{{Text: "Reply with the single word 'ok'."}}}},
		GenerationConfig: &generateConfig{Temperature: &temp},
	})
	if err != nil {
		if errors.Is(err, ErrBusy) {
			return StatusBusy, nil
		}
		return "", err
	}
	return StatusReady, nil
}

// GenerateScript asks the text model for a titled script with exactly
// story.SceneCount paragraphs, using the prompt style of the given niche.
func (c *Client) GenerateScript(ctx context.Context, topic, niche string) (*story.Story, error) {
	temp := 0.8
	out, err := c.generate(ctx, c.models.Text, generateRequest{
		Contents: []content{{Parts: []part{{Text: scriptPrompt(topic, niche)}}}},
		GenerationConfig: &generateConfig{
			Temperature:      &temp,
			ResponseMimeType: "application/json",
			ResponseSchema:   json.RawMessage(scriptSchema),
		},
	})
	if err != nil {
		return nil, err
	}

	text := firstText(out)
	var parsed struct {
		Title      string   `json:"title"`
		Paragraphs []string `json:"paragraphs"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w", err)
	}
	if parsed.Title == "" {
		return nil, fmt.Errorf("script has no title")
	}
	if len(parsed.Paragraphs) != story.SceneCount {
		return nil, fmt.Errorf("script has %d scenes, want exactly %d", len(parsed.Paragraphs), story.SceneCount)
	}
	st := &story.Story{Title: parsed.Title, Scenes: make([]story.Scene, story.SceneCount)}
	for i, p := range parsed.Paragraphs {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("script scene %d is empty", i+1)
		}
		st.Scenes[i].Text = p
	}
	return st, nil
}

// GenerateSceneImage renders one scene illustration and returns it as a PNG
// data URL. The final scene gets the niche's farewell artwork instead of a
// paragraph illustration.
func (c *Client) GenerateSceneImage(ctx context.Context, paragraph string, finalScene bool, niche string) (string, error) {
	out, err := c.generate(ctx, c.models.Image, generateRequest{
		Contents: []content{{Parts: []part{{Text: imagePrompt(paragraph, finalScene, niche)}}}},
		GenerationConfig: &generateConfig{
			ImageConfig: &imageConfig{AspectRatio: "16:9"},
		},
	})
	if err != nil {
		return "", err
	}
	for _, p := range out.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return "data:image/png;base64," + p.InlineData.Data, nil
		}
	}
	return "", fmt.Errorf("no image in response")
}

// GenerateSceneAudio narrates one paragraph and returns base64 s16le mono
// PCM at 24 kHz, as produced by the TTS model.
func (c *Client) GenerateSceneAudio(ctx context.Context, text, voiceID string) (string, error) {
	prompt := fmt.Sprintf("Narrate the following text clearly, with fitting intonation. Tone: friendly and confident. Text: %q", text)
	out, err := c.generate(ctx, c.models.TTS, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generateConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoice{VoiceName: voiceID}},
			},
		},
	})
	if err != nil {
		return "", err
	}
	for _, p := range out.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData.Data, nil
		}
	}
	return "", fmt.Errorf("no audio in response")
}

func firstText(c *content) string {
	for _, p := range c.Parts {
		if p.Text != "" {
			return p.Text
		}
	}
	return ""
}
