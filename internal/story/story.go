package story

// SceneCount is the fixed number of scenes in a generated script.
// The script prompt demands exactly this many paragraphs and the
// generation pipeline rejects anything else.
const SceneCount = 8

// Scene is one unit of script text, illustration, and narration audio.
// Scenes are immutable after generation and only ever played in order.
type Scene struct {
	Text     string // narration paragraph, drives captions
	ImageRef string // data URL or fetchable URL; empty when image generation failed
	AudioB64 string // base64 little-endian s16le mono PCM at 24 kHz
}

// Story is a complete generated slideshow.
type Story struct {
	Title  string
	Scenes []Scene
}

// Paragraphs returns the scene texts in playback order.
func (s *Story) Paragraphs() []string {
	out := make([]string, len(s.Scenes))
	for i, sc := range s.Scenes {
		out[i] = sc.Text
	}
	return out
}

// Niche is a content category with its own script and image prompt styles.
type Niche struct {
	ID   string
	Name string
}

// Niches lists the supported content categories.
var Niches = []Niche{
	{ID: "biblical", Name: "Children's Bible Stories"},
	{ID: "finance", Name: "Finance & Investing"},
	{ID: "personal_dev", Name: "Personal Development"},
	{ID: "tech", Name: "Tech & Gadgets"},
	{ID: "curiosities", Name: "Curiosities & Facts"},
	{ID: "spirituality", Name: "Prayer & Spirituality"},
}

// Voice is a narrator voice offered by the speech backend.
type Voice struct {
	ID   string
	Name string
}

// Voices lists the prebuilt narrator voices.
var Voices = []Voice{
	{ID: "Puck", Name: "Friendly Narrator"},
	{ID: "Kore", Name: "Sweet Voice"},
	{ID: "Zephyr", Name: "Soft Voice"},
	{ID: "Fenrir", Name: "Calm Voice"},
}

// IsValidNiche reports whether id names a supported niche.
func IsValidNiche(id string) bool {
	for _, n := range Niches {
		if n.ID == id {
			return true
		}
	}
	return false
}

// IsValidVoice reports whether id names a supported voice.
func IsValidVoice(id string) bool {
	for _, v := range Voices {
		if v.ID == id {
			return true
		}
	}
	return false
}
