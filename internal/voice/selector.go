// Package voice maps podcast segments to tts voices and background moods.
package voice

import (
	"strings"
	"unicode"

	"github.com/lorecast/lorecast/podcast"
)

// DefaultMood is used when no mood rule matches the segment text
const DefaultMood = "cinematic"

// DefaultProvider is the tts provider whose voices NewSelector starts from
const DefaultProvider = "elevenlabs"

// defaultVoices maps speakers to ElevenLabs premade voice ids
var defaultVoices = map[podcast.Speaker]string{
	podcast.Host1: "pNInz6obpgDQGcFmaJgB", // adam
	podcast.Host2: "21m00Tcm4TlvDq8ikWAM", // rachel
}

// providerVoices holds the built-in voices per tts provider. The remote
// provider proxies ElevenLabs. PlayHT voices are account specific and
// have no defaults.
var providerVoices = map[string]map[podcast.Speaker]string{
	"elevenlabs": defaultVoices,
	"remote":     defaultVoices,
}

// MoodRule assigns a mood when any of its keywords appears as a word in the text
type MoodRule struct {
	Keywords []string
	Mood     string
}

// moodRules are evaluated in order and the first match wins
var moodRules = []MoodRule{
	{Keywords: []string{"happy", "joy", "excited", "celebrate", "laugh"}, Mood: "uplifting"},
	{Keywords: []string{"sad", "grief", "loss", "tears", "mourn"}, Mood: "melancholic"},
	{Keywords: []string{"battle", "war", "fight", "attack", "danger"}, Mood: "epic"},
	{Keywords: []string{"mystery", "secret", "shadow", "hidden", "unknown"}, Mood: "mysterious"},
	{Keywords: []string{"adventure", "journey", "quest", "explore"}, Mood: "adventure"},
	{Keywords: []string{"calm", "peace", "quiet", "gentle", "serene"}, Mood: "ambient"},
}

// Selection is the voice and mood chosen for a segment
type Selection struct {
	VoiceID string
	Mood    string
}

// Selector picks voices from a static table and moods from keyword rules
type Selector struct {
	voices map[podcast.Speaker]string
}

// NewSelector creates a selector over the ElevenLabs voices, overrides replace
// the default voice of a speaker
func NewSelector(overrides map[podcast.Speaker]string) *Selector {
	return NewProviderSelector(DefaultProvider, overrides)
}

// NewProviderSelector creates a selector over the built-in voices of a tts
// provider. Providers without built-in voices rely on overrides only.
func NewProviderSelector(provider string, overrides map[podcast.Speaker]string) *Selector {
	defaults := providerVoices[strings.ToLower(provider)]
	voices := make(map[podcast.Speaker]string, len(defaults))
	for k, v := range defaults {
		voices[k] = v
	}
	for k, v := range overrides {
		if v = strings.TrimSpace(v); v != "" {
			voices[k] = v
		}
	}
	return &Selector{voices: voices}
}

// Select returns the voice and mood for a segment
func (s *Selector) Select(seg podcast.Segment) Selection {
	return Selection{
		VoiceID: s.Voice(seg.Speaker),
		Mood:    Mood(seg.Text),
	}
}

// Voice returns the voice id for a speaker, unknown speakers get the Host 1 voice
func (s *Selector) Voice(speaker podcast.Speaker) string {
	if v, ok := s.voices[speaker]; ok {
		return v
	}
	return s.voices[podcast.Host1]
}

// Mood scans text for whole-word mood keywords, case-insensitive
func Mood(text string) string {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) }) {
		words[w] = struct{}{}
	}
	for _, rule := range moodRules {
		for _, kw := range rule.Keywords {
			if _, ok := words[kw]; ok {
				return rule.Mood
			}
		}
	}
	return DefaultMood
}

// Moods lists every mood the selector can produce, default last
func Moods() []string {
	moods := make([]string, 0, len(moodRules)+1)
	for _, rule := range moodRules {
		moods = append(moods, rule.Mood)
	}
	return append(moods, DefaultMood)
}
