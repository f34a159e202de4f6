package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/lorecast/lorecast/internal/content"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io"
	elevenLabsModel   = "eleven_multilingual_v2"
)

// ElevenLabsConfig holds ElevenLabs REST settings
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
}

// voiceSettings controls ElevenLabs delivery
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// moodSettings tunes delivery per background mood, unknown moods use the cinematic entry
var moodSettings = map[string]voiceSettings{
	"uplifting":   {Stability: 0.35, SimilarityBoost: 0.75, Style: 0.6, SpeakerBoost: true},
	"melancholic": {Stability: 0.7, SimilarityBoost: 0.8, Style: 0.3},
	"epic":        {Stability: 0.3, SimilarityBoost: 0.75, Style: 0.8, SpeakerBoost: true},
	"mysterious":  {Stability: 0.6, SimilarityBoost: 0.8, Style: 0.45},
	"adventure":   {Stability: 0.4, SimilarityBoost: 0.75, Style: 0.55, SpeakerBoost: true},
	"ambient":     {Stability: 0.8, SimilarityBoost: 0.7, Style: 0.1},
	"cinematic":   {Stability: 0.5, SimilarityBoost: 0.75, Style: 0.4, SpeakerBoost: true},
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// ElevenLabs implements Fetcher using the ElevenLabs text-to-speech REST API
type ElevenLabs struct {
	cfg        ElevenLabsConfig
	httpClient HTTPClient
}

// NewElevenLabs creates an ElevenLabs fetcher, a nil client gets a default with timeout
func NewElevenLabs(cfg ElevenLabsConfig, httpClient HTTPClient) *ElevenLabs {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: content.SpeechFetchTimeout}
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = elevenLabsBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = elevenLabsModel
	}
	return &ElevenLabs{cfg: cfg, httpClient: httpClient}
}

// Fetch synthesizes the request text with the requested voice
func (e *ElevenLabs) Fetch(ctx context.Context, req Request) (*Audio, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if e.cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}

	settings, ok := moodSettings[req.Mood]
	if !ok {
		settings = moodSettings["cinematic"]
	}

	body, err := sonic.Marshal(elevenLabsRequest{
		Text:          req.Text,
		ModelID:       e.cfg.ModelID,
		VoiceSettings: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := e.cfg.BaseURL + "/v1/text-to-speech/" + url.PathEscape(req.VoiceID) + "?output_format=mp3_44100_128"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", ContentTypeMPEG)
	httpReq.Header.Set("xi-api-key", e.cfg.APIKey)

	slog.Debug("elevenlabs fetch", "voice", req.VoiceID, "mood", req.Mood, "text_length", len(req.Text))

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	return readAudio("elevenlabs", resp)
}
