package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/lorecast/lorecast/internal/content"
)

const (
	playHTBaseURL = "https://api.play.ht"
	playHTEngine  = "Play3.0-mini"
)

// PlayHTConfig holds PlayHT REST settings
type PlayHTConfig struct {
	APIKey  string
	UserID  string
	BaseURL string
	Engine  string
}

type playHTRequest struct {
	Text         string  `json:"text"`
	Voice        string  `json:"voice"`
	OutputFormat string  `json:"output_format"`
	VoiceEngine  string  `json:"voice_engine"`
	Emotion      string  `json:"emotion,omitempty"`
	Speed        float64 `json:"speed"`
}

// playHTEmotions maps moods onto PlayHT emotion presets
var playHTEmotions = map[string]string{
	"uplifting":   "female_happy",
	"melancholic": "female_sad",
	"epic":        "male_angry",
	"mysterious":  "female_fearful",
	"adventure":   "male_surprised",
}

// PlayHT implements Fetcher using the PlayHT streaming REST API
type PlayHT struct {
	cfg        PlayHTConfig
	httpClient HTTPClient
}

// NewPlayHT creates a PlayHT fetcher, a nil client gets a default with timeout
func NewPlayHT(cfg PlayHTConfig, httpClient HTTPClient) *PlayHT {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: content.SpeechFetchTimeout}
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.UserID = strings.TrimSpace(cfg.UserID)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = playHTBaseURL
	}
	if cfg.Engine == "" {
		cfg.Engine = playHTEngine
	}
	return &PlayHT{cfg: cfg, httpClient: httpClient}
}

// Fetch synthesizes the request text with the requested voice
func (p *PlayHT) Fetch(ctx context.Context, req Request) (*Audio, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if p.cfg.APIKey == "" || p.cfg.UserID == "" {
		return nil, fmt.Errorf("playht api key and user id are required")
	}

	body, err := sonic.Marshal(playHTRequest{
		Text:         req.Text,
		Voice:        req.VoiceID,
		OutputFormat: "mp3",
		VoiceEngine:  p.cfg.Engine,
		Emotion:      playHTEmotions[req.Mood],
		Speed:        1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/v2/tts/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", ContentTypeMPEG)
	httpReq.Header.Set("AUTHORIZATION", p.cfg.APIKey)
	httpReq.Header.Set("X-USER-ID", p.cfg.UserID)

	slog.Debug("playht fetch", "voice", req.VoiceID, "mood", req.Mood, "text_length", len(req.Text))

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("playht request failed: %w", err)
	}
	defer resp.Body.Close()

	return readAudio("playht", resp)
}
