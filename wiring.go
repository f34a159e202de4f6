package main

import (
	"fmt"
	"strings"

	"github.com/lorecast/lorecast/internal/ai"
	"github.com/lorecast/lorecast/internal/config"
	"github.com/lorecast/lorecast/internal/lore"
	"github.com/lorecast/lorecast/internal/tts"
	"github.com/lorecast/lorecast/internal/voice"
	"github.com/lorecast/lorecast/podcast"
)

// buildSpeech creates the configured text-to-speech client
func buildSpeech(cfg *config.Config) (tts.Fetcher, error) {
	switch provider := strings.ToLower(cfg.TTS.Provider); provider {
	case "elevenlabs":
		if strings.TrimSpace(cfg.TTS.ElevenLabs.APIKey) == "" {
			return nil, fmt.Errorf("tts.elevenlabs.api_key is required for the elevenlabs provider")
		}
		return tts.NewElevenLabs(tts.ElevenLabsConfig{
			APIKey:  cfg.TTS.ElevenLabs.APIKey,
			BaseURL: cfg.TTS.ElevenLabs.BaseURL,
			ModelID: cfg.TTS.ElevenLabs.ModelID,
		}, nil), nil
	case "playht":
		if strings.TrimSpace(cfg.TTS.PlayHT.APIKey) == "" || strings.TrimSpace(cfg.TTS.PlayHT.UserID) == "" {
			return nil, fmt.Errorf("tts.playht.api_key and tts.playht.user_id are required for the playht provider")
		}
		if strings.TrimSpace(cfg.TTS.Voices.Host1) == "" || strings.TrimSpace(cfg.TTS.Voices.Host2) == "" {
			return nil, fmt.Errorf("tts.voices.host1 and tts.voices.host2 are required for the playht provider")
		}
		return tts.NewPlayHT(tts.PlayHTConfig{
			APIKey:  cfg.TTS.PlayHT.APIKey,
			UserID:  cfg.TTS.PlayHT.UserID,
			BaseURL: cfg.TTS.PlayHT.BaseURL,
			Engine:  cfg.TTS.PlayHT.Engine,
		}, nil), nil
	case "remote":
		if strings.TrimSpace(cfg.TTS.RemoteURL) == "" {
			return nil, fmt.Errorf("tts.remote_url is required for the remote provider")
		}
		return tts.NewRemote(cfg.TTS.RemoteURL, nil), nil
	default:
		return nil, fmt.Errorf("unsupported tts provider %q", cfg.TTS.Provider)
	}
}

// buildSelector applies the configured voice overrides to the provider voices
func buildSelector(cfg *config.Config) *voice.Selector {
	return voice.NewProviderSelector(cfg.TTS.Provider, podcast.CreateVoiceMap(buildHosts(cfg)))
}

// buildHosts returns the default hosts carrying the configured voices
func buildHosts(cfg *config.Config) []podcast.Host {
	hosts := podcast.DefaultHosts()
	for i := range hosts {
		switch hosts[i].Speaker {
		case podcast.Host1:
			hosts[i].Voice = cfg.TTS.Voices.Host1
		case podcast.Host2:
			hosts[i].Voice = cfg.TTS.Voices.Host2
		}
	}
	return hosts
}

func buildGenerator(cfg *config.Config) (*ai.Generator, error) {
	return ai.NewGenerator(ai.Config{
		Provider:    cfg.AI.Provider,
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: float32(cfg.AI.Temperature),
		MaxTokens:   cfg.AI.MaxTokens,
	}, nil)
}

// withStore opens the lore store for the duration of fn
func withStore(cfg *config.Config, fn func(*lore.Store) error) error {
	store, err := lore.Open(cfg.Storage.Path, lore.Options{CanonThreshold: cfg.Lore.CanonThreshold})
	if err != nil {
		return fmt.Errorf("failed to open lore store: %w", err)
	}
	defer store.Close()
	return fn(store)
}
