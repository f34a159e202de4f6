// Package tts fetches speech audio for podcast segments from text-to-speech providers.
//
// Every provider returns MP3 audio for a request of text, voice and mood. A failed
// fetch is reported as an error and never retried; callers decide whether to skip.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher

// ContentTypeMPEG is the MIME type of audio returned by every fetcher
const ContentTypeMPEG = "audio/mpeg"

// maxAudioBytes bounds a single segment download
var maxAudioBytes int64 = 32 << 20

// ErrAudioTooLarge is returned when a provider sends more than maxAudioBytes
var ErrAudioTooLarge = errors.New("audio exceeds size limit")

// Request is the payload needed to synthesize one segment
type Request struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	Mood    string `json:"mood"`
}

// Audio is a playable audio resource
type Audio struct {
	Data        []byte
	ContentType string
}

// Fetcher obtains speech audio for a request
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Audio, error)
}

// HTTPClient defines the interface for HTTP client operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when a provider answers with a non-2xx status
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s tts request failed with status %d: %s", e.Provider, e.StatusCode, strings.TrimSpace(e.Body))
}

// readAudio validates a provider response and reads the audio body
func readAudio(provider string, resp *http.Response) (*Audio, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s audio: %w", provider, err)
	}
	if int64(len(data)) > maxAudioBytes {
		return nil, fmt.Errorf("%s returned more than %d bytes: %w", provider, maxAudioBytes, ErrAudioTooLarge)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s returned empty audio", provider)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = ContentTypeMPEG
	}
	return &Audio{Data: data, ContentType: contentType}, nil
}

func validate(req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("empty text for synthesis")
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		return fmt.Errorf("voice id is required")
	}
	return nil
}
