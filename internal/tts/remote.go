package tts

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/lorecast/lorecast/internal/content"
)

// MoodHeader carries the mood chosen for a segment on /api/tts responses
const MoodHeader = "X-Lore-Mood"

// Remote implements Fetcher by calling a lorecast server's /api/tts endpoint
type Remote struct {
	endpoint   string
	httpClient HTTPClient
}

// NewRemote creates a fetcher for the given /api/tts endpoint
func NewRemote(endpoint string, httpClient HTTPClient) *Remote {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: content.SpeechFetchTimeout}
	}
	return &Remote{endpoint: strings.TrimSpace(endpoint), httpClient: httpClient}
}

// Fetch posts the request as JSON and expects audio/mpeg back
func (r *Remote) Fetch(ctx context.Context, req Request) (*Audio, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if r.endpoint == "" {
		return nil, fmt.Errorf("tts endpoint is required")
	}

	body, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", ContentTypeMPEG)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	return readAudio("remote", resp)
}
