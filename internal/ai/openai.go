// Package ai generates podcast scripts and lore stories with OpenAI-compatible chat providers.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lorecast/lorecast/internal/content"
	"github.com/lorecast/lorecast/podcast"
)

//go:generate moq -out mocks/http_client.go -pkg mocks -skip-ensure -fmt goimports . HTTPClient

// HTTPClient defines the interface for HTTP client operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider is a preset base URL and default model for a chat API
type Provider struct {
	Name    string
	BaseURL string
	Model   string
}

// Providers lists the supported OpenAI-compatible chat APIs
var Providers = map[string]Provider{
	"openrouter": {Name: "openrouter", BaseURL: "https://openrouter.ai/api/v1", Model: "deepseek/deepseek-chat"},
	"deepseek":   {Name: "deepseek", BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat"},
	"gemini":     {Name: "gemini", BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai", Model: "gemini-2.0-flash"},
	"openai":     {Name: "openai", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o"},
}

// Config selects the provider and credentials
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Generator creates scripts and stories
type Generator struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
	maxTokens   int
}

// NewGenerator creates a generator for the configured provider, a nil client gets a default with timeout
func NewGenerator(cfg Config, httpClient HTTPClient) (*Generator, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "openrouter"
	}
	preset, ok := Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s api key is required", name)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: content.AIHTTPTimeout}
	}
	clientCfg := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	clientCfg.BaseURL = preset.BaseURL
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = httpClient

	g := &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		provider:    name,
		model:       preset.Model,
		temperature: content.AITemperature,
		maxTokens:   content.AIMaxTokens,
	}
	if cfg.Model != "" {
		g.model = cfg.Model
	}
	if cfg.Temperature > 0 {
		g.temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		g.maxTokens = cfg.MaxTokens
	}
	return g, nil
}

// ScriptParams describes the source material for a podcast episode
type ScriptParams struct {
	Title         string
	Content       string
	Hosts         []podcast.Host
	TargetMinutes int
}

// StoryParams describes a story request grounded on lore entries
type StoryParams struct {
	Prompt string
	Lore   []string
}

// GenerateScript writes a two-host dialogue in the "Host N: text" format
func (g *Generator) GenerateScript(ctx context.Context, params ScriptParams) (podcast.Script, error) {
	if strings.TrimSpace(params.Content) == "" {
		return podcast.Script{}, errors.New("no content to discuss")
	}
	hosts := params.Hosts
	if len(hosts) == 0 {
		hosts = podcast.DefaultHosts()
	}
	minutes := params.TargetMinutes
	if minutes <= 0 {
		minutes = 5
	}

	user := params.Content
	if params.Title != "" {
		user = fmt.Sprintf("Title: %s\n\nContent: %s", params.Title, params.Content)
	}

	text, err := g.complete(ctx, createScriptPrompt(hosts, minutes*content.MessagesPerMinute, minutes), user)
	if err != nil {
		return podcast.Script{}, fmt.Errorf("failed to generate script: %w", err)
	}
	slog.Debug("script generated", "provider", g.provider, "model", g.model, "length", len(text))
	return podcast.Script{Title: params.Title, Text: text}, nil
}

// GenerateStory writes short prose that stays consistent with the given lore
func (g *Generator) GenerateStory(ctx context.Context, params StoryParams) (string, error) {
	if strings.TrimSpace(params.Prompt) == "" {
		return "", errors.New("story prompt is required")
	}
	text, err := g.complete(ctx, createStoryPrompt(params.Lore), params.Prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate story: %w", err)
	}
	return text, nil
}

// complete runs one chat completion and returns the first choice
func (g *Generator) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", g.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", g.provider)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from %s", g.provider)
	}
	return text, nil
}

// createScriptPrompt creates the system prompt for a podcast script
func createScriptPrompt(hosts []podcast.Host, targetMessages, targetMinutes int) string {
	basePrompt := `You are writing a podcast episode set in a shared fantasy world. The hosts are:

%s

Have a genuine, unscripted conversation about the material. Don't follow a rigid structure, just talk like real people do. React to each other, get excited about the discoveries, disagree when you actually disagree.

Write it as plain dialog, one turn per line, with no markdown and no stage directions:
Host 1: what the first host says
Host 2: the reply

Aim for about %d turns, roughly %d minutes of talking.`

	return fmt.Sprintf(basePrompt, prepareHostDescriptions(hosts), targetMessages, targetMinutes)
}

// createStoryPrompt creates the system prompt for lore-grounded stories
func createStoryPrompt(lore []string) string {
	var sb strings.Builder
	sb.WriteString("You are the chronicler of a shared fantasy world. Write a short, vivid story of three to five paragraphs. ")
	sb.WriteString("Never contradict the established canon.")
	if len(lore) > 0 {
		sb.WriteString("\n\nEstablished canon:\n")
		for _, entry := range lore {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			sb.WriteString("- ")
			sb.WriteString(entry)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// prepareHostDescriptions formats host information for the prompt
func prepareHostDescriptions(hosts []podcast.Host) string {
	descriptions := make([]string, 0, len(hosts))
	for _, host := range hosts {
		descriptions = append(descriptions,
			fmt.Sprintf("%s (%s): %s", host.Speaker, host.Name, host.Character))
	}
	return strings.Join(descriptions, "\n")
}
