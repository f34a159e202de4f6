// Package config handles loading and validating the lorecast configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config is the root configuration for the lorecast server and CLI.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" toml:"server"`
	Storage   StorageConfig   `mapstructure:"storage" toml:"storage"`
	Lore      LoreConfig      `mapstructure:"lore" toml:"lore"`
	AI        AIConfig        `mapstructure:"ai" toml:"ai"`
	TTS       TTSConfig       `mapstructure:"tts" toml:"tts"`
	Tips      TipsConfig      `mapstructure:"tips" toml:"tips"`
	Broadcast BroadcastConfig `mapstructure:"broadcast" toml:"broadcast"`
	Audio     AudioConfig     `mapstructure:"audio" toml:"audio"`
	Logging   LoggingConfig   `mapstructure:"logging" toml:"logging"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr            string   `mapstructure:"addr" toml:"addr"`
	AdminToken      string   `mapstructure:"admin_token" toml:"admin_token"`
	AllowedOrigins  []string `mapstructure:"allowed_origins" toml:"allowed_origins"` // websocket origins, empty allows any
	ShutdownTimeout int      `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"` // seconds
}

// StorageConfig locates the lore database.
type StorageConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// LoreConfig holds voting rules.
type LoreConfig struct {
	CanonThreshold int `mapstructure:"canon_threshold" toml:"canon_threshold"` // 0 disables auto-canon
	StoryContext   int `mapstructure:"story_context" toml:"story_context"`     // canon entries fed to story generation
}

// AIConfig selects and configures the chat completion provider.
type AIConfig struct {
	Provider      string  `mapstructure:"provider" toml:"provider"` // openrouter, deepseek, gemini, openai
	APIKey        string  `mapstructure:"api_key" toml:"api_key"`
	BaseURL       string  `mapstructure:"base_url" toml:"base_url"`
	Model         string  `mapstructure:"model" toml:"model"`
	Temperature   float64 `mapstructure:"temperature" toml:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" toml:"max_tokens"`
	TargetMinutes int     `mapstructure:"target_minutes" toml:"target_minutes"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Provider   string           `mapstructure:"provider" toml:"provider"` // elevenlabs, playht, remote
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs" toml:"elevenlabs"`
	PlayHT     PlayHTConfig     `mapstructure:"playht" toml:"playht"`
	RemoteURL  string           `mapstructure:"remote_url" toml:"remote_url"` // another lorecast server's /api/tts
	Voices     VoicesConfig     `mapstructure:"voices" toml:"voices"`
}

// ElevenLabsConfig holds ElevenLabs credentials.
type ElevenLabsConfig struct {
	APIKey  string `mapstructure:"api_key" toml:"api_key"`
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
	ModelID string `mapstructure:"model_id" toml:"model_id"`
}

// PlayHTConfig holds PlayHT credentials.
type PlayHTConfig struct {
	APIKey  string `mapstructure:"api_key" toml:"api_key"`
	UserID  string `mapstructure:"user_id" toml:"user_id"`
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
	Engine  string `mapstructure:"engine" toml:"engine"`
}

// VoicesConfig overrides the default voice per host, empty keeps the provider default.
// PlayHT has no default voices and needs both.
type VoicesConfig struct {
	Host1 string `mapstructure:"host1" toml:"host1"`
	Host2 string `mapstructure:"host2" toml:"host2"`
}

// TipsConfig points tip verification at a chain.
type TipsConfig struct {
	RPCURL        string `mapstructure:"rpc_url" toml:"rpc_url"`
	TokenContract string `mapstructure:"token_contract" toml:"token_contract"`
}

// BroadcastConfig tunes websocket audio pacing.
type BroadcastConfig struct {
	ChunkSize int `mapstructure:"chunk_size" toml:"chunk_size"`
	Bitrate   int `mapstructure:"bitrate" toml:"bitrate"`
}

// AudioConfig configures local playback and rendering.
type AudioConfig struct {
	Player        string `mapstructure:"player" toml:"player"` // empty probes mpv, ffplay, mplayer, aplay
	FFmpeg        string `mapstructure:"ffmpeg" toml:"ffmpeg"`
	TempDir       string `mapstructure:"temp_dir" toml:"temp_dir"`
	RenderWorkers int    `mapstructure:"render_workers" toml:"render_workers"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" toml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" toml:"format"` // json, text, auto
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8080", ShutdownTimeout: 10},
		Storage:   StorageConfig{Path: "data/lore.db"},
		Lore:      LoreConfig{CanonThreshold: 10, StoryContext: 20},
		AI:        AIConfig{Provider: "openrouter", Temperature: 0.8, MaxTokens: 4000, TargetMinutes: 5},
		TTS:       TTSConfig{Provider: "elevenlabs", RemoteURL: "http://localhost:8080/api/tts"},
		Broadcast: BroadcastConfig{ChunkSize: 8192, Bitrate: 128000},
		Audio:     AudioConfig{FFmpeg: "ffmpeg", RenderWorkers: 3},
		Logging:   LoggingConfig{Level: "info", Format: "auto"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("lore.canon_threshold", d.Lore.CanonThreshold)
	v.SetDefault("lore.story_context", d.Lore.StoryContext)
	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.target_minutes", d.AI.TargetMinutes)
	v.SetDefault("tts.provider", d.TTS.Provider)
	v.SetDefault("tts.elevenlabs.api_key", "")
	v.SetDefault("tts.elevenlabs.base_url", "")
	v.SetDefault("tts.elevenlabs.model_id", "")
	v.SetDefault("tts.playht.api_key", "")
	v.SetDefault("tts.playht.user_id", "")
	v.SetDefault("tts.playht.base_url", "")
	v.SetDefault("tts.playht.engine", "")
	v.SetDefault("tts.remote_url", d.TTS.RemoteURL)
	v.SetDefault("tts.voices.host1", "")
	v.SetDefault("tts.voices.host2", "")
	v.SetDefault("tips.rpc_url", "")
	v.SetDefault("tips.token_contract", "")
	v.SetDefault("broadcast.chunk_size", d.Broadcast.ChunkSize)
	v.SetDefault("broadcast.bitrate", d.Broadcast.Bitrate)
	v.SetDefault("audio.player", "")
	v.SetDefault("audio.ffmpeg", d.Audio.FFmpeg)
	v.SetDefault("audio.temp_dir", "")
	v.SetDefault("audio.render_workers", d.Audio.RenderWorkers)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./lorecast.*, ./configs/lorecast.*, /etc/lorecast/lorecast.*.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("lorecast")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/lorecast")
	}

	// LORECAST_SERVER_ADDR, LORECAST_TTS_ELEVENLABS_API_KEY, etc.
	v.SetEnvPrefix("LORECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Server.AdminToken = resolveEnvRef(cfg.Server.AdminToken)
	cfg.AI.APIKey = resolveEnvRef(cfg.AI.APIKey)
	cfg.TTS.ElevenLabs.APIKey = resolveEnvRef(cfg.TTS.ElevenLabs.APIKey)
	cfg.TTS.PlayHT.APIKey = resolveEnvRef(cfg.TTS.PlayHT.APIKey)
	cfg.TTS.PlayHT.UserID = resolveEnvRef(cfg.TTS.PlayHT.UserID)
	cfg.Tips.RPCURL = resolveEnvRef(cfg.Tips.RPCURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	switch strings.ToLower(c.TTS.Provider) {
	case "elevenlabs", "playht", "remote":
	default:
		return fmt.Errorf("unsupported tts provider %q", c.TTS.Provider)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text", "auto":
	default:
		return fmt.Errorf("unsupported logging format %q", c.Logging.Format)
	}
	if c.Lore.CanonThreshold < 0 {
		return errors.New("lore.canon_threshold must not be negative")
	}
	if c.Broadcast.ChunkSize < 0 || c.Broadcast.Bitrate < 0 {
		return errors.New("broadcast chunk_size and bitrate must not be negative")
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" with the env var value, an unset var resolves to empty.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

const sampleHeader = `# lorecast configuration
#
# Every key can be overridden with an environment variable, for example
# LORECAST_SERVER_ADDR or LORECAST_TTS_ELEVENLABS_API_KEY. Secrets may
# reference the environment as "${VAR_NAME}".

`

// WriteSample writes a sample configuration file, refusing to overwrite unless force is set.
func WriteSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --overwrite to replace it)", path)
		}
	}

	sample := Default()
	sample.Server.AdminToken = "${LORECAST_ADMIN_TOKEN}"
	sample.AI.APIKey = "${OPENROUTER_API_KEY}"
	sample.TTS.ElevenLabs.APIKey = "${ELEVENLABS_API_KEY}"

	data, err := toml.Marshal(sample)
	if err != nil {
		return fmt.Errorf("encode sample config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append([]byte(sampleHeader), data...), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	slog.SetDefault(slog.New(newHandler(cfg, os.Stdout, tty)))
}

func newHandler(cfg LoggingConfig, w io.Writer, tty bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	switch strings.ToLower(cfg.Format) {
	case "text":
		return slog.NewTextHandler(w, opts)
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		if tty {
			return slog.NewTextHandler(w, opts)
		}
		return slog.NewJSONHandler(w, opts)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
