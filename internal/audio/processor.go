// Package audio plays speech locally through an external player process and
// renders whole podcasts to a single mp3 with ffmpeg.
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

//go:generate moq -out mocks/command_runner.go -pkg mocks -skip-ensure -fmt goimports . CommandRunner

// CommandRunner provides OS-specific command creation for audio playback
type CommandRunner interface {
	AudioCommand(ctx context.Context, filename string) (*exec.Cmd, error)
}

// DefaultCommandRunner is the default implementation of CommandRunner
type DefaultCommandRunner struct {
	// Player forces a specific binary instead of probing the known ones
	Player string
}

// linuxPlayers lists supported players in probe order with the flags placed before the filename
var linuxPlayers = []struct {
	name string
	args []string
}{
	{name: "mpv", args: []string{"--no-video", "--really-quiet"}},
	{name: "ffplay", args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{name: "mplayer", args: []string{"-really-quiet", "-novideo"}},
	{name: "aplay", args: []string{"-q"}},
}

// AudioCommand returns the appropriate audio command for the current OS
func (r *DefaultCommandRunner) AudioCommand(ctx context.Context, filename string) (*exec.Cmd, error) {
	// validate filename to prevent potential security issues
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, ";|&$`") {
		return nil, fmt.Errorf("invalid filename: potential security risk")
	}

	if r.Player != "" {
		for _, p := range linuxPlayers {
			if p.name == filepath.Base(r.Player) {
				// #nosec G204 -- player comes from local configuration
				return exec.CommandContext(ctx, r.Player, append(append([]string{}, p.args...), filename)...), nil
			}
		}
		// #nosec G204 -- player comes from local configuration
		return exec.CommandContext(ctx, r.Player, filename), nil
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "afplay", filename), nil
	case "linux", "freebsd", "openbsd":
		for _, p := range linuxPlayers {
			if _, err := exec.LookPath(p.name); err == nil {
				// #nosec G204 -- player is selected from a whitelist of known audio players
				return exec.CommandContext(ctx, p.name, append(append([]string{}, p.args...), filename)...), nil
			}
		}
		return nil, fmt.Errorf("no suitable audio player found on your system")
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// FFmpeg concatenates mp3 segments with the ffmpeg concat demuxer
type FFmpeg struct {
	Path string
}

// Concatenate joins files into outputFile without re-encoding
func (f *FFmpeg) Concatenate(ctx context.Context, files []string, outputFile string) error {
	if len(files) == 0 {
		return fmt.Errorf("no audio files to concatenate")
	}

	tempDir, err := os.MkdirTemp("", "lorecast-concat")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	concatFile, err := WriteConcatFile(tempDir, files)
	if err != nil {
		return err
	}

	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
		"-c", "copy",
		outputFile,
	}

	// #nosec G204 -- arguments are constructed internally, not from external input
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to concatenate audio files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// WriteConcatFile creates a concatenation list for ffmpeg in dir
func WriteConcatFile(dir string, audioFiles []string) (string, error) {
	concatFile := filepath.Join(dir, "concat.txt")
	var concatContent strings.Builder
	for _, file := range audioFiles {
		// escape single quotes in filenames for ffmpeg concat format
		safeFile := strings.ReplaceAll(file, "'", "'\\''")
		concatContent.WriteString(fmt.Sprintf("file '%s'\n", safeFile))
	}
	if err := os.WriteFile(concatFile, []byte(concatContent.String()), 0o600); err != nil {
		return "", fmt.Errorf("failed to write concat file: %w", err)
	}
	return concatFile, nil
}
