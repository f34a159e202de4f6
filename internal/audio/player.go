package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/lorecast/lorecast/internal/playback"
	"github.com/lorecast/lorecast/internal/tts"
)

var errNotStarted = errors.New("audio process not started")

// ProcessPlayer plays each segment through an external player process
type ProcessPlayer struct {
	cmdRunner CommandRunner
	tempDir   string
}

// NewProcessPlayer creates a player; a nil runner probes for a system player and
// an empty tempDir uses the OS default
func NewProcessPlayer(cmdRunner CommandRunner, tempDir string) *ProcessPlayer {
	if cmdRunner == nil {
		cmdRunner = &DefaultCommandRunner{}
	}
	return &ProcessPlayer{cmdRunner: cmdRunner, tempDir: tempDir}
}

// Open writes the audio to a temp file and prepares, but does not start, the player process
func (p *ProcessPlayer) Open(ctx context.Context, audio *tts.Audio) (playback.Handle, error) {
	if audio == nil || len(audio.Data) == 0 {
		return nil, fmt.Errorf("no audio data to play")
	}

	f, err := os.CreateTemp(p.tempDir, "lorecast-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(audio.Data); err != nil {
		f.Close()
		os.Remove(name)
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return nil, fmt.Errorf("failed to close audio file: %w", err)
	}

	cmd, err := p.cmdRunner.AudioCommand(ctx, name)
	if err != nil {
		os.Remove(name)
		return nil, fmt.Errorf("failed to get audio command: %w", err)
	}

	return &processHandle{
		cmd:    cmd,
		file:   name,
		done:   make(chan error, 1),
		exited: make(chan struct{}),
	}, nil
}

// processHandle owns one player process and its audio file
type processHandle struct {
	cmd    *exec.Cmd
	file   string
	done   chan error
	exited chan struct{}

	mu       sync.Mutex
	started  bool
	released bool
}

func (h *processHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return fmt.Errorf("audio handle released")
	}
	if h.started {
		return nil
	}
	if err := h.cmd.Start(); err != nil {
		return fmt.Errorf("error playing audio: %w", err)
	}
	h.started = true

	go func() {
		err := h.cmd.Wait()
		h.done <- err
		close(h.exited)
	}()
	return nil
}

func (h *processHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started || h.released {
		return errNotStarted
	}
	return suspendProcess(h.cmd.Process)
}

func (h *processHandle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started || h.released {
		return errNotStarted
	}
	return continueProcess(h.cmd.Process)
}

func (h *processHandle) Done() <-chan error { return h.done }

// Release kills the player if still running, waits for it and removes the audio file
func (h *processHandle) Release() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	started := h.started
	h.mu.Unlock()

	if started {
		select {
		case <-h.exited:
		default:
			if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				slog.Warn("failed to kill audio player", "pid", h.cmd.Process.Pid, "error", err)
			}
			<-h.exited
		}
	}
	if err := os.Remove(h.file); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove audio file", "file", h.file, "error", err)
	}
}
