package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorecast/lorecast/internal/audio/mocks"
	"github.com/lorecast/lorecast/internal/tts"
	tmocks "github.com/lorecast/lorecast/internal/tts/mocks"
	"github.com/lorecast/lorecast/podcast"
)

func shellRunner(script string) *mocks.CommandRunnerMock {
	return &mocks.CommandRunnerMock{
		AudioCommandFunc: func(ctx context.Context, filename string) (*exec.Cmd, error) {
			return exec.CommandContext(ctx, "sh", "-c", script), nil
		},
	}
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestProcessPlayer_PlaysToCompletion(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	runner := shellRunner("exit 0")
	player := NewProcessPlayer(runner, dir)

	h, err := player.Open(context.Background(), &tts.Audio{Data: []byte("mp3")})
	require.NoError(t, err)

	calls := runner.AudioCommandCalls()
	require.Len(t, calls, 1)
	data, err := os.ReadFile(calls[0].Filename)
	require.NoError(t, err)
	assert.Equal(t, "mp3", string(data))
	assert.Equal(t, dir, filepath.Dir(calls[0].Filename))

	require.NoError(t, h.Play())
	select {
	case err := <-h.Done():
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("player did not finish")
	}

	h.Release()
	h.Release()
	_, err = os.Stat(calls[0].Filename)
	assert.True(t, os.IsNotExist(err), "audio file removed on release")
}

func TestProcessPlayer_ReportsPlayerFailure(t *testing.T) {
	skipWithoutShell(t)
	player := NewProcessPlayer(shellRunner("exit 3"), t.TempDir())
	h, err := player.Open(context.Background(), &tts.Audio{Data: []byte("mp3")})
	require.NoError(t, err)
	defer h.Release()

	require.NoError(t, h.Play())
	select {
	case err := <-h.Done():
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("player did not finish")
	}
}

func TestProcessPlayer_PauseResumeRelease(t *testing.T) {
	skipWithoutShell(t)
	runner := shellRunner("exec sleep 30")
	player := NewProcessPlayer(runner, t.TempDir())
	h, err := player.Open(context.Background(), &tts.Audio{Data: []byte("mp3")})
	require.NoError(t, err)

	assert.Error(t, h.Pause(), "pause before play is rejected")

	require.NoError(t, h.Play())
	require.NoError(t, h.Pause())
	require.NoError(t, h.Resume())
	require.NoError(t, h.Pause())

	released := make(chan struct{})
	go func() {
		h.Release()
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("release did not kill a paused player")
	}

	assert.Error(t, <-h.Done(), "killed player reports an error")
	_, err = os.Stat(runner.AudioCommandCalls()[0].Filename)
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, h.Play(), "released handle cannot play")
}

func TestProcessPlayer_OpenErrors(t *testing.T) {
	player := NewProcessPlayer(shellRunner("exit 0"), t.TempDir())
	_, err := player.Open(context.Background(), &tts.Audio{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio data")

	dir := t.TempDir()
	failing := &mocks.CommandRunnerMock{
		AudioCommandFunc: func(ctx context.Context, filename string) (*exec.Cmd, error) {
			return nil, errors.New("no player")
		},
	}
	_, err = NewProcessPlayer(failing, dir).Open(context.Background(), &tts.Audio{Data: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get audio command")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file cleaned up when no player is available")
}

func TestDefaultCommandRunner(t *testing.T) {
	tests := []struct {
		name          string
		runner        DefaultCommandRunner
		filename      string
		expectedArgs  []string
		expectedError string
	}{
		{
			name:          "rejects path traversal",
			filename:      "../etc/passwd",
			expectedError: "invalid filename",
		},
		{
			name:          "rejects shell metacharacters",
			filename:      "/tmp/a;rm -rf",
			expectedError: "invalid filename",
		},
		{
			name:         "forced mpv gets its flags",
			runner:       DefaultCommandRunner{Player: "/usr/bin/mpv"},
			filename:     "/tmp/seg.mp3",
			expectedArgs: []string{"/usr/bin/mpv", "--no-video", "--really-quiet", "/tmp/seg.mp3"},
		},
		{
			name:         "forced unknown player gets filename only",
			runner:       DefaultCommandRunner{Player: "cvlc"},
			filename:     "/tmp/seg.mp3",
			expectedArgs: []string{"cvlc", "/tmp/seg.mp3"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := tc.runner.AudioCommand(context.Background(), tc.filename)
			if tc.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedArgs, cmd.Args)
		})
	}
}

func TestWriteConcatFile(t *testing.T) {
	dir := t.TempDir()
	name, err := WriteConcatFile(dir, []string{"/tmp/a.mp3", "/tmp/it's.mp3"})
	require.NoError(t, err)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "file '/tmp/a.mp3'\nfile '/tmp/it'\\''s.mp3'\n", string(data))
}

func TestFFmpeg_ConcatenateRequiresFiles(t *testing.T) {
	err := (&FFmpeg{}).Concatenate(context.Background(), nil, "out.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio files")
}

type recordingConcat struct {
	mu       sync.Mutex
	contents []string
	err      error
}

func (c *recordingConcat) Concatenate(_ context.Context, files []string, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		c.contents = append(c.contents, string(data))
	}
	return c.err
}

func TestRenderer_Render(t *testing.T) {
	fetcher := &tmocks.FetcherMock{
		FetchFunc: func(ctx context.Context, req tts.Request) (*tts.Audio, error) {
			if strings.Contains(req.Text, "fail") {
				return nil, errors.New("provider down")
			}
			return &tts.Audio{Data: []byte(req.Text)}, nil
		},
	}
	concat := &recordingConcat{}
	renderer := NewRenderer(fetcher, nil, concat, 3)

	segs := []podcast.Segment{
		{Speaker: podcast.Host1, Text: "one"},
		{Speaker: podcast.Host2, Text: "two"},
		{Speaker: podcast.Host1, Text: "  "},
		{Speaker: podcast.Host2, Text: "please fail"},
		{Speaker: podcast.Host1, Text: "five"},
	}
	res, err := renderer.Render(context.Background(), segs, "out.mp3")
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two", "five"}, concat.contents, "script order is preserved")
	assert.Equal(t, 3, res.Rendered)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "out.mp3", res.Output)

	var texts []string
	for _, c := range fetcher.FetchCalls() {
		texts = append(texts, c.Req.Text)
	}
	sort.Strings(texts)
	assert.Equal(t, []string{"five", "one", "please fail", "two"}, texts, "blank segments are never fetched")
}

func TestRenderer_RenderNothing(t *testing.T) {
	fetcher := &tmocks.FetcherMock{
		FetchFunc: func(ctx context.Context, req tts.Request) (*tts.Audio, error) {
			return nil, errors.New("provider down")
		},
	}
	_, err := NewRenderer(fetcher, nil, &recordingConcat{}, 0).
		Render(context.Background(), []podcast.Segment{{Speaker: podcast.Host1, Text: "hi"}}, "out.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no segments rendered")
}
