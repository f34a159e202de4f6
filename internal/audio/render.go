package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lorecast/lorecast/internal/tts"
	"github.com/lorecast/lorecast/internal/voice"
	"github.com/lorecast/lorecast/podcast"
)

// Concatenator joins ordered audio files into one output file
type Concatenator interface {
	Concatenate(ctx context.Context, files []string, outputFile string) error
}

// RenderResult summarizes a render
type RenderResult struct {
	Output   string
	Rendered int
	Skipped  int
	Took     time.Duration
}

// Renderer fetches every segment with a small worker pool and concatenates them in script order
type Renderer struct {
	fetcher  tts.Fetcher
	selector *voice.Selector
	concat   Concatenator
	workers  int
}

// NewRenderer creates a renderer, workers below 1 means one worker
func NewRenderer(fetcher tts.Fetcher, selector *voice.Selector, concat Concatenator, workers int) *Renderer {
	if selector == nil {
		selector = voice.NewSelector(nil)
	}
	if concat == nil {
		concat = &FFmpeg{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Renderer{fetcher: fetcher, selector: selector, concat: concat, workers: workers}
}

type renderJob struct {
	index int
	seg   podcast.Segment
}

type renderOut struct {
	index int
	file  string
	err   error
}

// Render writes the spoken script to outputFile. Segments that fail to fetch are skipped.
func (r *Renderer) Render(ctx context.Context, segments []podcast.Segment, outputFile string) (RenderResult, error) {
	start := time.Now()
	tempDir, err := os.MkdirTemp("", "lorecast-render")
	if err != nil {
		return RenderResult{}, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	jobs := make(chan renderJob)
	results := make(chan renderOut, len(segments))
	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				file, err := r.renderSegment(ctx, tempDir, job)
				results <- renderOut{index: job.index, file: file, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, seg := range segments {
			if strings.TrimSpace(seg.Text) == "" {
				continue
			}
			select {
			case jobs <- renderJob{index: i, seg: seg}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	files := make([]string, len(segments))
	res := RenderResult{Output: outputFile}
	for out := range results {
		if out.err != nil {
			res.Skipped++
			slog.Warn("segment render failed, skipping", "index", out.index, "error", out.err)
			continue
		}
		files[out.index] = out.file
		res.Rendered++
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("render cancelled: %w", err)
	}

	ordered := make([]string, 0, res.Rendered)
	for _, f := range files {
		if f != "" {
			ordered = append(ordered, f)
		}
	}
	if len(ordered) == 0 {
		return res, fmt.Errorf("no segments rendered")
	}

	if err := r.concat.Concatenate(ctx, ordered, outputFile); err != nil {
		return res, err
	}
	res.Took = time.Since(start)
	slog.Info("podcast rendered", "output", outputFile, "segments", res.Rendered, "skipped", res.Skipped,
		"took", res.Took.Round(time.Millisecond))
	return res, nil
}

func (r *Renderer) renderSegment(ctx context.Context, dir string, job renderJob) (string, error) {
	sel := r.selector.Select(job.seg)
	audio, err := r.fetcher.Fetch(ctx, tts.Request{Text: job.seg.Text, VoiceID: sel.VoiceID, Mood: sel.Mood})
	if err != nil {
		return "", err
	}
	filename := filepath.Join(dir, fmt.Sprintf("segment_%03d.mp3", job.index))
	if err := os.WriteFile(filename, audio.Data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	return filename, nil
}
