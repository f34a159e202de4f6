package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorecast/lorecast/internal/ai"
	"github.com/lorecast/lorecast/internal/audio"
	"github.com/lorecast/lorecast/internal/content"
	"github.com/lorecast/lorecast/internal/playback"
	"github.com/lorecast/lorecast/internal/source"
	"github.com/lorecast/lorecast/internal/voice"
	"github.com/lorecast/lorecast/podcast"
)

const keyHelp = "keys: p pause, r resume, s stop"

func newPodcastCommand(ctx *commandContext) *cobra.Command {
	podcastCmd := &cobra.Command{
		Use:   "podcast",
		Short: "Generate, inspect, play and render podcast scripts",
	}

	podcastCmd.AddCommand(newPodcastSegmentsCommand(ctx))
	podcastCmd.AddCommand(newPodcastPlayCommand(ctx))
	podcastCmd.AddCommand(newPodcastRenderCommand(ctx))
	podcastCmd.AddCommand(newPodcastGenerateCommand(ctx))

	return podcastCmd
}

// readSegments loads a script file, "-" reads stdin
func readSegments(cmd *cobra.Command, path string) ([]podcast.Segment, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	segments := content.ParseScript(string(data))
	if len(segments) == 0 {
		return nil, fmt.Errorf("script %s has no host lines: %w", path, playback.ErrNoSegments)
	}
	return segments, nil
}

func newPodcastSegmentsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "segments <file>",
		Short: "Show the segments of a script with their voice and mood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			segments, err := readSegments(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSegmentsTable(buildSelector(cfg), segments))
			fmt.Fprintf(out, "%d segments, about %s\n", len(segments),
				time.Duration(content.EstimateTotalDuration(segments)*float64(time.Second)).Round(time.Second))
			return nil
		},
	}
}

func renderSegmentsTable(selector *voice.Selector, segments []podcast.Segment) string {
	rows := make([][]string, 0, len(segments))
	for i, seg := range segments {
		sel := selector.Select(seg)
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			seg.Speaker.String(),
			sel.VoiceID,
			sel.Mood,
			strconv.FormatFloat(content.EstimateAudioDuration(seg.Text), 'f', 1, 64) + "s",
			content.TruncateString(seg.Text, 60),
		})
	}
	return renderTable(
		[]string{"#", "Speaker", "Voice", "Mood", "Est", "Text"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newPodcastPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <file>",
		Short: "Play a script through the local audio player",
		Long:  "Play a script segment by segment. Type p, r or s followed by enter to pause, resume or stop.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if args[0] == "-" {
				return errors.New("play reads keys from stdin, pass a script file")
			}
			segments, err := readSegments(cmd, args[0])
			if err != nil {
				return err
			}
			speech, err := buildSpeech(cfg)
			if err != nil {
				return err
			}

			player := audio.NewProcessPlayer(&audio.DefaultCommandRunner{Player: cfg.Audio.Player}, cfg.Audio.TempDir)
			seq := playback.NewSequencer(speech, buildSelector(cfg), player)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return playControlled(runCtx, seq, segments, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// playControlled runs segments on seq, applying keyboard commands read from in
// until playback is back to idle
func playControlled(ctx context.Context, seq *playback.Sequencer, segments []podcast.Segment, in io.Reader, out io.Writer) error {
	states, unsubscribe := seq.Subscribe()
	defer unsubscribe()

	if err := seq.Start(ctx, segments); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	fmt.Fprintln(out, keyHelp)

	done := make(chan struct{})
	defer close(done)
	keys := readKeys(in, done)

	var started bool
	var last string
	for {
		select {
		case st, ok := <-states:
			if !ok {
				return nil
			}
			if st.Status == playback.StatusIdle {
				if !started {
					continue
				}
				fmt.Fprintln(out, "finished")
				return ctx.Err()
			}
			started = true
			if line := describeState(st, segments); line != last {
				fmt.Fprintln(out, line)
				last = line
			}
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if err := applyKey(seq, key); err != nil {
				fmt.Fprintln(out, err)
			}
		case <-ctx.Done():
			_ = seq.Stop()
			return ctx.Err()
		}
	}
}

// readKeys delivers trimmed input lines until in is exhausted or done is closed
func readKeys(in io.Reader, done <-chan struct{}) <-chan string {
	keys := make(chan string)
	go func() {
		defer close(keys)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case keys <- strings.ToLower(strings.TrimSpace(scanner.Text())):
			case <-done:
				return
			}
		}
	}()
	return keys
}

func applyKey(seq *playback.Sequencer, key string) error {
	switch key {
	case "":
		return nil
	case "p", "pause":
		return seq.Pause()
	case "r", "resume":
		return seq.Resume()
	case "s", "stop", "q":
		return seq.Stop()
	default:
		return errors.New(keyHelp)
	}
}

func describeState(st playback.State, segments []podcast.Segment) string {
	if st.Status == playback.StatusPlaying && st.Index < len(segments) {
		seg := segments[st.Index]
		return fmt.Sprintf("[%d/%d] %s: %s", st.Index+1, st.Total, seg.Speaker, content.TruncateString(seg.Text, 70))
	}
	if st.Status == playback.StatusStopped {
		return "stopped"
	}
	return fmt.Sprintf("[%d/%d] %s", st.Index+1, st.Total, st.Status)
}

func newPodcastRenderCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Synthesize every segment and join them into one mp3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			segments, err := readSegments(cmd, args[0])
			if err != nil {
				return err
			}
			speech, err := buildSpeech(cfg)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			renderer := audio.NewRenderer(speech, buildSelector(cfg), &audio.FFmpeg{Path: cfg.Audio.FFmpeg}, cfg.Audio.RenderWorkers)
			res, err := renderer.Render(runCtx, segments, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d segments (%d skipped) to %s in %s\n",
				res.Rendered, res.Skipped, res.Output, res.Took.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", "podcast.mp3", "Output mp3 file")
	return cmd
}

func newPodcastGenerateCommand(ctx *commandContext) *cobra.Command {
	var link, text, title, output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a two-host script from a link or text",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if (link == "") == (text == "") {
				return errors.New("exactly one of --url or --text is required")
			}
			generator, err := buildGenerator(cfg)
			if err != nil {
				return err
			}

			if link != "" {
				doc, err := source.NewFetcher(nil).Fetch(cmd.Context(), link)
				if err != nil {
					return err
				}
				text = doc.Content
				if title == "" {
					title = doc.Title
				}
			}

			script, err := generator.GenerateScript(cmd.Context(), ai.ScriptParams{
				Title:         title,
				Content:       text,
				Hosts:         buildHosts(cfg),
				TargetMinutes: cfg.AI.TargetMinutes,
			})
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), script.Text)
				return nil
			}
			// only normalized host lines are written
			segments := content.ParseScript(script.Text)
			if len(segments) == 0 {
				return fmt.Errorf("generated script has no host lines: %w", playback.ErrNoSegments)
			}
			if err := os.WriteFile(output, []byte(content.FormatScript(segments)), 0o600); err != nil {
				return fmt.Errorf("failed to write script: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %q with %d segments to %s\n", script.Title, len(segments), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&link, "url", "", "Article or video page to discuss")
	cmd.Flags().StringVar(&text, "text", "", "Text to discuss")
	cmd.Flags().StringVar(&title, "title", "", "Episode title, defaults to the page title")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Write the script to a file instead of stdout")
	return cmd
}
