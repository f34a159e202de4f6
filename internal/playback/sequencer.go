// Package playback drives a podcast script through speech fetching and audio playback,
// one segment at a time, under start/pause/resume/stop control.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lorecast/lorecast/internal/content"
	"github.com/lorecast/lorecast/internal/tts"
	"github.com/lorecast/lorecast/internal/voice"
	"github.com/lorecast/lorecast/podcast"
)

// subscriberBuffer is how many states an observer may lag behind before the oldest are dropped
const subscriberBuffer = 16

var (
	// ErrInvalidTransition is returned for a command not allowed in the current status
	ErrInvalidTransition = errors.New("invalid playback transition")
	// ErrNoSegments is returned when starting with nothing to play
	ErrNoSegments = errors.New("no segments to play")
)

// Handle is one live, playable audio resource
type Handle interface {
	Play() error
	Pause() error
	Resume() error
	// Done delivers nil on natural completion or the playback error
	Done() <-chan error
	// Release frees the underlying resource, safe to call more than once
	Release()
}

// Player turns fetched audio into a Handle
type Player interface {
	Open(ctx context.Context, audio *tts.Audio) (Handle, error)
}

// run is one activation of the segment loop
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Sequencer plays segments strictly in order with at most one fetch and one handle live
type Sequencer struct {
	fetcher  tts.Fetcher
	selector *voice.Selector
	player   Player

	mu       sync.Mutex
	parent   context.Context
	segments []podcast.Segment
	status   Status
	index    int
	handle   Handle
	cur      *run
	subs     map[int]chan State
	nextSub  int
	last     State
}

// NewSequencer creates an idle sequencer
func NewSequencer(fetcher tts.Fetcher, selector *voice.Selector, player Player) *Sequencer {
	if selector == nil {
		selector = voice.NewSelector(nil)
	}
	return &Sequencer{
		fetcher:  fetcher,
		selector: selector,
		player:   player,
		subs:     make(map[int]chan State),
	}
}

// Start begins playing segments from index 0. ctx bounds the whole run.
func (s *Sequencer) Start(ctx context.Context, segments []podcast.Segment) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusIdle {
		return fmt.Errorf("start from %s: %w", s.status, ErrInvalidTransition)
	}

	s.parent = ctx
	s.segments = append([]podcast.Segment(nil), segments...)
	s.index = 0
	s.status = StatusLoading
	s.publishLocked()
	s.startLocked(0)

	slog.Info("playback started", "segments", len(segments))
	return nil
}

// Pause holds the playing segment without releasing its audio
func (s *Sequencer) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying || s.handle == nil {
		return fmt.Errorf("pause from %s: %w", s.status, ErrInvalidTransition)
	}
	if err := s.handle.Pause(); err != nil {
		return fmt.Errorf("failed to pause audio: %w", err)
	}
	s.status = StatusPaused
	s.publishLocked()
	slog.Debug("playback paused", "index", s.index)
	return nil
}

// Resume continues the paused segment in place, or fetches it again when its audio is gone
func (s *Sequencer) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPaused {
		return fmt.Errorf("resume from %s: %w", s.status, ErrInvalidTransition)
	}

	if s.handle != nil {
		if err := s.handle.Resume(); err != nil {
			return fmt.Errorf("failed to resume audio: %w", err)
		}
		s.status = StatusPlaying
		s.publishLocked()
		slog.Debug("playback resumed", "index", s.index)
		return nil
	}

	if s.cur != nil {
		s.cur.cancel()
	}
	s.status = StatusLoading
	s.publishLocked()
	s.startLocked(s.index)
	slog.Debug("playback restarted segment", "index", s.index)
	return nil
}

// Stop abandons the run, releases audio and resets progress
func (s *Sequencer) Stop() error {
	s.mu.Lock()
	if s.status == StatusIdle {
		s.mu.Unlock()
		return fmt.Errorf("stop from %s: %w", s.status, ErrInvalidTransition)
	}

	h := s.handle
	s.handle = nil
	if s.cur != nil {
		s.cur.cancel()
		s.cur = nil
	}
	s.index = 0
	s.status = StatusStopped
	s.publishLocked()
	s.resetLocked()
	s.publishLocked()
	s.mu.Unlock()

	if h != nil {
		h.Release()
	}
	slog.Info("playback stopped")
	return nil
}

// State returns the current snapshot
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe streams state changes starting with the current one. The returned func
// unsubscribes and closes the channel. A slow reader loses the oldest states, never the latest.
func (s *Sequencer) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan State, subscriberBuffer)
	ch <- s.snapshotLocked()
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// Wait blocks until the sequencer is idle or ctx is done
func (s *Sequencer) Wait(ctx context.Context) error {
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()
	for {
		select {
		case st := <-ch:
			if st.Status == StatusIdle {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Sequencer) startLocked(from int) {
	ctx, cancel := context.WithCancel(s.parent)
	r := &run{ctx: ctx, cancel: cancel}
	s.cur = r
	go s.run(r, from)
}

func (s *Sequencer) run(r *run, from int) {
	defer s.finish(r)
	for i := from; ; i++ {
		seg, ok := s.begin(r, i)
		if !ok {
			return
		}
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		if !s.playSegment(r, i, seg) {
			return
		}
	}
}

// begin moves to index i. It reports false when the run is stale or has completed.
func (s *Sequencer) begin(r *run, i int) (podcast.Segment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked(r) {
		return podcast.Segment{}, false
	}
	if i >= len(s.segments) {
		s.resetLocked()
		s.publishLocked()
		slog.Info("playback completed", "segments", len(s.segments))
		return podcast.Segment{}, false
	}

	s.index = i
	seg := s.segments[i]
	if strings.TrimSpace(seg.Text) != "" {
		s.status = StatusLoading
		s.publishLocked()
	}
	return seg, true
}

// playSegment fetches, plays and waits out one segment. It reports whether the run continues.
func (s *Sequencer) playSegment(r *run, i int, seg podcast.Segment) bool {
	sel := s.selector.Select(seg)
	log := slog.With("index", i, "speaker", seg.Speaker.String(), "mood", sel.Mood)
	log.Debug("fetching segment", "text", content.TruncateString(seg.Text, content.DisplayTruncateLength))

	audio, err := s.fetcher.Fetch(r.ctx, tts.Request{Text: seg.Text, VoiceID: sel.VoiceID, Mood: sel.Mood})
	if r.ctx.Err() != nil {
		return false
	}
	if err != nil {
		log.Warn("segment fetch failed, skipping", "error", err)
		return true
	}

	h, err := s.player.Open(r.ctx, audio)
	if err != nil {
		log.Warn("failed to open segment audio, skipping", "error", err)
		return true
	}

	s.mu.Lock()
	if !s.liveLocked(r) {
		s.mu.Unlock()
		h.Release()
		return false
	}
	if err := h.Play(); err != nil {
		s.mu.Unlock()
		h.Release()
		log.Warn("failed to start segment audio, skipping", "error", err)
		return true
	}
	s.handle = h
	s.status = StatusPlaying
	s.publishLocked()
	s.mu.Unlock()

	select {
	case err := <-h.Done():
		s.mu.Lock()
		if !s.liveLocked(r) {
			// stop took ownership of the handle
			s.mu.Unlock()
			return false
		}
		s.handle = nil
		paused := s.status == StatusPaused
		if paused {
			// audio vanished while paused, resume will fetch this index again
			s.cur = nil
			s.publishLocked()
		}
		s.mu.Unlock()

		h.Release()
		if err != nil {
			log.Warn("segment playback failed", "error", err)
		}
		return !paused
	case <-r.ctx.Done():
		return false
	}
}

// finish runs when the loop exits and resets if the parent context ended the run
func (s *Sequencer) finish(r *run) {
	s.mu.Lock()
	var h Handle
	if s.cur == r {
		h = s.handle
		s.resetLocked()
		s.publishLocked()
		slog.Info("playback cancelled", "reason", context.Cause(r.ctx))
	}
	s.mu.Unlock()

	r.cancel()
	if h != nil {
		h.Release()
	}
}

func (s *Sequencer) liveLocked(r *run) bool {
	return s.cur == r && r.ctx.Err() == nil
}

func (s *Sequencer) resetLocked() {
	if s.cur != nil {
		s.cur.cancel()
		s.cur = nil
	}
	s.handle = nil
	s.index = 0
	s.status = StatusIdle
}

func (s *Sequencer) snapshotLocked() State {
	return State{
		Index:    s.index,
		Status:   s.status,
		HasAudio: s.handle != nil,
		Total:    len(s.segments),
	}
}

// publishLocked fans the current state out to subscribers, dropping each lagging reader's oldest state
func (s *Sequencer) publishLocked() {
	st := s.snapshotLocked()
	if st == s.last {
		return
	}
	s.last = st
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}
