package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lorecast/lorecast/internal/content"
	"github.com/lorecast/lorecast/internal/playback"
	"github.com/lorecast/lorecast/internal/tts"
	"github.com/lorecast/lorecast/internal/voice"
	"github.com/lorecast/lorecast/podcast"
)

// StatusFrame describes the shared session to listeners
type StatusFrame struct {
	Type             string           `json:"type"`
	Session          string           `json:"session,omitempty"`
	State            playback.State   `json:"state"`
	Segment          *podcast.Segment `json:"segment,omitempty"`
	EstimatedSeconds float64          `json:"estimatedSeconds,omitempty"`
	Listeners        int              `json:"listeners"`
}

// Station runs one shared playback session and mirrors it to the hub
type Station struct {
	hub *Hub
	seq *playback.Sequencer

	mu       sync.Mutex
	session  string
	segments []podcast.Segment
	estimate float64

	unsubscribe func()
	forwarded   chan struct{}
}

// NewStation wires a sequencer whose audio is streamed through hub
func NewStation(fetcher tts.Fetcher, selector *voice.Selector, hub *Hub, opts StreamOptions) *Station {
	st := &Station{
		hub:       hub,
		seq:       playback.NewSequencer(fetcher, selector, NewStreamPlayer(hub, opts)),
		forwarded: make(chan struct{}),
	}
	states, unsubscribe := st.seq.Subscribe()
	st.unsubscribe = unsubscribe
	go st.forward(states)
	return st
}

// Start begins a new session. ctx bounds the session, not a single request.
func (s *Station) Start(ctx context.Context, segments []podcast.Segment) (string, error) {
	if st := s.seq.State(); st.Status != playback.StatusIdle {
		return "", fmt.Errorf("start from %s: %w", st.Status, playback.ErrInvalidTransition)
	}

	s.mu.Lock()
	prevSession, prevSegments, prevEstimate := s.session, s.segments, s.estimate
	s.session = uuid.New().String()
	s.segments = append([]podcast.Segment(nil), segments...)
	s.estimate = content.EstimateTotalDuration(segments)
	session := s.session
	s.mu.Unlock()

	if err := s.seq.Start(ctx, segments); err != nil {
		s.mu.Lock()
		if s.session == session {
			s.session, s.segments, s.estimate = prevSession, prevSegments, prevEstimate
		}
		s.mu.Unlock()
		return "", err
	}
	slog.Info("broadcast session started", "session", session, "segments", len(segments))
	return session, nil
}

// Pause holds the shared stream
func (s *Station) Pause() error { return s.seq.Pause() }

// Resume continues the shared stream
func (s *Station) Resume() error { return s.seq.Resume() }

// Stop ends the session
func (s *Station) Stop() error { return s.seq.Stop() }

// Status returns the current session frame
func (s *Station) Status() StatusFrame {
	return s.frame(s.seq.State())
}

// Wait blocks until the session is idle or ctx is done
func (s *Station) Wait(ctx context.Context) error {
	return s.seq.Wait(ctx)
}

// Close stops any session and detaches from the hub
func (s *Station) Close() {
	_ = s.seq.Stop()
	s.unsubscribe()
	<-s.forwarded
}

func (s *Station) forward(states <-chan playback.State) {
	defer close(s.forwarded)
	for state := range states {
		if err := s.hub.BroadcastStatus(s.frame(state)); err != nil {
			slog.Warn("failed to broadcast status", "error", err)
		}
	}
}

func (s *Station) frame(state playback.State) StatusFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := StatusFrame{
		Type:      "status",
		Session:   s.session,
		State:     state,
		Listeners: s.hub.Listeners(),
	}
	if state.Status != playback.StatusIdle {
		f.EstimatedSeconds = s.estimate
		if state.Index < len(s.segments) {
			seg := s.segments[state.Index]
			f.Segment = &seg
		}
	}
	return f
}
