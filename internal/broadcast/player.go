package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lorecast/lorecast/internal/playback"
	"github.com/lorecast/lorecast/internal/tts"
)

const (
	// DefaultBitrate matches the 128 kbps mp3 the tts providers return
	DefaultBitrate   = 128_000
	defaultChunkSize = 8 * 1024
)

// Sink receives paced audio
type Sink interface {
	BroadcastJSON(v any) error
	BroadcastBinary(data []byte)
}

// StreamOptions tune audio pacing
type StreamOptions struct {
	ChunkSize int // bytes per binary frame
	Bitrate   int // bits per second used to pace frames
}

// AudioFrame announces the start or end of a segment's audio stream
type AudioFrame struct {
	Type        string `json:"type"`
	ContentType string `json:"contentType,omitempty"`
	Size        int    `json:"size,omitempty"`
}

// StreamPlayer is a playback.Player that streams audio to listeners in real time
type StreamPlayer struct {
	sink     Sink
	chunk    int
	interval time.Duration
}

// NewStreamPlayer creates a player pacing chunks so listeners receive audio at playback speed
func NewStreamPlayer(sink Sink, opts StreamOptions) *StreamPlayer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.Bitrate <= 0 {
		opts.Bitrate = DefaultBitrate
	}
	interval := time.Duration(float64(opts.ChunkSize*8) / float64(opts.Bitrate) * float64(time.Second))
	return &StreamPlayer{sink: sink, chunk: opts.ChunkSize, interval: interval}
}

// Open prepares a stream handle for the audio, nothing is sent until Play
func (p *StreamPlayer) Open(ctx context.Context, audio *tts.Audio) (playback.Handle, error) {
	if audio == nil || len(audio.Data) == 0 {
		return nil, errors.New("no audio to stream")
	}
	hctx, cancel := context.WithCancel(ctx)
	return &streamHandle{
		player:      p,
		data:        audio.Data,
		contentType: audio.ContentType,
		ctx:         hctx,
		cancel:      cancel,
		done:        make(chan error, 1),
		exited:      make(chan struct{}),
	}, nil
}

type streamHandle struct {
	player      *StreamPlayer
	data        []byte
	contentType string
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan error
	exited      chan struct{}

	mu       sync.Mutex
	started  bool
	gate     chan struct{} // non-nil while paused
	released bool
}

func (h *streamHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return errors.New("stream already started")
	}
	if h.released {
		return errors.New("stream released")
	}
	h.started = true
	go h.pump()
	return nil
}

func (h *streamHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started || h.released {
		return errors.New("stream not running")
	}
	if h.gate == nil {
		h.gate = make(chan struct{})
	}
	return nil
}

func (h *streamHandle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started || h.released {
		return errors.New("stream not running")
	}
	if h.gate != nil {
		close(h.gate)
		h.gate = nil
	}
	return nil
}

func (h *streamHandle) Done() <-chan error {
	return h.done
}

func (h *streamHandle) Release() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	started := h.started
	h.mu.Unlock()

	h.cancel()
	if started {
		<-h.exited
	}
}

func (h *streamHandle) pump() {
	defer close(h.exited)
	sink := h.player.sink
	_ = sink.BroadcastJSON(AudioFrame{Type: "audio_start", ContentType: h.contentType, Size: len(h.data)})

	timer := time.NewTimer(0)
	defer timer.Stop()
	for off := 0; off < len(h.data); {
		if !h.waitUnpaused() {
			return
		}
		select {
		case <-timer.C:
		case <-h.ctx.Done():
			return
		}
		// pause may have landed while waiting for the tick
		if !h.waitUnpaused() {
			return
		}

		end := min(off+h.player.chunk, len(h.data))
		sink.BroadcastBinary(h.data[off:end])
		off = end
		timer.Reset(h.player.interval)
	}

	// let the last chunk play out before reporting completion
	select {
	case <-timer.C:
	case <-h.ctx.Done():
		return
	}
	_ = sink.BroadcastJSON(AudioFrame{Type: "audio_end"})
	h.done <- nil
}

// waitUnpaused blocks while paused and reports false once released
func (h *streamHandle) waitUnpaused() bool {
	h.mu.Lock()
	gate := h.gate
	h.mu.Unlock()
	if gate == nil {
		return h.ctx.Err() == nil
	}
	select {
	case <-gate:
		return h.ctx.Err() == nil
	case <-h.ctx.Done():
		return false
	}
}
