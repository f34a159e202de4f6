package broadcast

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorecast/lorecast/internal/playback"
	"github.com/lorecast/lorecast/internal/tts"
	"github.com/lorecast/lorecast/internal/tts/mocks"
	"github.com/lorecast/lorecast/podcast"
)

type recordingSink struct {
	mu     sync.Mutex
	frames []AudioFrame
	chunks [][]byte
}

func (r *recordingSink) BroadcastJSON(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, v.(AudioFrame))
	return nil
}

func (r *recordingSink) BroadcastBinary(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, append([]byte(nil), data...))
}

func (r *recordingSink) chunkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) StatusFrame {
	t.Helper()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if kind != websocket.TextMessage {
			continue
		}
		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, sonic.Unmarshal(data, &head))
		if head.Type != "status" {
			continue
		}
		var f StatusFrame
		require.NoError(t, sonic.Unmarshal(data, &f))
		return f
	}
}

func TestStreamPlayer_StreamsInOrder(t *testing.T) {
	sink := &recordingSink{}
	player := NewStreamPlayer(sink, StreamOptions{ChunkSize: 4, Bitrate: 320_000})

	data := []byte("0123456789abcdefghij")
	h, err := player.Open(context.Background(), &tts.Audio{Data: data, ContentType: tts.ContentTypeMPEG})
	require.NoError(t, err)
	require.NoError(t, h.Play())
	assert.Error(t, h.Play(), "second play is rejected")

	select {
	case err := <-h.Done():
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not complete")
	}
	h.Release()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, data, bytes.Join(sink.chunks, nil))
	assert.Len(t, sink.chunks, 5)
	require.Len(t, sink.frames, 2)
	assert.Equal(t, AudioFrame{Type: "audio_start", ContentType: tts.ContentTypeMPEG, Size: 20}, sink.frames[0])
	assert.Equal(t, "audio_end", sink.frames[1].Type)
}

func TestStreamPlayer_PauseHoldsPump(t *testing.T) {
	sink := &recordingSink{}
	// 10ms between chunks
	player := NewStreamPlayer(sink, StreamOptions{ChunkSize: 4, Bitrate: 3200})

	h, err := player.Open(context.Background(), &tts.Audio{Data: bytes.Repeat([]byte("x"), 40)})
	require.NoError(t, err)
	assert.Error(t, h.Pause(), "pause before play")
	require.NoError(t, h.Play())

	require.Eventually(t, func() bool { return sink.chunkCount() >= 2 }, 2*time.Second, time.Millisecond)
	require.NoError(t, h.Pause())
	time.Sleep(20 * time.Millisecond) // let an in-flight tick settle
	held := sink.chunkCount()
	assert.Never(t, func() bool { return sink.chunkCount() != held }, 100*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, h.Resume())
	select {
	case err := <-h.Done():
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not complete after resume")
	}
	assert.Equal(t, 10, sink.chunkCount())
	h.Release()
}

func TestStreamPlayer_ReleaseStops(t *testing.T) {
	sink := &recordingSink{}
	player := NewStreamPlayer(sink, StreamOptions{ChunkSize: 1, Bitrate: 80})

	h, err := player.Open(context.Background(), &tts.Audio{Data: bytes.Repeat([]byte("x"), 100)})
	require.NoError(t, err)
	require.NoError(t, h.Play())
	require.NoError(t, h.Pause())

	h.Release()
	h.Release()
	assert.Less(t, sink.chunkCount(), 100)
	select {
	case <-h.Done():
		t.Fatal("released stream must not report completion")
	default:
	}
	assert.Error(t, h.Resume())

	_, err = player.Open(context.Background(), &tts.Audio{})
	assert.Error(t, err)
}

func TestHub_ReplaysStatusAndFansOut(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	require.NoError(t, hub.BroadcastStatus(StatusFrame{Type: "status", Session: "s-1"}))

	first := dial(t, server)
	f := readStatus(t, first)
	assert.Equal(t, "s-1", f.Session, "late joiner receives last status")

	second := dial(t, server)
	_ = readStatus(t, second)
	require.Eventually(t, func() bool { return hub.Listeners() == 2 }, 2*time.Second, 5*time.Millisecond)

	hub.BroadcastBinary([]byte{1, 2, 3})
	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, kind)
		assert.Equal(t, []byte{1, 2, 3}, data)
	}

	_ = second.Close()
	require.Eventually(t, func() bool { return hub.Listeners() == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Close()
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := first.ReadMessage()
	assert.Error(t, err, "close disconnects listeners")
	assert.Equal(t, 0, hub.Listeners())
}

func TestHub_DropsSlowListener(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	fast := dial(t, server)
	require.Eventually(t, func() bool { return hub.Listeners() == 1 }, 2*time.Second, 5*time.Millisecond)

	// a listener without a write pump, its queue never drains
	upgraded := make(chan *websocket.Conn, 1)
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err == nil {
			upgraded <- conn
		}
	}))
	defer raw.Close()
	dial(t, raw)

	var conn *websocket.Conn
	select {
	case conn = <-upgraded:
	case <-time.After(2 * time.Second):
		t.Fatal("slow listener was not upgraded")
	}
	slow := &client{conn: conn, send: make(chan frame, sendBuffer), done: make(chan struct{})}
	require.True(t, hub.register(slow))
	for i := 0; i < sendBuffer; i++ {
		slow.send <- frame{kind: websocket.TextMessage, data: []byte(`{}`)}
	}
	require.Equal(t, 2, hub.Listeners())

	require.NoError(t, hub.BroadcastJSON(map[string]string{"type": "chapter"}))
	assert.Equal(t, 1, hub.Listeners(), "full queue drops the listener")
	select {
	case <-slow.done:
	default:
		t.Fatal("slow listener was not closed")
	}

	_ = fast.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := fast.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `{"type":"chapter"}`, string(data), "other listeners keep receiving")
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://lore.example"})
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestStation_BroadcastsSession(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	fetcher := &mocks.FetcherMock{
		FetchFunc: func(ctx context.Context, req tts.Request) (*tts.Audio, error) {
			return &tts.Audio{Data: []byte(req.Text), ContentType: tts.ContentTypeMPEG}, nil
		},
	}
	station := NewStation(fetcher, nil, hub, StreamOptions{ChunkSize: 64, Bitrate: 1_000_000})
	defer station.Close()

	conn := dial(t, server)
	require.Equal(t, playback.StatusIdle, readStatus(t, conn).State.Status)

	segments := []podcast.Segment{
		{Speaker: podcast.Host1, Text: "Welcome to the archive."},
		{Speaker: podcast.Host2, Text: "Tonight, the drowned city."},
	}
	session, err := station.Start(context.Background(), segments)
	require.NoError(t, err)
	assert.NotEmpty(t, session)

	var sawPlaying bool
	for {
		f := readStatus(t, conn)
		assert.Equal(t, session, f.Session)
		if f.State.Status == playback.StatusPlaying {
			sawPlaying = true
			require.NotNil(t, f.Segment)
			assert.Equal(t, segments[f.State.Index], *f.Segment)
			assert.Greater(t, f.EstimatedSeconds, 0.0)
		}
		if f.State.Status == playback.StatusIdle {
			break
		}
	}
	assert.True(t, sawPlaying)
	assert.Len(t, fetcher.FetchCalls(), 2)

	_, err = station.Start(context.Background(), nil)
	assert.ErrorIs(t, err, playback.ErrNoSegments)
	assert.Equal(t, session, station.Status().Session, "failed start keeps the previous session")
}

func TestStation_Controls(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	fetcher := &mocks.FetcherMock{
		FetchFunc: func(ctx context.Context, req tts.Request) (*tts.Audio, error) {
			return &tts.Audio{Data: bytes.Repeat([]byte("x"), 1000)}, nil
		},
	}
	// slow enough that the first segment is still streaming while we drive it
	station := NewStation(fetcher, nil, hub, StreamOptions{ChunkSize: 10, Bitrate: 800})
	defer station.Close()

	_, err := station.Start(context.Background(), []podcast.Segment{{Speaker: podcast.Host1, Text: "A long tale."}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return station.Status().State.Status == playback.StatusPlaying
	}, 2*time.Second, 5*time.Millisecond)

	_, err = station.Start(context.Background(), []podcast.Segment{{Speaker: podcast.Host1, Text: "x"}})
	assert.ErrorIs(t, err, playback.ErrInvalidTransition)

	require.NoError(t, station.Pause())
	assert.Equal(t, playback.StatusPaused, station.Status().State.Status)
	require.NoError(t, station.Resume())
	require.NoError(t, station.Stop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, station.Wait(ctx))
	assert.Equal(t, playback.StatusIdle, station.Status().State.Status)
	assert.Nil(t, station.Status().Segment)
}
