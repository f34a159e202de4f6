package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorecast/lorecast/internal/ai"
	"github.com/lorecast/lorecast/internal/broadcast"
	"github.com/lorecast/lorecast/internal/lore"
	"github.com/lorecast/lorecast/internal/server/mocks"
	"github.com/lorecast/lorecast/internal/source"
	"github.com/lorecast/lorecast/internal/tips"
	"github.com/lorecast/lorecast/internal/tts"
	tmocks "github.com/lorecast/lorecast/internal/tts/mocks"
	"github.com/lorecast/lorecast/podcast"
)

const wallet = "0x2222222222222222222222222222222222222222"

type testEnv struct {
	url   string
	store *lore.Store
}

func newTestEnv(t *testing.T, configure func(*Deps)) testEnv {
	t.Helper()
	store, err := lore.Open(filepath.Join(t.TempDir(), "lore.db"), lore.Options{CanonThreshold: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	deps := Deps{Store: store, AdminToken: "admin-secret", StoryContext: 10}
	if configure != nil {
		configure(&deps)
	}
	ts := httptest.NewServer(New(":0", time.Second, deps).Handler())
	t.Cleanup(ts.Close)
	return testEnv{url: ts.URL, store: store}
}

func do(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := sonic.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := do(t, http.MethodGet, env.url+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, _ = do(t, http.MethodGet, env.url+"/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, env.store.Close())
	resp, body = do(t, http.MethodGet, env.url+"/readyz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "database unavailable")
}

func TestLoreEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := do(t, http.MethodPost, env.url+"/api/lore", lore.NewEntry{Title: "the iron tide", Body: "A fleet that never docks."}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created lore.Entry
	require.NoError(t, sonic.Unmarshal(body, &created))
	assert.Equal(t, "The Iron Tide", created.Title)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "malformed json", method: http.MethodPost, path: "/api/lore", body: "{", status: http.StatusBadRequest},
		{name: "missing body", method: http.MethodPost, path: "/api/lore", body: lore.NewEntry{Title: "x"}, status: http.StatusBadRequest},
		{name: "unknown entry", method: http.MethodGet, path: "/api/lore/nope", status: http.StatusNotFound},
		{name: "bad limit", method: http.MethodGet, path: "/api/lore?limit=abc", status: http.StatusBadRequest},
		{name: "bad vote", method: http.MethodPost, path: "/api/lore/" + created.ID + "/vote", body: voteRequest{Voter: "a", Value: 5}, status: http.StatusBadRequest},
		{name: "vote unknown entry", method: http.MethodPost, path: "/api/lore/nope/vote", body: voteRequest{Voter: "a", Value: 1}, status: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, tc.method, env.url+tc.path, tc.body, nil)
			assert.Equal(t, tc.status, resp.StatusCode)
			var e errorResponse
			require.NoError(t, sonic.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
		})
	}

	resp, body = do(t, http.MethodGet, env.url+"/api/lore/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got lore.Entry
	require.NoError(t, sonic.Unmarshal(body, &got))
	assert.Equal(t, created.ID, got.ID)

	for _, voter := range []string{"alice", "bob"} {
		resp, body = do(t, http.MethodPost, env.url+"/api/lore/"+created.ID+"/vote", voteRequest{Voter: voter, Value: 1}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}
	require.NoError(t, sonic.Unmarshal(body, &got))
	assert.Equal(t, 2, got.Score)
	assert.True(t, got.Canon)

	_, body = do(t, http.MethodPost, env.url+"/api/lore", lore.NewEntry{Title: "Other", Body: "Not canon."}, nil)
	var other lore.Entry
	require.NoError(t, sonic.Unmarshal(body, &other))

	_, body = do(t, http.MethodGet, env.url+"/api/lore?canon=true", nil, nil)
	var canon []lore.Entry
	require.NoError(t, sonic.Unmarshal(body, &canon))
	require.Len(t, canon, 1)
	assert.Equal(t, created.ID, canon[0].ID)

	_, body = do(t, http.MethodGet, env.url+"/api/lore?limit=1", nil, nil)
	var limited []lore.Entry
	require.NoError(t, sonic.Unmarshal(body, &limited))
	assert.Len(t, limited, 1)
}

func TestCanonizeRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	entry, err := env.store.Create(context.Background(), lore.NewEntry{Title: "T", Body: "B"})
	require.NoError(t, err)
	path := env.url + "/api/lore/" + entry.ID + "/canon"

	resp, _ := do(t, http.MethodPost, path, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, path, nil, map[string]string{adminHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := do(t, http.MethodPost, path, nil, map[string]string{adminHeader: "admin-secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got lore.Entry
	require.NoError(t, sonic.Unmarshal(body, &got))
	assert.True(t, got.Canon)

	resp, _ = do(t, http.MethodPost, env.url+"/api/lore/nope/canon", nil, map[string]string{adminHeader: "admin-secret"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	disabled := newTestEnv(t, func(d *Deps) { d.AdminToken = "" })
	resp, _ = do(t, http.MethodPost, disabled.url+"/api/lore/x/canon", nil, map[string]string{adminHeader: ""})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTips(t *testing.T) {
	verifier := &mocks.TipVerifierMock{
		VerifyFunc: func(ctx context.Context, txHash, recipient string) (*big.Int, error) {
			if strings.HasSuffix(txHash, "bad") {
				return nil, fmt.Errorf("%w: transaction reverted", tips.ErrNotVerified)
			}
			return big.NewInt(4200), nil
		},
	}
	env := newTestEnv(t, func(d *Deps) { d.Verifier = verifier })
	ctx := context.Background()
	paid, err := env.store.Create(ctx, lore.NewEntry{Title: "Paid", Body: "B", AuthorWallet: wallet})
	require.NoError(t, err)
	anon, err := env.store.Create(ctx, lore.NewEntry{Title: "Anon", Body: "B"})
	require.NoError(t, err)

	resp, body := do(t, http.MethodPost, env.url+"/api/lore/"+paid.ID+"/tips", tipRequest{TxHash: "0xgood"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var tip lore.Tip
	require.NoError(t, sonic.Unmarshal(body, &tip))
	assert.Equal(t, "4200", tip.Amount)
	assert.Equal(t, wallet, tip.Recipient)
	require.Len(t, verifier.VerifyCalls(), 1)
	assert.Equal(t, wallet, verifier.VerifyCalls()[0].Recipient)

	tests := []struct {
		name   string
		entry  string
		hash   string
		status int
	}{
		{name: "duplicate", entry: paid.ID, hash: "0xgood", status: http.StatusConflict},
		{name: "not verified", entry: paid.ID, hash: "0xbad", status: http.StatusUnprocessableEntity},
		{name: "no wallet", entry: anon.ID, hash: "0xother", status: http.StatusBadRequest},
		{name: "unknown entry", entry: "nope", hash: "0xother", status: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := do(t, http.MethodPost, env.url+"/api/lore/"+tc.entry+"/tips", tipRequest{TxHash: tc.hash}, nil)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}

	resp, body = do(t, http.MethodGet, env.url+"/api/lore/"+paid.ID+"/tips", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []lore.Tip
	require.NoError(t, sonic.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "0xgood", list[0].TxHash)

	unconfigured := newTestEnv(t, nil)
	resp, _ = do(t, http.MethodPost, unconfigured.url+"/api/lore/x/tips", tipRequest{TxHash: "0x1"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGenerateStory(t *testing.T) {
	gen := &mocks.GeneratorMock{
		GenerateStoryFunc: func(ctx context.Context, params ai.StoryParams) (string, error) {
			return "Once, beneath the tide...", nil
		},
	}
	env := newTestEnv(t, func(d *Deps) { d.Generator = gen })
	ctx := context.Background()
	canon, err := env.store.Create(ctx, lore.NewEntry{Title: "Vell", Body: "Vell sank."})
	require.NoError(t, err)
	_, err = env.store.Canonize(ctx, canon.ID)
	require.NoError(t, err)
	_, err = env.store.Create(ctx, lore.NewEntry{Title: "Rumor", Body: "Not canon."})
	require.NoError(t, err)

	resp, body := do(t, http.MethodPost, env.url+"/api/generate/story", storyRequest{Prompt: "the last bell"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"story":"Once, beneath the tide...","loreCount":1}`, string(body))
	require.Len(t, gen.GenerateStoryCalls(), 1)
	assert.Equal(t, ai.StoryParams{Prompt: "the last bell", Lore: []string{"Vell: Vell sank."}}, gen.GenerateStoryCalls()[0].Params)

	resp, _ = do(t, http.MethodPost, env.url+"/api/generate/story", storyRequest{Prompt: " "}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	unconfigured := newTestEnv(t, nil)
	resp, _ = do(t, http.MethodPost, unconfigured.url+"/api/generate/story", storyRequest{Prompt: "x"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGeneratePodcast(t *testing.T) {
	gen := &mocks.GeneratorMock{
		GenerateScriptFunc: func(ctx context.Context, params ai.ScriptParams) (podcast.Script, error) {
			return podcast.Script{
				Title: params.Title,
				Text:  "Host 1: A happy day in the archive.\nHost 2: Or a battle in disguise.",
			}, nil
		},
	}
	src := &mocks.SourceFetcherMock{
		FetchFunc: func(ctx context.Context, rawURL string) (source.Document, error) {
			if strings.Contains(rawURL, "broken") {
				return source.Document{}, errors.New("status code 404")
			}
			return source.Document{URL: rawURL, Title: "Page Title", Content: "page text", Kind: source.KindArticle}, nil
		},
	}
	env := newTestEnv(t, func(d *Deps) {
		d.Generator = gen
		d.Source = src
		d.TargetMinutes = 3
	})

	resp, body := do(t, http.MethodPost, env.url+"/api/generate/podcast", podcastRequest{URL: "https://example.com/a"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out podcastResponse
	require.NoError(t, sonic.Unmarshal(body, &out))
	assert.Equal(t, "Page Title", out.Title)
	require.Len(t, out.Segments, 2)
	assert.Equal(t, "Host 1", out.Segments[0].Speaker)
	assert.Equal(t, "A happy day in the archive.", out.Segments[0].Text)
	assert.Equal(t, "uplifting", out.Segments[0].Mood)
	assert.Equal(t, "pNInz6obpgDQGcFmaJgB", out.Segments[0].VoiceID)
	assert.Equal(t, "Host 2", out.Segments[1].Speaker)
	assert.Equal(t, "epic", out.Segments[1].Mood)
	assert.Greater(t, out.EstimatedSeconds, 0.0)

	call := gen.GenerateScriptCalls()[0].Params
	assert.Equal(t, "page text", call.Content)
	assert.Equal(t, 3, call.TargetMinutes)
	assert.Len(t, call.Hosts, 2)

	resp, body = do(t, http.MethodPost, env.url+"/api/generate/podcast", podcastRequest{Title: "Mine", Text: "some notes"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, sonic.Unmarshal(body, &out))
	assert.Equal(t, "Mine", out.Title)
	assert.Len(t, src.FetchCalls(), 1, "text input skips link fetching")

	resp, _ = do(t, http.MethodPost, env.url+"/api/generate/podcast", podcastRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, env.url+"/api/generate/podcast", podcastRequest{URL: "https://broken.example"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTTS(t *testing.T) {
	speech := &tmocks.FetcherMock{
		FetchFunc: func(ctx context.Context, req tts.Request) (*tts.Audio, error) {
			if req.VoiceID == "broken" {
				return nil, &tts.StatusError{Provider: "elevenlabs", StatusCode: 500, Body: "boom"}
			}
			return &tts.Audio{Data: []byte("mp3"), ContentType: tts.ContentTypeMPEG}, nil
		},
	}
	env := newTestEnv(t, func(d *Deps) { d.Speech = speech })

	resp, body := do(t, http.MethodPost, env.url+"/api/tts", tts.Request{Text: "A secret door.", VoiceID: "v1"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, tts.ContentTypeMPEG, resp.Header.Get("Content-Type"))
	assert.Equal(t, "mysterious", resp.Header.Get(tts.MoodHeader))
	assert.Equal(t, "mp3", string(body))

	resp, _ = do(t, http.MethodPost, env.url+"/api/tts", tts.Request{Text: "x", VoiceID: "v1", Mood: "epic"}, nil)
	assert.Equal(t, "epic", resp.Header.Get(tts.MoodHeader), "explicit mood wins")
	assert.Equal(t, "epic", speech.FetchCalls()[1].Req.Mood)

	resp, _ = do(t, http.MethodPost, env.url+"/api/tts", tts.Request{Text: "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, env.url+"/api/tts", tts.Request{Text: "x", VoiceID: "broken"}, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestBroadcastEndpoints(t *testing.T) {
	hub := broadcast.NewHub(nil)
	t.Cleanup(hub.Close)
	speech := &tmocks.FetcherMock{
		FetchFunc: func(ctx context.Context, req tts.Request) (*tts.Audio, error) {
			return &tts.Audio{Data: bytes.Repeat([]byte("x"), 1000), ContentType: tts.ContentTypeMPEG}, nil
		},
	}
	// slow pacing keeps the first segment on air during the test
	station := broadcast.NewStation(speech, nil, hub, broadcast.StreamOptions{ChunkSize: 10, Bitrate: 800})
	t.Cleanup(station.Close)
	env := newTestEnv(t, func(d *Deps) {
		d.Station = station
		d.Listeners = hub
	})

	resp, body := do(t, http.MethodPost, env.url+"/api/broadcast/start", broadcastRequest{Script: "no labels here"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodPost, env.url+"/api/broadcast/start", broadcastRequest{Script: "Host 1: Welcome.\nHost 2: Thanks."}, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	var started broadcastStarted
	require.NoError(t, sonic.Unmarshal(body, &started))
	assert.NotEmpty(t, started.Session)
	assert.Equal(t, 2, started.Segments)

	require.Eventually(t, func() bool {
		_, body := do(t, http.MethodGet, env.url+"/api/broadcast", nil, nil)
		return strings.Contains(string(body), `"status":"playing"`)
	}, 2*time.Second, 10*time.Millisecond)

	resp, _ = do(t, http.MethodPost, env.url+"/api/broadcast/resume", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, body = do(t, http.MethodPost, env.url+"/api/broadcast/pause", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"status":"paused"`)
	resp, _ = do(t, http.MethodPost, env.url+"/api/broadcast/resume", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = do(t, http.MethodPost, env.url+"/api/broadcast/stop", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"idle"`)
	resp, _ = do(t, http.MethodPost, env.url+"/api/broadcast/stop", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, env.url+"/api/broadcast/rewind", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	unconfigured := newTestEnv(t, nil)
	resp, _ = do(t, http.MethodGet, unconfigured.url+"/api/broadcast", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSwaggerDoc(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := do(t, http.MethodGet, env.url+"/swagger/doc.json", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "lorecast API")
	assert.Contains(t, string(body), "/api/broadcast/{action}")
}

func TestServer_RunShutsDown(t *testing.T) {
	store, err := lore.Open(filepath.Join(t.TempDir(), "lore.db"), lore.Options{})
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New("127.0.0.1:0", time.Second, Deps{Store: store}).Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
