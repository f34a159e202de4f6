// Package server exposes lore, generation, speech and broadcast over HTTP.
//
// @title       lorecast API
// @version     1.0
// @description Collaborative worldbuilding with AI stories, two-host podcasts and a shared broadcast.
// @BasePath    /
package server

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/lorecast/lorecast/docs" // registers the swagger spec
	"github.com/lorecast/lorecast/internal/ai"
	"github.com/lorecast/lorecast/internal/broadcast"
	"github.com/lorecast/lorecast/internal/lore"
	"github.com/lorecast/lorecast/internal/playback"
	"github.com/lorecast/lorecast/internal/source"
	"github.com/lorecast/lorecast/internal/tips"
	"github.com/lorecast/lorecast/internal/tts"
	"github.com/lorecast/lorecast/internal/voice"
	"github.com/lorecast/lorecast/podcast"
)

//go:generate moq -out mocks/generator.go -pkg mocks -skip-ensure -fmt goimports . Generator
//go:generate moq -out mocks/source.go -pkg mocks -skip-ensure -fmt goimports . SourceFetcher
//go:generate moq -out mocks/verifier.go -pkg mocks -skip-ensure -fmt goimports . TipVerifier
//go:generate swag init --dir ../.. --generalInfo internal/server/server.go --output ../../docs --outputTypes go --parseInternal

const (
	maxBodyBytes = 1 << 20
	adminHeader  = "X-Admin-Token"
)

// LoreStore persists lore entries, votes and tips
type LoreStore interface {
	Create(ctx context.Context, in lore.NewEntry) (lore.Entry, error)
	Get(ctx context.Context, id string) (lore.Entry, error)
	List(ctx context.Context, filter lore.ListFilter) ([]lore.Entry, error)
	Vote(ctx context.Context, entryID, voter string, value int) (lore.Entry, error)
	Canonize(ctx context.Context, id string) (lore.Entry, error)
	RecordTip(ctx context.Context, tip lore.Tip) (lore.Tip, error)
	Tips(ctx context.Context, entryID string) ([]lore.Tip, error)
	Ping(ctx context.Context) error
}

// Generator writes stories and podcast scripts
type Generator interface {
	GenerateScript(ctx context.Context, params ai.ScriptParams) (podcast.Script, error)
	GenerateStory(ctx context.Context, params ai.StoryParams) (string, error)
}

// SourceFetcher extracts text from a link
type SourceFetcher interface {
	Fetch(ctx context.Context, rawURL string) (source.Document, error)
}

// TipVerifier checks an on-chain tip
type TipVerifier interface {
	Verify(ctx context.Context, txHash, recipient string) (*big.Int, error)
}

// Station is the shared broadcast session
type Station interface {
	Start(ctx context.Context, segments []podcast.Segment) (string, error)
	Pause() error
	Resume() error
	Stop() error
	Status() broadcast.StatusFrame
}

// Deps are the collaborators the handlers use. Optional ones may be nil, their
// endpoints then answer 503.
type Deps struct {
	Store     LoreStore
	Generator Generator
	Source    SourceFetcher
	Verifier  TipVerifier
	Speech    tts.Fetcher
	Selector  *voice.Selector
	Station   Station
	Listeners http.Handler

	AdminToken    string
	StoryContext  int
	TargetMinutes int
	Hosts         []podcast.Host
}

// Server is the lorecast HTTP API
type Server struct {
	deps            Deps
	addr            string
	shutdownTimeout time.Duration
	baseCtx         context.Context
	server          *http.Server
}

// New creates a server listening on addr once Run is called
func New(addr string, shutdownTimeout time.Duration, deps Deps) *Server {
	if deps.Selector == nil {
		deps.Selector = voice.NewSelector(nil)
	}
	if len(deps.Hosts) == 0 {
		deps.Hosts = podcast.DefaultHosts()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Server{deps: deps, addr: addr, shutdownTimeout: shutdownTimeout, baseCtx: context.Background()}
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/lore", s.handleListLore)
	mux.HandleFunc("POST /api/lore", s.handleCreateLore)
	mux.HandleFunc("GET /api/lore/{id}", s.handleGetLore)
	mux.HandleFunc("POST /api/lore/{id}/vote", s.handleVote)
	mux.HandleFunc("POST /api/lore/{id}/canon", s.requireAdmin(s.handleCanonize))
	mux.HandleFunc("GET /api/lore/{id}/tips", s.handleListTips)
	mux.HandleFunc("POST /api/lore/{id}/tips", s.handleRecordTip)

	mux.HandleFunc("POST /api/generate/story", s.handleGenerateStory)
	mux.HandleFunc("POST /api/generate/podcast", s.handleGeneratePodcast)
	mux.HandleFunc("POST /api/tts", s.handleTTS)

	mux.HandleFunc("GET /api/broadcast", s.handleBroadcastStatus)
	mux.HandleFunc("POST /api/broadcast/{action}", s.handleBroadcastControl)
	if s.deps.Listeners != nil {
		mux.Handle("GET /api/broadcast/ws", s.deps.Listeners)
	}

	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	slog.Info("http server listening", "addr", s.addr)

	go func() {
		<-ctx.Done()
		slog.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleHealth reports liveness.
//
// @Summary  Liveness probe
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the database answers.
//
// @Summary  Readiness probe
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  errorResponse
// @Router   /readyz [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.AdminToken == "" {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin operations are disabled"})
			return
		}
		got := r.Header.Get(adminHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.deps.AdminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid admin token"})
			return
		}
		next(w, r)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

var (
	// errUnavailable marks an endpoint whose backend is not configured
	errUnavailable = errors.New("not configured")
	errUpstream    = errors.New("upstream request failed")
)

// writeError maps domain errors onto status codes
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var statusErr *tts.StatusError
	switch {
	case errors.Is(err, lore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lore.ErrInvalid), errors.Is(err, playback.ErrNoSegments):
		status = http.StatusBadRequest
	case errors.Is(err, lore.ErrDuplicateTip), errors.Is(err, playback.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, tips.ErrNotVerified):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, errUpstream), errors.As(err, &statusErr):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// decodeJSON reads a bounded request body into v
func decodeJSON(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: failed to read body: %v", lore.ErrInvalid, err)
	}
	if len(data) > maxBodyBytes {
		return fmt.Errorf("%w: request body too large", lore.ErrInvalid)
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", lore.ErrInvalid, err)
	}
	return nil
}

// statusRecorder captures the response code for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start))
	})
}
