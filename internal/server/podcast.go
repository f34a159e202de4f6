package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lorecast/lorecast/internal/ai"
	"github.com/lorecast/lorecast/internal/content"
	"github.com/lorecast/lorecast/internal/lore"
	"github.com/lorecast/lorecast/internal/playback"
	"github.com/lorecast/lorecast/internal/tts"
	"github.com/lorecast/lorecast/internal/voice"
	"github.com/lorecast/lorecast/podcast"
)

type storyRequest struct {
	Prompt string `json:"prompt"`
}

type storyResponse struct {
	Story     string `json:"story"`
	LoreCount int    `json:"loreCount"`
}

type podcastRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// SegmentView is a parsed segment with the voice and mood it will be read with
type SegmentView struct {
	Index            int     `json:"index"`
	Speaker          string  `json:"speaker"`
	Text             string  `json:"text"`
	VoiceID          string  `json:"voiceId"`
	Mood             string  `json:"mood"`
	EstimatedSeconds float64 `json:"estimatedSeconds"`
}

type podcastResponse struct {
	Title            string        `json:"title"`
	Script           string        `json:"script"`
	Segments         []SegmentView `json:"segments"`
	EstimatedSeconds float64       `json:"estimatedSeconds"`
}

type broadcastRequest struct {
	Script string `json:"script"`
}

type broadcastStarted struct {
	Session  string `json:"session"`
	Segments int    `json:"segments"`
}

// handleGenerateStory writes a story grounded on the canon.
//
// @Summary  Generate a story from canon lore
// @Tags     generate
// @Accept   json
// @Produce  json
// @Param    request  body      storyRequest  true  "prompt"
// @Success  200      {object}  storyResponse
// @Failure  400      {object}  errorResponse
// @Failure  503      {object}  errorResponse
// @Router   /api/generate/story [post]
func (s *Server) handleGenerateStory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Generator == nil {
		writeError(w, r, fmt.Errorf("ai generation %w", errUnavailable))
		return
	}
	var req storyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, r, fmt.Errorf("%w: prompt is required", lore.ErrInvalid))
		return
	}

	canon, err := s.deps.Store.List(r.Context(), lore.ListFilter{CanonOnly: true, Limit: s.deps.StoryContext})
	if err != nil {
		writeError(w, r, err)
		return
	}
	facts := make([]string, 0, len(canon))
	for _, e := range canon {
		facts = append(facts, e.Title+": "+e.Body)
	}

	story, err := s.deps.Generator.GenerateStory(r.Context(), ai.StoryParams{Prompt: req.Prompt, Lore: facts})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, storyResponse{Story: story, LoreCount: len(facts)})
}

// handleGeneratePodcast writes a two-host script from text or a link.
//
// @Summary  Generate a podcast script
// @Tags     generate
// @Accept   json
// @Produce  json
// @Param    request  body      podcastRequest  true  "text or url"
// @Success  200      {object}  podcastResponse
// @Failure  400      {object}  errorResponse
// @Failure  503      {object}  errorResponse
// @Router   /api/generate/podcast [post]
func (s *Server) handleGeneratePodcast(w http.ResponseWriter, r *http.Request) {
	if s.deps.Generator == nil {
		writeError(w, r, fmt.Errorf("ai generation %w", errUnavailable))
		return
	}
	var req podcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	title, text := strings.TrimSpace(req.Title), strings.TrimSpace(req.Text)
	switch {
	case req.URL != "":
		if s.deps.Source == nil {
			writeError(w, r, fmt.Errorf("link fetching %w", errUnavailable))
			return
		}
		doc, err := s.deps.Source.Fetch(r.Context(), req.URL)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", lore.ErrInvalid, err))
			return
		}
		text = doc.Content
		if title == "" {
			title = doc.Title
		}
	case text == "":
		writeError(w, r, fmt.Errorf("%w: text or url is required", lore.ErrInvalid))
		return
	}

	script, err := s.deps.Generator.GenerateScript(r.Context(), ai.ScriptParams{
		Title:         title,
		Content:       text,
		Hosts:         s.deps.Hosts,
		TargetMinutes: s.deps.TargetMinutes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	segments := content.ParseScript(script.Text)
	writeJSON(w, http.StatusOK, podcastResponse{
		Title:            script.Title,
		Script:           script.Text,
		Segments:         annotate(s.deps.Selector, segments),
		EstimatedSeconds: content.EstimateTotalDuration(segments),
	})
}

// handleTTS synthesizes one segment.
//
// @Summary  Synthesize speech
// @Tags     tts
// @Accept   json
// @Produce  audio/mpeg
// @Param    request  body      tts.Request  true  "text, voice and mood, mood defaults to the text's mood"
// @Success  200      {file}    binary
// @Header   200      {string}  X-Lore-Mood  "mood used for synthesis"
// @Failure  400      {object}  errorResponse
// @Failure  502      {object}  errorResponse
// @Router   /api/tts [post]
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Speech == nil {
		writeError(w, r, fmt.Errorf("speech synthesis %w", errUnavailable))
		return
	}
	var req tts.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.VoiceID) == "" {
		writeError(w, r, fmt.Errorf("%w: text and voiceId are required", lore.ErrInvalid))
		return
	}
	if req.Mood == "" {
		req.Mood = voice.Mood(req.Text)
	}

	audio, err := s.deps.Speech.Fetch(r.Context(), req)
	if err != nil {
		slog.Warn("speech fetch failed", "voice", req.VoiceID, "error", err)
		writeError(w, r, fmt.Errorf("%w: %v", errUpstream, err))
		return
	}

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set(tts.MoodHeader, req.Mood)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
}

// handleBroadcastStatus reports the shared session.
//
// @Summary  Broadcast status
// @Tags     broadcast
// @Produce  json
// @Success  200  {object}  broadcast.StatusFrame
// @Router   /api/broadcast [get]
func (s *Server) handleBroadcastStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Station == nil {
		writeError(w, r, fmt.Errorf("broadcast %w", errUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Station.Status())
}

// handleBroadcastControl starts, pauses, resumes or stops the shared session.
//
// @Summary  Control the broadcast
// @Tags     broadcast
// @Accept   json
// @Produce  json
// @Param    action   path      string            true   "start, pause, resume or stop"
// @Param    request  body      broadcastRequest  false  "script, for start only"
// @Success  200      {object}  broadcast.StatusFrame
// @Success  202      {object}  broadcastStarted
// @Failure  400      {object}  errorResponse
// @Failure  409      {object}  errorResponse
// @Router   /api/broadcast/{action} [post]
func (s *Server) handleBroadcastControl(w http.ResponseWriter, r *http.Request) {
	if s.deps.Station == nil {
		writeError(w, r, fmt.Errorf("broadcast %w", errUnavailable))
		return
	}

	var err error
	switch action := r.PathValue("action"); action {
	case "start":
		s.startBroadcast(w, r)
		return
	case "pause":
		err = s.deps.Station.Pause()
	case "resume":
		err = s.deps.Station.Resume()
	case "stop":
		err = s.deps.Station.Stop()
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown broadcast action " + action})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Station.Status())
}

func (s *Server) startBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	segments := content.ParseScript(req.Script)
	if len(segments) == 0 {
		writeError(w, r, fmt.Errorf("script has no host lines: %w", playback.ErrNoSegments))
		return
	}

	// the session outlives this request
	session, err := s.deps.Station.Start(s.baseCtx, segments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, broadcastStarted{Session: session, Segments: len(segments)})
}

// annotate attaches the voice and mood each segment will be read with
func annotate(selector *voice.Selector, segments []podcast.Segment) []SegmentView {
	views := make([]SegmentView, 0, len(segments))
	for i, seg := range segments {
		sel := selector.Select(seg)
		views = append(views, SegmentView{
			Index:            i,
			Speaker:          seg.Speaker.String(),
			Text:             seg.Text,
			VoiceID:          sel.VoiceID,
			Mood:             sel.Mood,
			EstimatedSeconds: content.EstimateAudioDuration(seg.Text),
		})
	}
	return views
}
