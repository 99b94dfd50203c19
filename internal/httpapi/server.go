// Package httpapi exposes the duplex websocket endpoint and the single-shot
// REST surface over the same turn pipeline.
package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Pranav-shellkode/voice-agent-learning/internal/archive"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/audio"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/config"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/history"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/knowledge"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/observability"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/pipeline"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/session"
)

// Orchestrator is the slice of the turn pipeline the HTTP layer needs.
type Orchestrator interface {
	RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error
	Chat(ctx context.Context, userText string, prior []history.Entry) (pipeline.ChatResult, error)
	TranscribeOnce(ctx context.Context, audio []byte) (string, error)
	SynthesizeOnce(ctx context.Context, text string) ([]byte, string, error)
}

type Server struct {
	cfg           config.Config
	sessions      *session.Manager
	orchestrator  Orchestrator
	knowledgeBase *knowledge.Base
	archiveStore  archive.Store
	metrics       *observability.Metrics
	upgrader      websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, orchestrator Orchestrator, kb *knowledge.Base, store archive.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:           cfg,
		sessions:      sessions,
		orchestrator:  orchestrator,
		knowledgeBase: kb,
		archiveStore:  store,
		metrics:       metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/chat", s.handleChat)
	r.Post("/api/tts", s.handleTTS)
	r.Post("/api/transcribe", s.handleTranscribe)
	r.Get("/api/knowledge-base", s.handleKnowledgeBase)
	r.Post("/api/knowledge-base/reload", s.handleKnowledgeBaseReload)
	r.Get("/api/sessions/{id}/transcript", s.handleSessionTranscript)
	r.Get("/api/perf/latency", s.handlePerfLatency)

	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service":   "voice-agent",
		"websocket": "/ws",
		"health":    "/healthz",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":                "ready",
		"knowledge_base_loaded": s.knowledgeBase.Loaded(),
	})
}

type chatRequest struct {
	Message             string          `json:"message"`
	ConversationHistory []history.Entry `json:"conversation_history"`
}

type chatResponse struct {
	Response            string          `json:"response"`
	Audio               string          `json:"audio,omitempty"`
	AudioFormat         string          `json:"audio_format,omitempty"`
	ConversationHistory []history.Entry `json:"conversation_history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	res, err := s.orchestrator.Chat(r.Context(), req.Message, req.ConversationHistory)
	if err != nil {
		respondError(w, http.StatusBadGateway, "chat_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		Response:            res.ReplyText,
		Audio:               base64.StdEncoding.EncodeToString(res.Audio),
		AudioFormat:         res.AudioFormat,
		ConversationHistory: res.History,
	})
}

type ttsRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	audioBytes, format, err := s.orchestrator.SynthesizeOnce(r.Context(), req.Text)
	if err != nil {
		respondError(w, http.StatusBadGateway, "tts_failed", err.Error())
		return
	}

	// Raw PCM is wrapped as WAV so browsers can play the response directly.
	contentType := "audio/mpeg"
	if format == "pcm16" {
		audioBytes = audio.WrapPCM16(audioBytes, 0)
		contentType = "audio/wav"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audioBytes)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audioBytes)
}

type transcribeRequest struct {
	Audio string `json:"audio"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "audio must be base64 encoded")
		return
	}
	if len(raw) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "audio is required")
		return
	}

	text, err := s.orchestrator.TranscribeOnce(r.Context(), raw)
	if err != nil {
		respondError(w, http.StatusBadGateway, "transcription_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleKnowledgeBase(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"loaded":  s.knowledgeBase.Loaded(),
		"content": s.knowledgeBase.Text(),
	})
}

func (s *Server) handleKnowledgeBaseReload(w http.ResponseWriter, _ *http.Request) {
	if err := s.knowledgeBase.Reload(); err != nil {
		respondError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"loaded": s.knowledgeBase.Loaded(),
	})
}

func (s *Server) handleSessionTranscript(w http.ResponseWriter, r *http.Request) {
	if s.archiveStore == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "turn archive not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := s.archiveStore.Transcript(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "transcript_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"turns":      turns,
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.TurnStagePercentiles())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
