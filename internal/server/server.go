// Package server exposes the council over HTTP.
//
// The API surface:
//
//   - POST /api/speak                 — text message in, council speeches out
//   - POST /api/listen                — audio message in (multipart), speeches out
//   - POST /api/ducks/{duckID}/speak  — one specific character speaks next
//   - POST /api/reset                 — clear the transcript
//   - GET  /api/transcript            — current transcript
//   - GET  /api/voices                — voices available from the TTS provider
//   - GET  /healthz                   — liveness probe
//   - GET  /metrics                   — Prometheus metrics
//   - GET  /static/                   — synthesised audio artifacts
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quackcouncil/quackd/internal/council"
	"github.com/quackcouncil/quackd/internal/observe"
	"github.com/quackcouncil/quackd/pkg/provider/stt"
	"github.com/quackcouncil/quackd/pkg/provider/tts"
)

// maxAudioUploadBytes caps the size of an uploaded audio message.
const maxAudioUploadBytes = 25 << 20

// Server routes HTTP requests to the council orchestrator.
type Server struct {
	orchestrator *council.Orchestrator
	stt          stt.Provider
	tts          tts.Provider
	staticDir    string
	metrics      *observe.Metrics
}

// Option is a functional option for [New].
type Option func(*Server)

// WithSTT enables the /api/listen endpoint with the given speech-to-text
// provider. Without it the endpoint returns 501.
func WithSTT(p stt.Provider) Option {
	return func(s *Server) { s.stt = p }
}

// WithMetrics replaces the metrics instance (used by tests).
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server over the given orchestrator and TTS provider. The TTS
// provider is only used for voice listing; synthesis goes through the
// orchestrator.
func New(orchestrator *council.Orchestrator, ttsProvider tts.Provider, staticDir string, opts ...Option) *Server {
	s := &Server{
		orchestrator: orchestrator,
		tts:          ttsProvider,
		staticDir:    staticDir,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the fully routed HTTP handler, wrapped in the request
// logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/speak", s.handleSpeak)
	mux.HandleFunc("POST /api/listen", s.handleListen)
	mux.HandleFunc("POST /api/ducks/{duckID}/speak", s.handleDuckSpeak)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/transcript", s.handleTranscript)
	mux.HandleFunc("GET /api/voices", s.handleVoices)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	return observe.Middleware(s.metrics)(mux)
}

// speakRequest is the body of POST /api/speak.
type speakRequest struct {
	Message  string `json:"message"`
	UserName string `json:"userName"`
	Mode     string `json:"mode"`
	Turns    int    `json:"turns"`
}

// speechesResponse carries the synthesised council utterances.
type speechesResponse struct {
	Speeches []council.SpeechResult `json:"speeches"`
}

// listenResponse is speechesResponse plus what the recognizer heard.
type listenResponse struct {
	Transcription string                 `json:"transcription"`
	Speeches      []council.SpeechResult `json:"speeches"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	results, err := s.orchestrator.RunDebate(r.Context(), req.Message, req.UserName, parseMode(req.Mode), req.Turns)
	if err != nil {
		s.writeCouncilError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, speechesResponse{Speeches: results})
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	if s.stt == nil {
		writeError(w, http.StatusNotImplemented, "speech recognition is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	text, err := s.stt.Transcribe(r.Context(), data)
	if err != nil {
		s.metrics.RecordProviderError(r.Context(), "stt")
		s.writeCouncilError(w, &council.CollaboratorError{Stage: "stt", Err: err})
		return
	}
	// Nothing understood is not an error: the empty transcription proceeds
	// as a degenerate message and the council reacts to the silence.

	turns, _ := strconv.Atoi(r.FormValue("turns"))
	results, err := s.orchestrator.RunDebate(r.Context(), text, r.FormValue("userName"), parseMode(r.FormValue("mode")), turns)
	if err != nil {
		s.writeCouncilError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listenResponse{Transcription: text, Speeches: results})
}

func (s *Server) handleDuckSpeak(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("duckID")

	var (
		results []council.SpeechResult
		err     error
	)
	if duckID, convErr := strconv.Atoi(raw); convErr == nil {
		results, err = s.orchestrator.RunSingleTurn(r.Context(), duckID)
	} else {
		// Non-numeric addressing resolves by character name, fuzzily, so
		// clients can forward transcribed names verbatim.
		results, err = s.orchestrator.RunSingleTurnByName(r.Context(), raw)
	}
	if err != nil {
		s.writeCouncilError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, speechesResponse{Speeches: results})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.orchestrator.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// transcriptLine is one transcript entry as served over the API.
type transcriptLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	lines := s.orchestrator.Transcript()
	out := make([]transcriptLine, len(lines))
	for i, l := range lines {
		out[i] = transcriptLine{Speaker: l.Speaker, Text: l.Text}
	}
	writeJSON(w, http.StatusOK, map[string][]transcriptLine{"transcript": out})
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.tts.ListVoices(r.Context())
	if err != nil {
		s.metrics.RecordProviderError(r.Context(), "tts")
		s.writeCouncilError(w, &council.CollaboratorError{Stage: "tts", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]tts.VoiceProfile{"voices": voices})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeCouncilError maps council errors onto HTTP statuses: collaborator
// failures are upstream faults (502), everything else is an internal error.
func (s *Server) writeCouncilError(w http.ResponseWriter, err error) {
	var collab *council.CollaboratorError
	if errors.As(err, &collab) {
		slog.Error("collaborator failure", "stage", collab.Stage, "err", collab.Err)
		writeError(w, http.StatusBadGateway, collab.Error())
		return
	}
	slog.Error("council invocation failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseMode maps the wire mode onto a council Mode, defaulting to chat.
func parseMode(mode string) council.Mode {
	if council.Mode(mode) == council.ModeTopic {
		return council.ModeTopic
	}
	return council.ModeChat
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
