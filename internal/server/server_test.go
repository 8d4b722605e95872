package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/quackcouncil/quackd/internal/config"
	"github.com/quackcouncil/quackd/internal/council"
	"github.com/quackcouncil/quackd/internal/speech"
	"github.com/quackcouncil/quackd/pkg/provider/llm"
	llmmock "github.com/quackcouncil/quackd/pkg/provider/llm/mock"
	sttmock "github.com/quackcouncil/quackd/pkg/provider/stt/mock"
	"github.com/quackcouncil/quackd/pkg/provider/tts"
	ttsmock "github.com/quackcouncil/quackd/pkg/provider/tts/mock"
)

func testCharacters() []config.CharacterConfig {
	return []config.CharacterConfig{
		{Name: "Gordon", Prompt: "angry chef", Style: "furious", VoiceID: "v1"},
		{Name: "Joy", Prompt: "optimist", Style: "cheerful", VoiceID: "v2"},
		{Name: "Blues", Prompt: "jazz musician", Style: "melancholy", VoiceID: "v3"},
	}
}

// newTestServer builds a fully wired handler over the given providers with
// audio artifacts going to a temp dir.
func newTestServer(t *testing.T, llmProvider llm.Provider, ttsProvider tts.Provider, opts ...Option) http.Handler {
	t.Helper()
	dir := t.TempDir()
	orchestrator := council.NewOrchestrator(
		council.NewRoster(testCharacters()),
		council.NewHistory(50),
		council.NewSelector(),
		council.NewGenerator(llmProvider, nil),
		speech.NewSynthesizer(ttsProvider),
		council.WithTurns(3),
		council.WithStaticDir(dir),
	)
	return New(orchestrator, ttsProvider, dir, opts...).Handler()
}

func countingLLM() *llmmock.Provider {
	var n atomic.Int64
	return &llmmock.Provider{
		CompleteFunc: func(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: fmt.Sprintf("reply-%d", n.Add(1))}, nil
		},
	}
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSpeak(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{})

	rec := postJSON(t, h, "/api/speak", map[string]any{
		"message":  "what is the best soup?",
		"userName": "Alice",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Speeches []council.SpeechResult `json:"speeches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Speeches) != 3 {
		t.Fatalf("speeches = %d, want 3", len(resp.Speeches))
	}
	for i, s := range resp.Speeches {
		if s.DuckID == 0 || s.Text == "" || s.AudioURL == "" || s.Duration < 2000 {
			t.Errorf("speeches[%d] incomplete: %+v", i, s)
		}
	}
}

func TestSpeak_TurnsOverride(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{})

	rec := postJSON(t, h, "/api/speak", map[string]any{
		"message": "hello",
		"turns":   1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Speeches []council.SpeechResult `json:"speeches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Speeches) != 1 {
		t.Errorf("speeches = %d, want 1", len(resp.Speeches))
	}
}

func TestSpeak_MissingMessage(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{})

	rec := postJSON(t, h, "/api/speak", map[string]any{"userName": "Alice"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSpeak_InvalidJSON(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{})

	req := httptest.NewRequest("POST", "/api/speak", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSpeak_CollaboratorFailureIsBadGateway(t *testing.T) {
	h := newTestServer(t, &llmmock.Provider{CompleteErr: errors.New("backend down")}, &ttsmock.Provider{})

	rec := postJSON(t, h, "/api/speak", map[string]any{"message": "hello"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] == "" {
		t.Errorf("missing error message in body")
	}
}

func TestDuckSpeak(t *testing.T) {
	h := newTestServer(t, &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "quack"},
	}, &ttsmock.Provider{})

	rec := postJSON(t, h, "/api/ducks/2/speak", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Speeches []council.SpeechResult `json:"speeches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Speeches) != 1 || resp.Speeches[0].DuckID != 2 {
		t.Errorf("speeches = %+v, want single duckId 2", resp.Speeches)
	}
}

func TestDuckSpeak_UnknownIDIsEmptySuccess(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{})

	rec := postJSON(t, h, "/api/ducks/99/speak", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Speeches []council.SpeechResult `json:"speeches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Speeches) != 0 {
		t.Errorf("speeches = %+v, want empty", resp.Speeches)
	}
}

func TestDuckSpeak_ByName(t *testing.T) {
	h := newTestServer(t, &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "quack"},
	}, &ttsmock.Provider{})

	// "Gordan" is a typo'd "Gordon" (duckId 1); the fuzzy lookup resolves it.
	for _, path := range []string{"/api/ducks/gordon/speak", "/api/ducks/Gordan/speak"} {
		rec := postJSON(t, h, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200: %s", path, rec.Code, rec.Body)
		}

		var resp struct {
			Speeches []council.SpeechResult `json:"speeches"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Speeches) != 1 || resp.Speeches[0].DuckID != 1 {
			t.Errorf("%s: speeches = %+v, want single duckId 1", path, resp.Speeches)
		}
	}
}

func TestDuckSpeak_UnknownNameIsEmptySuccess(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{})

	rec := postJSON(t, h, "/api/ducks/Zanzibar/speak", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Speeches []council.SpeechResult `json:"speeches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Speeches) != 0 {
		t.Errorf("speeches = %+v, want empty", resp.Speeches)
	}
}

func TestResetAndTranscript(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{})

	if rec := postJSON(t, h, "/api/speak", map[string]any{"message": "hello", "turns": 2}); rec.Code != http.StatusOK {
		t.Fatalf("speak status = %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/transcript", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("transcript status = %d", rec.Code)
	}
	var resp struct {
		Transcript []struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		} `json:"transcript"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Transcript) != 3 {
		t.Fatalf("transcript len = %d, want 3 (user + 2 turns)", len(resp.Transcript))
	}
	if resp.Transcript[0].Speaker != "User" {
		t.Errorf("transcript[0].Speaker = %q, want default User", resp.Transcript[0].Speaker)
	}

	if rec := postJSON(t, h, "/api/reset", nil); rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/transcript", nil))
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Transcript) != 0 {
		t.Errorf("transcript len after reset = %d, want 0", len(resp.Transcript))
	}
}

func TestVoices(t *testing.T) {
	ttsProvider := &ttsmock.Provider{
		Voices: []tts.VoiceProfile{
			{ID: "v1", Name: "Adam", Provider: "elevenlabs"},
		},
	}
	h := newTestServer(t, countingLLM(), ttsProvider)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/voices", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Voices []tts.VoiceProfile `json:"voices"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Voices) != 1 || resp.Voices[0].ID != "v1" {
		t.Errorf("voices = %+v", resp.Voices)
	}
}

func TestVoices_ProviderFailure(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{ListErr: errors.New("api down")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/voices", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func postAudio(t *testing.T, h http.Handler, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("audio", "message.wav")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte{0x52, 0x49, 0x46, 0x46})
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()

	req := httptest.NewRequest("POST", "/api/listen", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListen(t *testing.T) {
	sttProvider := &sttmock.Provider{Text: "what is the best soup"}
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{}, WithSTT(sttProvider))

	rec := postAudio(t, h, map[string]string{"userName": "Alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Transcription string                 `json:"transcription"`
		Speeches      []council.SpeechResult `json:"speeches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Transcription != "what is the best soup" {
		t.Errorf("transcription = %q", resp.Transcription)
	}
	if len(resp.Speeches) != 3 {
		t.Errorf("speeches = %d, want 3", len(resp.Speeches))
	}
}

func TestListen_EmptyTranscriptionProceeds(t *testing.T) {
	llmProvider := countingLLM()
	h := newTestServer(t, llmProvider, &ttsmock.Provider{}, WithSTT(&sttmock.Provider{Text: ""}))

	rec := postAudio(t, h, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Transcription string                 `json:"transcription"`
		Speeches      []council.SpeechResult `json:"speeches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Transcription != "" {
		t.Errorf("transcription = %q, want empty", resp.Transcription)
	}
	// The empty message still goes through the council as degenerate input.
	if len(resp.Speeches) != 3 {
		t.Errorf("speeches = %d, want 3", len(resp.Speeches))
	}
	if len(llmProvider.Calls()) == 0 {
		t.Errorf("llm not invoked on empty transcription")
	}
}

func TestListen_RecognitionFailure(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{}, WithSTT(&sttmock.Provider{Err: errors.New("whisper down")}))

	rec := postAudio(t, h, nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestListen_MissingAudioField(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{}, WithSTT(&sttmock.Provider{}))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("userName", "Alice")
	w.Close()

	req := httptest.NewRequest("POST", "/api/listen", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListen_NotConfigured(t *testing.T) {
	h := newTestServer(t, countingLLM(), &ttsmock.Provider{})

	rec := postAudio(t, h, nil)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}
