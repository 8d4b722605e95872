package whisper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseInferenceResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", `{"text": "hello world"}`, "hello world"},
		{"surrounding whitespace", `{"text": "  hello  "}`, "hello"},
		{"blank audio marker", `{"text": "[BLANK_AUDIO]"}`, ""},
		{"music marker", `{"text": " [MUSIC] "}`, ""},
		{"empty", `{"text": ""}`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseInferenceResponse([]byte(tc.input))
			if err != nil {
				t.Fatalf("parseInferenceResponse: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseInferenceResponse_InvalidJSON(t *testing.T) {
	if _, err := parseInferenceResponse([]byte("{nope")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestTranscribe(t *testing.T) {
	var gotAudio []byte
	var gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q, want /inference", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		gotAudio, _ = io.ReadAll(f)
		gotLanguage = r.FormValue("language")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "quack quack"}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL, WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text, err := p.Transcribe(context.Background(), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "quack quack" {
		t.Errorf("text = %q, want quack quack", text)
	}
	if string(gotAudio) != string([]byte{1, 2, 3}) {
		t.Errorf("uploaded audio = % x", gotAudio)
	}
	if gotLanguage != "en" {
		t.Errorf("language field = %q, want en", gotLanguage)
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Transcribe(context.Background(), []byte{1}); err == nil {
		t.Error("expected error for 500 response")
	}
}
