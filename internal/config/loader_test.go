package config

import (
	"strings"
	"testing"
)

const validConfig = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  llm:
    name: gemini
    api_key: key
    model: gemini-2.0-flash
  tts:
    name: elevenlabs
    api_key: key
characters:
  - name: Gordon
    prompt: angry chef
    style: furious
    voice_id: v1
  - name: Joy
    prompt: optimist
    style: cheerful
    voice_id: v2
`

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validConfig))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Providers.LLM.Name != "gemini" || cfg.Providers.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("llm entry = %+v", cfg.Providers.LLM)
	}
	if len(cfg.Characters) != 2 {
		t.Fatalf("characters = %d, want 2", len(cfg.Characters))
	}
	if cfg.Characters[0].Name != "Gordon" || cfg.Characters[0].VoiceID != "v1" {
		t.Errorf("characters[0] = %+v", cfg.Characters[0])
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
providers:
  llm:
    name: gemini
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != DefaultListenAddr {
		t.Errorf("listen_addr = %q, want %q", cfg.Server.ListenAddr, DefaultListenAddr)
	}
	if cfg.Server.StaticDir != DefaultStaticDir {
		t.Errorf("static_dir = %q, want %q", cfg.Server.StaticDir, DefaultStaticDir)
	}
	if cfg.Council.Turns != DefaultTurns {
		t.Errorf("turns = %d, want %d", cfg.Council.Turns, DefaultTurns)
	}
	if cfg.Council.HistoryLimit != DefaultHistoryLimit {
		t.Errorf("history_limit = %d, want %d", cfg.Council.HistoryLimit, DefaultHistoryLimit)
	}
	if cfg.Council.MaxParallelSynthesis != DefaultMaxParallelSynthesis {
		t.Errorf("max_parallel_synthesis = %d, want %d", cfg.Council.MaxParallelSynthesis, DefaultMaxParallelSynthesis)
	}
	if cfg.Council.SynthesisTimeoutSeconds != DefaultSynthesisTimeoutSeconds {
		t.Errorf("synthesis_timeout_seconds = %d, want %d", cfg.Council.SynthesisTimeoutSeconds, DefaultSynthesisTimeoutSeconds)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(`
server:
  listen_addr: ":8080"
  bogus_field: yes
`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "invalid log level",
			yaml: `
server:
  log_level: loud
`,
			wantErr: "log_level",
		},
		{
			name: "negative turns",
			yaml: `
council:
  turns: -1
`,
			wantErr: "turns",
		},
		{
			name: "single character",
			yaml: `
characters:
  - name: Gordon
    prompt: chef
    voice_id: v1
`,
			wantErr: "at least 2",
		},
		{
			name: "duplicate character names",
			yaml: `
characters:
  - name: Gordon
    prompt: chef
    voice_id: v1
  - name: Gordon
    prompt: chef again
    voice_id: v2
`,
			wantErr: "duplicate",
		},
		{
			name: "missing prompt",
			yaml: `
characters:
  - name: Gordon
    voice_id: v1
  - name: Joy
    prompt: optimist
    voice_id: v2
`,
			wantErr: "prompt is required",
		},
		{
			name: "missing voice id",
			yaml: `
characters:
  - name: Gordon
    prompt: chef
  - name: Joy
    prompt: optimist
    voice_id: v2
`,
			wantErr: "voice_id is required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_JoinsAllFailures(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(`
server:
  log_level: loud
council:
  turns: -1
  history_limit: -5
`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"log_level", "turns", "history_limit"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined err missing %q: %v", want, err)
		}
	}
}
