package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"gemini", "openai", "openai-direct", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts": {"elevenlabs"},
	"stt": {"whisper"},
}

// Defaults applied by [Validate] when fields are zero.
const (
	DefaultListenAddr              = ":8080"
	DefaultStaticDir               = "static"
	DefaultTurns                   = 3
	DefaultHistoryLimit            = 50
	DefaultMaxParallelSynthesis    = 3
	DefaultSynthesisTimeoutSeconds = 30
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and fills in
// defaults for unset fields. It returns a joined error listing all validation
// failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = DefaultStaticDir
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)

	if cfg.Providers.LLM.Name == "" && len(cfg.Characters) > 0 {
		slog.Warn("no LLM provider configured; characters will not be able to generate replies")
	}
	if cfg.Providers.TTS.Name == "" && len(cfg.Characters) > 0 {
		slog.Warn("no TTS provider configured; replies will have no audio")
	}

	// Council tunables
	if cfg.Council.Turns < 0 {
		errs = append(errs, fmt.Errorf("council.turns %d must not be negative", cfg.Council.Turns))
	} else if cfg.Council.Turns == 0 {
		cfg.Council.Turns = DefaultTurns
	}
	if cfg.Council.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("council.history_limit %d must not be negative", cfg.Council.HistoryLimit))
	} else if cfg.Council.HistoryLimit == 0 {
		cfg.Council.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Council.MaxParallelSynthesis < 0 {
		errs = append(errs, fmt.Errorf("council.max_parallel_synthesis %d must not be negative", cfg.Council.MaxParallelSynthesis))
	} else if cfg.Council.MaxParallelSynthesis == 0 {
		cfg.Council.MaxParallelSynthesis = DefaultMaxParallelSynthesis
	}
	if cfg.Council.SynthesisTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("council.synthesis_timeout_seconds %d must not be negative", cfg.Council.SynthesisTimeoutSeconds))
	} else if cfg.Council.SynthesisTimeoutSeconds == 0 {
		cfg.Council.SynthesisTimeoutSeconds = DefaultSynthesisTimeoutSeconds
	}

	// Characters
	if len(cfg.Characters) == 1 {
		errs = append(errs, errors.New("characters: at least 2 are required for turn-taking (no-immediate-repeat needs an alternative speaker)"))
	}
	namesSeen := make(map[string]int, len(cfg.Characters))
	for i, ch := range cfg.Characters {
		prefix := fmt.Sprintf("characters[%d]", i)
		if ch.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[ch.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of characters[%d]", prefix, ch.Name, prev))
			}
			namesSeen[ch.Name] = i
		}
		if ch.Prompt == "" {
			errs = append(errs, fmt.Errorf("%s.prompt is required", prefix))
		}
		if ch.VoiceID == "" {
			errs = append(errs, fmt.Errorf("%s.voice_id is required", prefix))
		}
		if ch.Style == "" {
			slog.Warn("character has no speaking style; replies will use a neutral tone", "character", ch.Name)
		}
	}

	return errors.Join(errs...)
}

// validateProviderName warns when name is set but not in the known list for kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	if !slices.Contains(ValidProviderNames[kind], name) {
		slog.Warn("unknown provider name", "kind", kind, "name", name)
	}
}
