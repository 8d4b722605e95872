// Package config provides the configuration schema, loader, and provider
// registry for the quackd server.
package config

// LogLevel controls log verbosity for the quackd server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for quackd.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Providers  ProvidersConfig   `yaml:"providers"`
	Council    CouncilConfig     `yaml:"council"`
	Characters []CharacterConfig `yaml:"characters"`
}

// ServerConfig holds network, logging, and static hosting settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// StaticDir is the directory where generated audio artifacts are stored
	// and served from under /static/. Defaults to "static".
	StaticDir string `yaml:"static_dir"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`
	STT ProviderEntry `yaml:"stt"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "gemini", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gemini-2.0-flash").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// CouncilConfig holds the turn-taking and synthesis tunables.
type CouncilConfig struct {
	// Turns is the default number of character turns generated per user
	// message. Requests may override it. Defaults to 3.
	Turns int `yaml:"turns"`

	// HistoryLimit caps the session transcript length; once exceeded, only the
	// most recent HistoryLimit lines are retained. Defaults to 50.
	HistoryLimit int `yaml:"history_limit"`

	// MaxParallelSynthesis bounds the number of concurrent TTS jobs for
	// multi-turn batches. Defaults to 3. Single-turn batches use at most 2.
	MaxParallelSynthesis int `yaml:"max_parallel_synthesis"`

	// SynthesisTimeoutSeconds is the per-job TTS timeout. A job that exceeds
	// it is dropped from the batch like any other failed job. Defaults to 30.
	SynthesisTimeoutSeconds int `yaml:"synthesis_timeout_seconds"`
}

// CharacterConfig describes a single council character's persona and voice.
type CharacterConfig struct {
	// Name is the character's display name (e.g., "Gordon"). Must be unique.
	Name string `yaml:"name"`

	// Prompt is the free-text persona description injected into the LLM
	// system prompt.
	Prompt string `yaml:"prompt"`

	// Style is the speaking-style tag (e.g., "grumpy", "cheerful").
	Style string `yaml:"style"`

	// VoiceID is the TTS provider-specific voice identifier.
	VoiceID string `yaml:"voice_id"`
}
