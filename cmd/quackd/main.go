// Command quackd is the Quack Council server: a panel of configured
// characters that debate incoming messages and answer with synthesised
// speech.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/quackcouncil/quackd/internal/config"
	"github.com/quackcouncil/quackd/internal/council"
	"github.com/quackcouncil/quackd/internal/observe"
	"github.com/quackcouncil/quackd/internal/server"
	"github.com/quackcouncil/quackd/internal/speech"
	"github.com/quackcouncil/quackd/pkg/provider/llm"
	"github.com/quackcouncil/quackd/pkg/provider/llm/anyllm"
	oaillm "github.com/quackcouncil/quackd/pkg/provider/llm/openai"
	"github.com/quackcouncil/quackd/pkg/provider/stt"
	"github.com/quackcouncil/quackd/pkg/provider/stt/whisper"
	"github.com/quackcouncil/quackd/pkg/provider/tts"
	"github.com/quackcouncil/quackd/pkg/provider/tts/elevenlabs"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "quackd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "quackd: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("quackd starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"characters", len(cfg.Characters),
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "quackd",
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	llmProvider, ttsProvider, sttProvider, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Council ───────────────────────────────────────────────────────────────
	roster := council.NewRoster(cfg.Characters)

	orchestrator := council.NewOrchestrator(
		roster,
		council.NewHistory(cfg.Council.HistoryLimit),
		council.NewSelector(),
		council.NewGenerator(llmProvider, nil),
		speech.NewSynthesizer(ttsProvider,
			speech.WithJobTimeout(time.Duration(cfg.Council.SynthesisTimeoutSeconds)*time.Second),
		),
		council.WithTurns(cfg.Council.Turns),
		council.WithFanout(cfg.Council.MaxParallelSynthesis),
		council.WithStaticDir(cfg.Server.StaticDir),
	)

	validateVoices(ctx, ttsProvider, roster)

	// ── HTTP server ───────────────────────────────────────────────────────────
	var serverOpts []server.Option
	if sttProvider != nil {
		serverOpts = append(serverOpts, server.WithSTT(sttProvider))
	}
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.New(orchestrator, ttsProvider, cfg.Server.StaticDir, serverOpts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupSummary(cfg)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// All hosted backends share the same pattern: optional APIKey + BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// openai-direct talks to the OpenAI API through its official SDK instead
	// of the any-llm bridge. Useful for OpenAI-compatible gateways.
	reg.RegisterLLM("openai-direct", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})
}

// buildProviders instantiates the providers named in cfg. LLM and TTS are
// required; STT is optional and its absence only disables /api/listen.
func buildProviders(cfg *config.Config, reg *config.Registry) (llm.Provider, tts.Provider, stt.Provider, error) {
	llmProvider, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	ttsProvider, err := reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)

	var sttProvider stt.Provider
	if name := cfg.Providers.STT.Name; name != "" {
		sttProvider, err = reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		slog.Info("provider created", "kind", "stt", "name", name)
	} else {
		slog.Warn("no stt provider configured — /api/listen disabled")
	}

	return llmProvider, ttsProvider, sttProvider, nil
}

// validateVoices checks each character's voice id against the TTS provider's
// catalogue. Failures only warn; the provider remains authoritative at
// synthesis time.
func validateVoices(ctx context.Context, p tts.Provider, roster *council.Roster) {
	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	voices, err := p.ListVoices(listCtx)
	if err != nil {
		slog.Warn("could not list voices for validation", "err", err)
		return
	}
	known := make(map[string]bool, len(voices))
	for _, v := range voices {
		known[v.ID] = true
	}
	for _, ch := range roster.Characters() {
		if !known[ch.VoiceID] {
			slog.Warn("character voice not found in provider catalogue",
				"character", ch.Name, "voice_id", ch.VoiceID)
		}
	}
}

// optString reads a string value from a provider options map.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	if v, ok := opts[key].(string); ok {
		return v
	}
	return ""
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        quackd — startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	fmt.Printf("║  Characters      : %-19d ║\n", len(cfg.Characters))
	fmt.Printf("║  Turns           : %-19d ║\n", cfg.Council.Turns)
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	if name == "" {
		fmt.Printf("║  %-15s : %-19s ║\n", kind, "(disabled)")
		return
	}
	label := name
	if model != "" {
		label = fmt.Sprintf("%s (%s)", name, model)
	}
	if len(label) > 19 {
		label = label[:19]
	}
	fmt.Printf("║  %-15s : %-19s ║\n", kind, label)
}

// newLogger builds the process logger from the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
