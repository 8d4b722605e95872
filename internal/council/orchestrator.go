package council

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quackcouncil/quackd/internal/observe"
	"github.com/quackcouncil/quackd/internal/speech"
	"github.com/quackcouncil/quackd/pkg/provider/tts"
)

// Mode selects how an incoming user message is framed in the transcript.
type Mode string

const (
	// ModeChat treats the message as direct conversation from the user.
	ModeChat Mode = "chat"

	// ModeTopic treats the message as a discussion topic announced by the
	// system rather than words spoken by the user.
	ModeTopic Mode = "topic"
)

// DefaultSession is the transcript session used by all invocations. The
// orchestrator is single-session today; the session key exists so the
// history store does not need to change when that does.
const DefaultSession = "default"

// SpeechResult is one finished council utterance: who spoke, what they said,
// where the audio lives and roughly how long it plays.
type SpeechResult struct {
	DuckID   int    `json:"duckId"`
	Text     string `json:"text"`
	AudioURL string `json:"audioUrl"`
	Duration int    `json:"duration"`
}

// turn is one generated utterance awaiting synthesis.
type turn struct {
	character Character
	text      string
	ordinal   int
}

// Orchestrator drives a full council invocation: transcript update, the
// sequential turn loop, the parallel synthesis fan-out and response assembly.
//
// Invocations against the same session are serialised through the generation
// phase so each turn observes every prior turn; synthesis runs outside the
// lock so a slow TTS provider does not block the next invocation's turn loop.
type Orchestrator struct {
	roster      *Roster
	history     *History
	selector    *Selector
	generator   *Generator
	synthesizer *speech.Synthesizer

	staticDir string
	turns     int
	fanout    int

	metrics *observe.Metrics

	mu sync.Mutex // serialises HISTORY_UPDATE and TURN_LOOP per session
}

// OrchestratorOption is a functional option for [NewOrchestrator].
type OrchestratorOption func(*Orchestrator)

// WithTurns sets the default number of turns per multi-turn invocation.
func WithTurns(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.turns = n }
}

// WithFanout sets the synthesis concurrency cap for multi-turn invocations.
func WithFanout(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.fanout = n }
}

// WithStaticDir sets the directory under which audio artifacts are written.
func WithStaticDir(dir string) OrchestratorOption {
	return func(o *Orchestrator) { o.staticDir = dir }
}

// WithMetrics replaces the metrics instance (used by tests).
func WithMetrics(m *observe.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator wires the council collaborators together.
func NewOrchestrator(roster *Roster, history *History, selector *Selector, generator *Generator, synthesizer *speech.Synthesizer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		roster:      roster,
		history:     history,
		selector:    selector,
		generator:   generator,
		synthesizer: synthesizer,
		staticDir:   "static",
		turns:       3,
		fanout:      3,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// RunDebate runs a full multi-turn invocation: the user message enters the
// transcript, turns characters each produce a reply in sequence, and all
// replies are synthesised in parallel. turns <= 0 falls back to the
// configured default.
//
// A generation failure aborts the invocation: the failing turn's line is
// never appended and the error surfaces to the caller. Lines from turns that
// already completed stay in the transcript.
func (o *Orchestrator) RunDebate(ctx context.Context, userMsg, userName string, mode Mode, turns int) ([]SpeechResult, error) {
	if turns <= 0 {
		turns = o.turns
	}
	if userName == "" {
		userName = "User"
	}

	o.metrics.ActiveInvocations.Add(ctx, 1)
	defer o.metrics.ActiveInvocations.Add(ctx, -1)

	generated, err := o.generateTurns(ctx, userMsg, userName, mode, turns)
	if err != nil {
		return nil, err
	}
	return o.synthesizeTurns(ctx, generated, o.fanout)
}

// RunSingleTurn makes one specific character speak next, without a new user
// message. An unknown duckID yields an empty result set with a nil error and
// leaves the transcript untouched.
func (o *Orchestrator) RunSingleTurn(ctx context.Context, duckID int) ([]SpeechResult, error) {
	ch, err := o.roster.ByID(duckID)
	if err != nil {
		slog.Warn("single turn for unknown character", "duck_id", duckID)
		return []SpeechResult{}, nil
	}
	return o.speakAs(ctx, ch)
}

// RunSingleTurnByName is RunSingleTurn addressed by character name instead of
// id. Lookup is case-insensitive with a fuzzy fallback, so mangled names from
// transcribed speech still resolve. An unresolvable name yields an empty
// result set with a nil error.
func (o *Orchestrator) RunSingleTurnByName(ctx context.Context, name string) ([]SpeechResult, error) {
	ch, err := o.roster.ByName(name)
	if err != nil {
		slog.Warn("single turn for unknown character", "name", name)
		return []SpeechResult{}, nil
	}
	return o.speakAs(ctx, ch)
}

// speakAs generates and synthesises exactly one turn for ch against the
// current transcript.
func (o *Orchestrator) speakAs(ctx context.Context, ch Character) ([]SpeechResult, error) {
	o.metrics.ActiveInvocations.Add(ctx, 1)
	defer o.metrics.ActiveInvocations.Add(ctx, -1)

	o.mu.Lock()
	text, err := o.generator.Reply(ctx, ch, RenderTranscript(o.history.Lines(DefaultSession)))
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.history.Append(DefaultSession, Line{Speaker: ch.Name, Text: text})
	o.mu.Unlock()

	generated := []turn{{character: ch, text: text, ordinal: 0}}
	return o.synthesizeTurns(ctx, generated, 2)
}

// Reset clears the transcript.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history.Reset(DefaultSession)
}

// Transcript returns a copy of the current transcript.
func (o *Orchestrator) Transcript() []Line {
	return o.history.Lines(DefaultSession)
}

// generateTurns performs the serialised phases of an invocation: the
// transcript update and the sequential turn loop. The session lock is held
// throughout so concurrent invocations interleave at whole-phase granularity.
func (o *Orchestrator) generateTurns(ctx context.Context, userMsg, userName string, mode Mode, turns int) ([]turn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch mode {
	case ModeTopic:
		o.history.Append(DefaultSession, Line{
			Speaker: SystemSpeaker,
			Text:    fmt.Sprintf("The topic for discussion is: %s", userMsg),
		})
	default:
		o.history.Append(DefaultSession, Line{Speaker: userName, Text: userMsg})
	}

	var (
		generated []turn
		previous  *Character
	)
	for i := 0; i < turns; i++ {
		var (
			ch  Character
			err error
		)
		if previous == nil {
			ch, err = o.selector.ChooseInitial(o.roster.Characters())
		} else {
			ch, err = o.selector.ChooseNext(o.roster.Characters(), *previous)
		}
		if err != nil {
			return nil, err
		}

		text, err := o.generator.Reply(ctx, ch, RenderTranscript(o.history.Lines(DefaultSession)))
		if err != nil {
			// Abort the invocation. The failing turn's line never enters the
			// transcript; completed turns keep theirs.
			slog.Error("turn generation failed", "character", ch.Name, "turn", i, "err", err)
			return nil, err
		}

		o.history.Append(DefaultSession, Line{Speaker: ch.Name, Text: text})
		generated = append(generated, turn{character: ch, text: text, ordinal: len(generated)})
		previous = &ch
	}

	return generated, nil
}

// synthesizeTurns runs the parallel synthesis fan-out for the generated
// turns and assembles the final results. Turns whose synthesis failed are
// dropped; text for surviving turns is always paired with its audio.
func (o *Orchestrator) synthesizeTurns(ctx context.Context, generated []turn, fanout int) ([]SpeechResult, error) {
	if len(generated) == 0 {
		return []SpeechResult{}, nil
	}

	dirName := invocationDirName(time.Now())
	jobs := make([]speech.Job, 0, len(generated))
	byOrdinal := make(map[int]turn, len(generated))
	for _, t := range generated {
		byOrdinal[t.ordinal] = t
		filename := fmt.Sprintf("%d_%s.wav", t.ordinal, sanitizeName(t.character.Name))
		jobs = append(jobs, speech.Job{
			Ordinal: t.ordinal,
			Text:    t.text,
			Voice:   tts.VoiceProfile{ID: t.character.VoiceID, Name: t.character.Name},
			Path:    filepath.Join(o.staticDir, "audio", dirName, filename),
			URL:     path.Join("/static", "audio", dirName, filename),
		})
	}

	results := o.synthesizer.SynthesizeBatch(ctx, jobs, fanout)

	out := make([]SpeechResult, 0, len(results))
	for _, r := range results {
		t, ok := byOrdinal[r.Ordinal]
		if !ok {
			continue
		}
		out = append(out, SpeechResult{
			DuckID:   t.character.ID,
			Text:     t.text,
			AudioURL: r.URL,
			Duration: r.DurationMS,
		})
	}
	return out, nil
}

// invocationDirName names an invocation's audio directory. The timestamp
// keeps directories listable in order; the uuid suffix keeps two invocations
// in the same second from colliding.
func invocationDirName(now time.Time) string {
	return fmt.Sprintf("%s-%s", now.Format("20060102-150405"), uuid.NewString()[:8])
}

// sanitizeName makes a character name safe for use in a filename.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
