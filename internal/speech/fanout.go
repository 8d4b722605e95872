// Package speech implements the audio synthesis fan-out: a bounded parallel
// dispatcher that turns a batch of (text, voice) items into persisted WAV
// artifacts with estimated playback durations.
//
// Failures are isolated per job: a job that errors or times out is dropped
// from the result set and logged, without aborting its siblings. Results are
// always returned in submission-ordinal order regardless of completion order.
package speech

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quackcouncil/quackd/internal/observe"
	"github.com/quackcouncil/quackd/pkg/audio"
	"github.com/quackcouncil/quackd/pkg/provider/tts"
)

// Duration estimation constants. The voice-synthesis collaborator returns no
// duration metadata, so playback length is estimated from word count. The
// floor intentionally overestimates for short texts.
const (
	MinDurationMS = 2000
	MSPerWord     = 400
)

// Job is one synthesis work item.
type Job struct {
	// Ordinal is the submission index; results are sorted by it.
	Ordinal int

	// Text is the utterance to synthesise.
	Text string

	// Voice is the TTS voice profile to use.
	Voice tts.VoiceProfile

	// Path is the filesystem location where the WAV artifact is written.
	Path string

	// URL is the public locator reported back for the artifact.
	URL string
}

// Result is one successfully synthesised and persisted artifact.
type Result struct {
	// Ordinal is the originating job's submission index.
	Ordinal int

	// URL is the public locator of the persisted artifact.
	URL string

	// DurationMS is the estimated playback duration in milliseconds.
	DurationMS int
}

// Synthesizer fans a batch of jobs out over the TTS provider with a bounded
// worker pool. Safe for concurrent use.
type Synthesizer struct {
	provider tts.Provider
	timeout  time.Duration
	metrics  *observe.Metrics
}

// Option is a functional option for [NewSynthesizer].
type Option func(*Synthesizer)

// WithJobTimeout sets the per-job synthesis timeout. A job exceeding it is
// dropped from the batch like any other failed job. Defaults to 30s.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.timeout = d }
}

// WithMetrics replaces the metrics instance (used by tests).
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Synthesizer) { s.metrics = m }
}

// NewSynthesizer creates a Synthesizer over the given TTS provider.
func NewSynthesizer(provider tts.Provider, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		provider: provider,
		timeout:  30 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// SynthesizeBatch runs all jobs with at most limit concurrent synthesis
// calls and returns the surviving results sorted by ordinal. A failed job is
// logged and dropped; it never fails the batch. limit values below 1 are
// treated as 1.
func (s *Synthesizer) SynthesizeBatch(ctx context.Context, jobs []Job, limit int) []Result {
	if limit < 1 {
		limit = 1
	}

	results := make([]*Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := s.runJob(gctx, job)
			if err != nil {
				slog.Error("synthesis job failed",
					"ordinal", job.Ordinal,
					"voice", job.Voice.ID,
					"err", err,
				)
				s.metrics.SynthesisFailures.Add(ctx, 1)
				s.metrics.RecordProviderError(ctx, "tts")
				return nil // isolate: siblings keep running
			}
			results[i] = res
			return nil
		})
	}
	// Workers never return errors, so Wait only blocks for completion.
	_ = g.Wait()

	out := make([]Result, 0, len(jobs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

// runJob synthesises one job under the per-job timeout and persists the
// artifact as a playable WAV file.
func (s *Synthesizer) runJob(ctx context.Context, job Job) (*Result, error) {
	jobCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	pcm, err := s.provider.Synthesize(jobCtx, job.Text, job.Voice)
	s.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if err := audio.WriteWAV(job.Path, pcm, s.provider.SampleRate()); err != nil {
		return nil, err
	}

	return &Result{
		Ordinal:    job.Ordinal,
		URL:        job.URL,
		DurationMS: EstimateDurationMS(job.Text),
	}, nil
}

// EstimateDurationMS estimates playback duration for text as
// max(MinDurationMS, word_count * MSPerWord).
func EstimateDurationMS(text string) int {
	ms := len(strings.Fields(text)) * MSPerWord
	if ms < MinDurationMS {
		return MinDurationMS
	}
	return ms
}
