package council

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/quackcouncil/quackd/internal/observe"
	"github.com/quackcouncil/quackd/pkg/provider/llm"
)

// Generator produces one line of dialogue for a character from the rendered
// conversation history. It is a pure adapter over the text-generation
// collaborator: no retries, no local state; failures propagate as
// [CollaboratorError].
type Generator struct {
	llm     llm.Provider
	metrics *observe.Metrics
}

// NewGenerator creates a Generator over the given LLM provider.
func NewGenerator(provider llm.Provider, metrics *observe.Metrics) *Generator {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Generator{llm: provider, metrics: metrics}
}

// Reply generates one turn of dialogue for ch against the rendered history.
// The reply is trimmed of surrounding whitespace; an empty reply is a valid
// (if degenerate) result and is returned as-is.
func (g *Generator) Reply(ctx context.Context, ch Character, history string) (string, error) {
	start := time.Now()

	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt(ch),
		Messages: []llm.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Here is the conversation so far:\n\n%s\n\nYour turn to speak:", history),
		}},
	})

	g.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		g.metrics.RecordProviderError(ctx, "llm")
		return "", &CollaboratorError{Stage: "llm", Err: err}
	}
	g.metrics.TurnsGenerated.Add(ctx, 1, metric.WithAttributes(observe.Attr("character", ch.Name)))

	return strings.TrimSpace(resp.Content), nil
}

// systemPrompt builds the persona framing for one character. The short-reply
// instruction keeps turns conversational rather than monologues.
func systemPrompt(ch Character) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s. %s ", ch.Name, ch.Prompt)
	if ch.Style != "" {
		fmt.Fprintf(&sb, "Speak in a %s tone. ", ch.Style)
	}
	sb.WriteString("Keep your response short (under 2 sentences). ")
	sb.WriteString("React to the previous messages in the conversation history.")
	return sb.String()
}
