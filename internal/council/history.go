package council

import (
	"strings"
	"sync"
)

// SystemSpeaker is the speaker label used for system-framed lines such as
// topic announcements.
const SystemSpeaker = "SYSTEM"

// Line is one entry in a session transcript. Immutable once appended.
type Line struct {
	// Speaker is a character name, a user display name, or [SystemSpeaker].
	Speaker string

	// Text is the spoken content.
	Text string
}

// String renders the line in "Speaker: text" form as sent to the LLM.
func (l Line) String() string {
	return l.Speaker + ": " + l.Text
}

// History is the process-wide conversation history store: an in-memory map
// from session id to a bounded, append-only transcript. It is the only piece
// of mutable shared state in the system and is safe for concurrent use.
//
// Transcripts are capped at the configured limit: after each append, only the
// most recent lines are retained, so the rendered prompt context stays
// bounded. There is no durable persistence; a restart clears all sessions.
type History struct {
	mu       sync.Mutex
	limit    int
	sessions map[string][]Line
}

// NewHistory creates a History store retaining at most limit lines per
// session. A non-positive limit disables the cap.
func NewHistory(limit int) *History {
	return &History{
		limit:    limit,
		sessions: make(map[string][]Line),
	}
}

// Append adds line to the session's transcript, evicting the oldest lines if
// the transcript now exceeds the configured limit.
func (h *History) Append(sessionID string, line Line) {
	h.mu.Lock()
	defer h.mu.Unlock()

	lines := append(h.sessions[sessionID], line)
	if h.limit > 0 && len(lines) > h.limit {
		lines = lines[len(lines)-h.limit:]
	}
	h.sessions[sessionID] = lines
}

// Lines returns a copy of the session's transcript in append order. An
// unknown session yields an empty slice, never an error.
func (h *History) Lines(sessionID string) []Line {
	h.mu.Lock()
	defer h.mu.Unlock()

	lines := h.sessions[sessionID]
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

// Reset clears the session's transcript back to empty.
func (h *History) Reset(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

// RenderTranscript formats lines as the conversation-history block sent to
// the text-generation collaborator.
func RenderTranscript(lines []Line) string {
	var sb strings.Builder
	sb.WriteString("CONVERSATION HISTORY:\n")
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.String())
	}
	return sb.String()
}
