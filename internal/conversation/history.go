// Package conversation keeps the message history for one interactive
// session. The history always carries a fixed two-message prefix, the system
// prompt and the project context, followed by the rolling transcript of user
// and assistant turns.
package conversation

import (
	"atelier.dev/atelier/common/llm"
	"atelier.dev/atelier/core/config"
)

// History is the message state for one session. The system prompt never
// changes, the project context is replaced in place on refresh, and the
// transcript grows per turn until trimmed. Not safe for concurrent use.
type History struct {
	system        llm.Message
	context       llm.Message
	transcript    []llm.Message
	maxTranscript int
	capacity      int
}

// NewHistory seeds a history with the system prompt and the initial project
// context.
func NewHistory(systemPrompt, contextText string, cfg config.HistoryConfig) *History {
	return &History{
		system:        llm.Message{Role: llm.RoleSystem, Content: systemPrompt},
		context:       llm.Message{Role: llm.RoleUser, Content: contextText},
		maxTranscript: cfg.MaxTranscript,
		capacity:      cfg.Capacity,
	}
}

// AppendUser records a user turn.
func (h *History) AppendUser(content string) {
	h.transcript = append(h.transcript, llm.Message{Role: llm.RoleUser, Content: content})
}

// AppendAssistant records an assistant reply.
func (h *History) AppendAssistant(content string) {
	h.transcript = append(h.transcript, llm.Message{Role: llm.RoleAssistant, Content: content})
}

// Refresh swaps in a new project context and keeps only the most recent
// transcript entries, so turns about files that no longer exist stop
// steering the model.
func (h *History) Refresh(contextText string) {
	h.context.Content = contextText
	if len(h.transcript) > h.maxTranscript {
		kept := h.transcript[len(h.transcript)-h.maxTranscript:]
		h.transcript = append([]llm.Message(nil), kept...)
	}
}

// Snapshot returns the request payload: the fixed prefix followed by a copy
// of the transcript. Mutating the returned slice does not touch the history.
func (h *History) Snapshot() []llm.Message {
	messages := make([]llm.Message, 0, 2+len(h.transcript))
	messages = append(messages, h.system, h.context)
	messages = append(messages, h.transcript...)
	return messages
}

// TrimIfOverCapacity drops the two oldest transcript entries, repeatedly,
// until a snapshot would fit the capacity. The prefix is never dropped. It
// returns how many entries were removed.
func (h *History) TrimIfOverCapacity() int {
	dropped := 0
	for 2+len(h.transcript) > h.capacity && len(h.transcript) > 0 {
		n := 2
		if len(h.transcript) < n {
			n = len(h.transcript)
		}
		h.transcript = h.transcript[n:]
		dropped += n
	}
	return dropped
}

// Len is the number of messages a Snapshot would contain.
func (h *History) Len() int {
	return 2 + len(h.transcript)
}

// TranscriptLen is the number of transcript entries currently kept.
func (h *History) TranscriptLen() int {
	return len(h.transcript)
}
