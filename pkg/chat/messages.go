package chat

import "strings"

// MessageStatus tracks a message through the streaming lifecycle.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusStreaming MessageStatus = "streaming"
	StatusFinalized MessageStatus = "finalized"
	StatusErrored   MessageStatus = "errored"
)

// Message is one exchange in the conversation. ID stays empty until the
// server assigns one. Answer only grows while streaming; a message_replace
// event is the single whole-text overwrite allowed afterwards.
type Message struct {
	ID     string
	Query  string
	Answer string
	Status MessageStatus
}

// NewPendingMessage creates the message for a just-sent prompt.
func NewPendingMessage(query string) *Message {
	return &Message{
		Query:  strings.TrimSpace(query),
		Status: StatusPending,
	}
}

// NewGreetingMessage creates the answer-only message that seeds a fresh
// conversation.
func NewGreetingMessage(text string) *Message {
	return &Message{
		Answer: text,
		Status: StatusFinalized,
	}
}

// AppendAnswer adds a streamed fragment and moves the message to streaming.
func (m *Message) AppendAnswer(fragment string) {
	m.Answer += fragment
	m.Status = StatusStreaming
}

// ReplaceAnswer overwrites the answer wholesale.
func (m *Message) ReplaceAnswer(text string) {
	m.Answer = text
}

// Finalize marks the message complete.
func (m *Message) Finalize() {
	m.Status = StatusFinalized
}

// Fail records an error answer and marks the message errored.
func (m *Message) Fail(text string) {
	m.Answer = text
	m.Status = StatusErrored
}

// Terminal reports whether the message has finished streaming, successfully
// or not. Only terminal messages may be rated.
func (m *Message) Terminal() bool {
	return m.Status == StatusFinalized || m.Status == StatusErrored
}
