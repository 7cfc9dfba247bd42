package chat

// Conversation owns the ordered message sequence for the single live
// session. Insertion order is display order.
type Conversation struct {
	ID               string
	Messages         []*Message
	AwaitingResponse bool
}

// NewConversation creates a conversation seeded with the greeting message.
func NewConversation(greeting string) *Conversation {
	return &Conversation{
		Messages: []*Message{NewGreetingMessage(greeting)},
	}
}

// AdoptID pins the conversation id the first time the server supplies one.
// Once set it never changes for the session; later values are ignored.
func (c *Conversation) AdoptID(id string) {
	if c.ID == "" && id != "" {
		c.ID = id
	}
}

// Append adds a message at the end of the conversation.
func (c *Conversation) Append(msg *Message) {
	c.Messages = append(c.Messages, msg)
}

// Active returns the message currently receiving the streamed answer, or
// nil when nothing is in flight. At most one message is non-terminal at a
// time.
func (c *Conversation) Active() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if !c.Messages[i].Terminal() {
			return c.Messages[i]
		}
	}
	return nil
}

// FindByID returns the message with the given server-assigned id.
func (c *Conversation) FindByID(id string) *Message {
	if id == "" {
		return nil
	}
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// LastRatable returns the most recent message eligible for rating: a
// terminal message produced by an actual exchange.
func (c *Conversation) LastRatable() (*Message, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		msg := c.Messages[i]
		if msg.Terminal() && msg.Query != "" {
			return msg, true
		}
	}
	return nil, false
}

// MessageCount returns the number of messages in the conversation.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// Reset discards all messages and starts over with a fresh greeting. The
// conversation id is unset so the next exchange gets a new one.
func (c *Conversation) Reset(greeting string) {
	c.ID = ""
	c.Messages = []*Message{NewGreetingMessage(greeting)}
	c.AwaitingResponse = false
}
