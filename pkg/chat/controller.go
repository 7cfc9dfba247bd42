package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/parley-chat/parley/pkg/auth"
	"github.com/parley-chat/parley/pkg/logger"
)

var (
	// ErrAuthRequired signals the routing layer to redirect to login. No
	// message is appended and nothing is sent.
	ErrAuthRequired = errors.New("authentication required")

	// ErrBusy rejects a send issued while a response is still streaming.
	// Two interleaved reads against one conversation would race their
	// writes, so a second send is refused outright rather than queued.
	ErrBusy = errors.New("a response is already in flight")
)

// connectionErrorText is what the user sees when the stream drops without a
// terminal event.
const connectionErrorText = "Connection to the server was lost. Please try again."

// Controller owns the live conversation and drives the streaming exchange:
// chunk bytes in, accumulated frames dispatched, message state out.
type Controller struct {
	client   *StreamClient
	gate     *auth.Gate
	greeting string

	// mu guards the conversation flag and the active-stream bookkeeping.
	// gen counts accepted sends; a Send only unwinds state it still owns,
	// so a Clear that admits a newer stream is never clobbered by the
	// older Send finishing late.
	mu           sync.Mutex
	conv         *Conversation
	gen          uint64
	cancelActive context.CancelFunc
	cancelledGen uint64
	fragments    func(string)
	onClear      func()
}

// NewController creates a controller with a fresh greeted conversation.
func NewController(client *StreamClient, gate *auth.Gate, greeting string) *Controller {
	return &Controller{
		client:   client,
		gate:     gate,
		greeting: greeting,
		conv:     NewConversation(greeting),
	}
}

// Conversation exposes the live conversation for rendering.
func (c *Controller) Conversation() *Conversation {
	return c.conv
}

// OnFragment registers a live-rendering callback for streamed answer
// fragments.
func (c *Controller) OnFragment(fn func(string)) {
	c.fragments = fn
}

// OnClear registers a hook run after the conversation is reset, used to
// drop any feedback collection in progress.
func (c *Controller) OnClear(fn func()) {
	c.onClear = fn
}

// Send submits a prompt and synchronously drives the streamed reply into
// the conversation. It returns ErrAuthRequired when no user is logged in
// and ErrBusy while a previous reply is still streaming. A blank prompt is
// a silent no-op. Transport failures surface as the active message's answer
// text, not as a returned error.
func (c *Controller) Send(ctx context.Context, prompt string) error {
	if !c.gate.Authenticated() {
		return ErrAuthRequired
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}

	c.mu.Lock()
	if c.conv.AwaitingResponse {
		c.mu.Unlock()
		return ErrBusy
	}
	msg := NewPendingMessage(prompt)
	c.conv.Append(msg)
	c.conv.AwaitingResponse = true
	c.gen++
	myGen := c.gen

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancelActive = cancel
	user := c.gate.Session().UserID
	conversationID := c.conv.ID
	c.mu.Unlock()

	defer cancel()

	dispatcher := NewDispatcher(c.conv, cancel)
	if c.fragments != nil {
		dispatcher.OnFragment(c.fragments)
	}

	err := c.client.Stream(streamCtx, ChatRequest{
		Prompt:         prompt,
		User:           user,
		ConversationID: conversationID,
	}, dispatcher)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != myGen {
		// A Clear intervened and a newer exchange owns the conversation.
		return nil
	}
	c.conv.AwaitingResponse = false
	c.cancelActive = nil

	if dispatcher.Done() {
		// Terminal event already settled the message state.
		return nil
	}
	if c.cancelledGen == myGen {
		// External cancellation: the active message stays as-is.
		c.cancelledGen = 0
		logger.Info("chat: stream cancelled, leaving partial answer in place")
		return nil
	}

	if err != nil {
		logger.Error("chat: stream ended without terminal event: %v", err)
	} else {
		logger.Warn("chat: server closed the stream without a terminal event")
	}
	msg.Fail(connectionErrorText)
	return nil
}

// Clear discards all messages, replacing them with a single greeting, and
// unsets the conversation id so the next exchange starts a new one. Any
// in-flight stream is cancelled first.
func (c *Controller) Clear() {
	c.CancelActive()

	c.mu.Lock()
	c.conv.Reset(c.greeting)
	onClear := c.onClear
	c.mu.Unlock()

	if onClear != nil {
		onClear()
	}
}

// CancelActive stops the in-flight stream, if any. The conversation is left
// consistent: awaiting cleared by the unwinding Send, the partial answer
// kept rather than discarded.
func (c *Controller) CancelActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelActive != nil {
		c.cancelledGen = c.gen
		c.cancelActive()
	}
}
