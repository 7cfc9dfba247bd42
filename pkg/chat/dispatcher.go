package chat

import (
	"context"
	"fmt"

	"github.com/parley-chat/parley/pkg/events"
	"github.com/parley-chat/parley/pkg/logger"
)

// Dispatcher applies decoded stream events to a conversation, strictly in
// the order frames were extracted. Terminal events cancel the read loop
// through the cancel hook before returning. Conversation.AwaitingResponse
// belongs to the sender that started the stream; the dispatcher never
// touches it.
type Dispatcher struct {
	conv      *Conversation
	cancel    context.CancelFunc
	fragments func(string)
	done      bool
}

// NewDispatcher creates a dispatcher bound to conv. cancel is invoked when a
// terminal event (message_end, error) arrives; it may be nil.
func NewDispatcher(conv *Conversation, cancel context.CancelFunc) *Dispatcher {
	return &Dispatcher{conv: conv, cancel: cancel}
}

// OnFragment registers a callback invoked with each streamed answer
// fragment, for live rendering.
func (d *Dispatcher) OnFragment(fn func(string)) {
	d.fragments = fn
}

// Done reports whether a terminal event has been dispatched.
func (d *Dispatcher) Done() bool {
	return d.done
}

// Dispatch decodes one frame and applies its effect. A frame that fails to
// parse is logged and swallowed; the stream continues undisturbed.
func (d *Dispatcher) Dispatch(frame string) {
	ev, err := events.Parse(frame)
	if err != nil {
		logger.Warn("chat: dropping malformed frame: %v", err)
		return
	}

	switch ev.Kind {
	case events.KindMessage:
		msg := d.conv.Active()
		if msg == nil {
			logger.Debug("chat: message event with no active message, ignoring")
			return
		}
		msg.AppendAnswer(ev.Answer)
		if msg.ID == "" && ev.MessageID != "" {
			msg.ID = ev.MessageID
		}
		d.conv.AdoptID(ev.ConversationID)
		if d.fragments != nil && ev.Answer != "" {
			d.fragments(ev.Answer)
		}

	case events.KindMessageEnd:
		if msg := d.conv.Active(); msg != nil {
			msg.Finalize()
		}
		d.finish()

	case events.KindMessageReplace:
		msg := d.conv.FindByID(ev.MessageID)
		if msg == nil {
			logger.Warn("chat: message_replace for unknown message %q", ev.MessageID)
			return
		}
		msg.ReplaceAnswer(ev.Answer)

	case events.KindError:
		if msg := d.conv.Active(); msg != nil {
			msg.Fail(fmt.Sprintf("The server reported an error: %s", ev.ErrorMessage))
		}
		d.finish()

	case events.KindPing:
		logger.Debug("chat: ping")

	default:
		if ev.Telemetry() {
			logger.Debug("chat: telemetry event %s: %s", ev.Kind, ev.Raw)
			return
		}
		logger.Debug("chat: ignoring unrecognized event kind in frame %s", ev.Raw)
	}
}

// finish marks the stream terminal and cancels the underlying reader so no
// further reads are issued.
func (d *Dispatcher) finish() {
	d.done = true
	if d.cancel != nil {
		d.cancel()
	}
}
