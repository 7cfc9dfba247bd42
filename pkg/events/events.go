package events

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the event type carried by one stream envelope.
type Kind string

const (
	KindMessage        Kind = "message"
	KindMessageEnd     Kind = "message_end"
	KindMessageReplace Kind = "message_replace"
	KindError          Kind = "error"
	KindPing           Kind = "ping"

	// Telemetry kinds pass through with no state effect.
	KindWorkflowStarted  Kind = "workflow_started"
	KindNodeStarted      Kind = "node_started"
	KindNodeFinished     Kind = "node_finished"
	KindWorkflowFinished Kind = "workflow_finished"
	KindMessageFile      Kind = "message_file"
	KindTTSMessage       Kind = "tts_message"
	KindTTSMessageEnd    Kind = "tts_message_end"

	// KindUnknown catches server kinds this client does not know about, so
	// new event types degrade to a no-op instead of an error.
	KindUnknown Kind = "unknown"
)

// Event is one decoded stream envelope.
type Event struct {
	Kind           Kind
	Answer         string
	MessageID      string
	ConversationID string
	ErrorMessage   string

	// Raw keeps the whole envelope for telemetry logging.
	Raw json.RawMessage
}

// Telemetry reports whether the event is a passthrough diagnostic kind.
func (e Event) Telemetry() bool {
	switch e.Kind {
	case KindWorkflowStarted, KindNodeStarted, KindNodeFinished,
		KindWorkflowFinished, KindMessageFile, KindTTSMessage, KindTTSMessageEnd:
		return true
	}
	return false
}

// Parse decodes one frame into an Event. A frame that is not valid JSON is
// an error; an unrecognized kind is not. Only the fields the kind consumes
// are decoded: telemetry and unknown frames may reuse field names with any
// shape and still pass through for logging.
func Parse(frame string) (Event, error) {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal([]byte(frame), &head); err != nil {
		return Event{}, fmt.Errorf("failed to parse event envelope: %w", err)
	}

	ev := Event{Raw: json.RawMessage(frame)}

	switch kind := Kind(head.Event); kind {
	case KindMessage, KindMessageReplace:
		var body struct {
			Answer         string `json:"answer"`
			MessageID      string `json:"message_id"`
			ConversationID string `json:"conversation_id"`
		}
		if err := json.Unmarshal([]byte(frame), &body); err != nil {
			return Event{}, fmt.Errorf("failed to parse %s event: %w", kind, err)
		}
		ev.Kind = kind
		ev.Answer = body.Answer
		ev.MessageID = body.MessageID
		ev.ConversationID = body.ConversationID

	case KindError:
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(frame), &body); err != nil {
			return Event{}, fmt.Errorf("failed to parse %s event: %w", kind, err)
		}
		ev.Kind = kind
		ev.ErrorMessage = body.Message

	case KindMessageEnd, KindPing,
		KindWorkflowStarted, KindNodeStarted, KindNodeFinished,
		KindWorkflowFinished, KindMessageFile, KindTTSMessage, KindTTSMessageEnd:
		ev.Kind = kind

	default:
		ev.Kind = KindUnknown
	}

	return ev, nil
}
