package session

import (
	"encoding/json"

	"github.com/subterm/agentwire/transcript"
)

// EventType discriminates between event kinds.
type EventType int

const (
	// EventTypeMessages fires when new transcript messages are appended.
	EventTypeMessages EventType = iota
	// EventTypeRecordRejected fires when a wire record fails validation.
	EventTypeRecordRejected
	// EventTypeInputSent fires when a queued user input reaches the transport.
	EventTypeInputSent
)

// Event is the interface for all session events.
type Event interface {
	Type() EventType
}

// MessagesEvent carries newly appended transcript messages.
type MessagesEvent struct {
	Messages []*transcript.Message
}

// Type returns the event type.
func (e MessagesEvent) Type() EventType { return EventTypeMessages }

// RecordRejectedEvent carries a record that failed validation, along with
// the structured failure. The session keeps running; the bad record
// degrades to an unparsed transcript entry instead of aborting replay.
type RecordRejectedEvent struct {
	Raw json.RawMessage
	Err error
}

// Type returns the event type.
func (e RecordRejectedEvent) Type() EventType { return EventTypeRecordRejected }

// InputSentEvent fires after a queued user input is forwarded.
type InputSentEvent struct {
	Text string
}

// Type returns the event type.
func (e InputSentEvent) Type() EventType { return EventTypeInputSent }
