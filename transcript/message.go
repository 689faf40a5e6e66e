// Package transcript assembles validated wire records into the canonical,
// hierarchical transcript model consumed by rendering and replay code.
package transcript

import (
	"encoding/json"
	"time"
)

// Kind discriminates between canonical transcript messages.
type Kind string

const (
	// KindUserText is a message typed by the user.
	KindUserText Kind = "user-text"
	// KindAgentText is prose or thinking emitted by the agent.
	KindAgentText Kind = "agent-text"
	// KindToolCall is a tool invocation with its eventual result and any
	// nested child messages.
	KindToolCall Kind = "tool-call"
	// KindAgentEvent is a side-channel control event (mode switch etc.).
	KindAgentEvent Kind = "agent-event"
)

// Message is one canonical transcript entry. The flattener exclusively owns
// construction; downstream consumers treat messages as read-only values.
// The single exception is a tool-call message's embedded ToolCall, whose
// state and result transition when the correlated tool_result arrives.
type Message struct {
	ID        string
	LocalID   *string
	CreatedAt time.Time
	Kind      Kind

	// Text carries user-text and agent-text payloads. Thinking marks
	// agent-text that originated from a thinking block.
	Text     string
	Thinking bool

	// ToolCall and Children are set for tool-call messages only.
	ToolCall *ToolCall
	Children []*Message

	// Event carries the opaque payload of agent-event messages.
	Event json.RawMessage

	Meta *Meta
}

// Meta carries the side-channel fields of the originating record. It never
// alters a message's kind.
type Meta struct {
	UUID            string
	ParentUUID      string
	ParentToolUseID string
	Sidechain       bool
	CompactSummary  bool
	MetaRecord      bool
	Extra           map[string]json.RawMessage
}

// ToolCallState is the lifecycle state of a tool invocation.
type ToolCallState string

const (
	// StateRunning holds from the tool_use block until a correlated
	// result arrives. No timeout is imposed at this layer; a call with no
	// result stays running indefinitely.
	StateRunning ToolCallState = "running"
	// StateCompleted is terminal, selected by is_error=false.
	StateCompleted ToolCallState = "completed"
	// StateError is terminal, selected by is_error=true.
	StateError ToolCallState = "error"
)

// ToolCall is the mutable core of a tool-call message.
type ToolCall struct {
	ID          string
	Name        string
	State       ToolCallState
	Input       json.RawMessage
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt *time.Time
	Description string
	Result      json.RawMessage
	Permission  json.RawMessage
}
