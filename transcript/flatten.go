package transcript

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/subterm/agentwire/wire"
)

// Flattener turns validated raw records into ordered canonical messages,
// correlating tool results with their originating tool calls across
// records. One Flattener serves one transcript; it is not safe for
// concurrent use.
type Flattener struct {
	pending map[string]*Message
	logger  *slog.Logger
}

// NewFlattener creates a Flattener. A nil logger falls back to the default.
func NewFlattener(logger *slog.Logger) *Flattener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flattener{
		pending: make(map[string]*Message),
		logger:  logger,
	}
}

// Flatten consumes one validated record and returns the new top-level
// messages it produced, in source block order. Identifiers are strictly
// caller-supplied: the first message takes id verbatim and later messages
// from the same record derive "id:ordinal", so the result is deterministic
// given the inputs.
//
// A tool_result block emits nothing; it transitions the previously emitted
// tool-call message it correlates with (by tool_use_id) in place. Records
// carrying parent_tool_use_id nest their messages under the pending parent
// tool-call instead of appearing top-level.
func (f *Flattener) Flatten(id string, localID *string, createdAt time.Time, rec *wire.RawRecord) []*Message {
	switch content := rec.Content.(type) {
	case wire.TextContent:
		if rec.Role != wire.RoleUser {
			f.logger.Debug("ignoring text content from non-user role", "role", string(rec.Role))
			return nil
		}
		return []*Message{{
			ID:        id,
			LocalID:   localID,
			CreatedAt: createdAt,
			Kind:      KindUserText,
			Text:      content.Text,
		}}

	case wire.OutputContent:
		return f.flattenOutput(id, localID, createdAt, content.Data)

	case wire.EventContent:
		return []*Message{{
			ID:        id,
			LocalID:   localID,
			CreatedAt: createdAt,
			Kind:      KindAgentEvent,
			Event:     content.Data,
		}}

	case wire.CodexContent:
		// Codex payloads are consumed by the codex-native renderer, not
		// the canonical transcript.
		f.logger.Debug("skipping codex content in transcript flatten")
		return nil

	default:
		return nil
	}
}

func (f *Flattener) flattenOutput(id string, localID *string, createdAt time.Time, data wire.OutputData) []*Message {
	var env wire.MessageEnvelope
	switch d := data.(type) {
	case wire.AssistantOutput:
		env = d.MessageEnvelope
	case wire.UserOutput:
		env = d.MessageEnvelope
	default:
		// system and summary outputs carry no transcript entry.
		return nil
	}

	meta := &Meta{
		UUID:            env.UUID,
		ParentUUID:      env.ParentUUID,
		ParentToolUseID: env.ParentToolUseID,
		Sidechain:       env.IsSidechain,
		CompactSummary:  env.IsCompactSummary,
		MetaRecord:      env.IsMeta,
		Extra:           env.Extra,
	}

	var emitted []*Message
	next := func() *Message {
		msg := &Message{
			ID:        deriveID(id, len(emitted)),
			LocalID:   localID,
			CreatedAt: createdAt,
			Meta:      meta,
		}
		emitted = append(emitted, msg)
		return msg
	}

	if env.Message.Shape == wire.ShapeString {
		msg := next()
		msg.Kind = KindAgentText
		msg.Text = env.Message.Text
	}

	for _, block := range env.Message.Blocks {
		switch b := block.(type) {
		case wire.TextBlock:
			msg := next()
			msg.Kind = KindAgentText
			msg.Text = b.Text

		case wire.ThinkingBlock:
			msg := next()
			msg.Kind = KindAgentText
			msg.Text = b.Thinking
			msg.Thinking = true

		case wire.ToolUseBlock:
			msg := next()
			msg.Kind = KindToolCall
			msg.ToolCall = &ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				State:     StateRunning,
				Input:     b.Input,
				CreatedAt: createdAt,
				StartedAt: createdAt,
			}
			f.pending[b.ID] = msg

		case wire.ToolResultBlock:
			f.applyResult(b, createdAt)
		}
	}

	if meta.ParentToolUseID != "" {
		if parent, ok := f.pending[meta.ParentToolUseID]; ok {
			parent.Children = append(parent.Children, emitted...)
			return nil
		}
	}
	return emitted
}

// applyResult transitions the correlated tool-call message in place.
// Orphan results are dropped; the session driver decides whether a missing
// tool_use is worth surfacing.
func (f *Flattener) applyResult(b wire.ToolResultBlock, createdAt time.Time) {
	msg, ok := f.pending[b.ToolUseID]
	if !ok {
		f.logger.Debug("dropping tool_result with no matching tool_use", "tool_use_id", b.ToolUseID)
		return
	}

	tc := msg.ToolCall
	if b.IsError {
		tc.State = StateError
	} else {
		tc.State = StateCompleted
	}
	completedAt := createdAt
	tc.CompletedAt = &completedAt
	tc.Result = b.Content
	if perms, ok := b.Extra["permissions"]; ok {
		tc.Permission = perms
	}
}

func deriveID(id string, ordinal int) string {
	if ordinal == 0 {
		return id
	}
	return fmt.Sprintf("%s:%d", id, ordinal)
}
