package wire

import (
	"encoding/json"
)

// OutputType discriminates the per-backend message union on the output path.
type OutputType string

const (
	OutputTypeAssistant OutputType = "assistant"
	OutputTypeUser      OutputType = "user"
	OutputTypeSystem    OutputType = "system"
	OutputTypeSummary   OutputType = "summary"
)

// OutputData is the nested per-backend message wrapped by OutputContent,
// selected by data.type.
type OutputData interface {
	OutputType() OutputType
}

// MessageEnvelope is the shared shape of assistant and user outputs: a
// message body plus pass-through metadata. Backend-specific keys (userType,
// cwd, sessionId, version, gitBranch, ...) survive unexamined in Extra.
type MessageEnvelope struct {
	Message          MessageBody
	UUID             string
	ParentUUID       string
	ParentToolUseID  string
	IsSidechain      bool
	IsCompactSummary bool
	IsMeta           bool
	Extra            map[string]json.RawMessage
}

// AssistantOutput is a backend assistant turn.
type AssistantOutput struct {
	MessageEnvelope
}

// OutputType returns the data tag.
func (o AssistantOutput) OutputType() OutputType { return OutputTypeAssistant }

// MarshalJSON emits the canonical wire form.
func (o AssistantOutput) MarshalJSON() ([]byte, error) {
	return o.marshalWithType(OutputTypeAssistant)
}

// UserOutput is a backend-echoed user turn, typically carrying tool results.
type UserOutput struct {
	MessageEnvelope
}

// OutputType returns the data tag.
func (o UserOutput) OutputType() OutputType { return OutputTypeUser }

// MarshalJSON emits the canonical wire form.
func (o UserOutput) MarshalJSON() ([]byte, error) {
	return o.marshalWithType(OutputTypeUser)
}

func (o MessageEnvelope) marshalWithType(tag OutputType) ([]byte, error) {
	out := cloneExtra(o.Extra, 8)
	if err := setJSON(out, "type", string(tag)); err != nil {
		return nil, err
	}
	if err := setJSON(out, "message", o.Message); err != nil {
		return nil, err
	}
	if o.UUID != "" {
		if err := setJSON(out, "uuid", o.UUID); err != nil {
			return nil, err
		}
	}
	if o.ParentUUID != "" {
		if err := setJSON(out, "parentUuid", o.ParentUUID); err != nil {
			return nil, err
		}
	}
	if o.ParentToolUseID != "" {
		if err := setJSON(out, "parent_tool_use_id", o.ParentToolUseID); err != nil {
			return nil, err
		}
	}
	if o.IsSidechain {
		if err := setJSON(out, "isSidechain", true); err != nil {
			return nil, err
		}
	}
	if o.IsCompactSummary {
		if err := setJSON(out, "isCompactSummary", true); err != nil {
			return nil, err
		}
	}
	if o.IsMeta {
		if err := setJSON(out, "isMeta", true); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// SystemOutput is a backend system event.
type SystemOutput struct {
	Subtype string
	Extra   map[string]json.RawMessage
}

// OutputType returns the data tag.
func (o SystemOutput) OutputType() OutputType { return OutputTypeSystem }

// MarshalJSON emits the canonical wire form.
func (o SystemOutput) MarshalJSON() ([]byte, error) {
	out := cloneExtra(o.Extra, 2)
	if err := setJSON(out, "type", string(OutputTypeSystem)); err != nil {
		return nil, err
	}
	if o.Subtype != "" {
		if err := setJSON(out, "subtype", o.Subtype); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// SummaryOutput is a compacted-conversation summary entry.
type SummaryOutput struct {
	Summary  string
	LeafUUID string
	Extra    map[string]json.RawMessage
}

// OutputType returns the data tag.
func (o SummaryOutput) OutputType() OutputType { return OutputTypeSummary }

// MarshalJSON emits the canonical wire form.
func (o SummaryOutput) MarshalJSON() ([]byte, error) {
	out := cloneExtra(o.Extra, 3)
	if err := setJSON(out, "type", string(OutputTypeSummary)); err != nil {
		return nil, err
	}
	if o.Summary != "" {
		if err := setJSON(out, "summary", o.Summary); err != nil {
			return nil, err
		}
	}
	if o.LeafUUID != "" {
		if err := setJSON(out, "leafUuid", o.LeafUUID); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

func decodeOutputData(data json.RawMessage) (OutputData, error) {
	const path = "content.data"
	fields, err := decodeFields(data, path)
	if err != nil {
		return nil, err
	}

	tag, ok, err := takeString(fields, "type", path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, missingField(path, "type")
	}

	switch OutputType(tag) {
	case OutputTypeAssistant:
		env, err := decodeMessageEnvelope(fields, path)
		if err != nil {
			return nil, err
		}
		return AssistantOutput{MessageEnvelope: env}, nil

	case OutputTypeUser:
		env, err := decodeMessageEnvelope(fields, path)
		if err != nil {
			return nil, err
		}
		return UserOutput{MessageEnvelope: env}, nil

	case OutputTypeSystem:
		subtype, _, err := takeString(fields, "subtype", path)
		if err != nil {
			return nil, err
		}
		return SystemOutput{Subtype: subtype, Extra: fields}, nil

	case OutputTypeSummary:
		summary, _, err := takeString(fields, "summary", path)
		if err != nil {
			return nil, err
		}
		leafUUID, _, err := takeString(fields, "leafUuid", path)
		if err != nil {
			return nil, err
		}
		return SummaryOutput{Summary: summary, LeafUUID: leafUUID, Extra: fields}, nil

	default:
		return nil, invalidVariant(path+".type", tag)
	}
}

func decodeMessageEnvelope(fields map[string]json.RawMessage, path string) (MessageEnvelope, error) {
	var env MessageEnvelope

	if msgRaw, ok := fields["message"]; ok {
		delete(fields, "message")
		msg, err := decodeMessageBody(msgRaw, path+".message")
		if err != nil {
			return env, err
		}
		env.Message = msg
	}

	var err error
	if env.UUID, _, err = takeString(fields, "uuid", path); err != nil {
		return env, err
	}
	if env.ParentUUID, _, err = takeString(fields, "parentUuid", path); err != nil {
		return env, err
	}
	if env.ParentToolUseID, _, err = takeString(fields, "parent_tool_use_id", path); err != nil {
		return env, err
	}
	if env.IsSidechain, _, err = takeBool(fields, "isSidechain", path); err != nil {
		return env, err
	}
	if env.IsCompactSummary, _, err = takeBool(fields, "isCompactSummary", path); err != nil {
		return env, err
	}
	if env.IsMeta, _, err = takeBool(fields, "isMeta", path); err != nil {
		return env, err
	}

	env.Extra = fields
	return env, nil
}

// ContentShape records which of the legitimate backend content shapes a
// message body arrived with. Shape differences are tolerated, not fatal.
type ContentShape int

const (
	// ShapeNone means the content field was absent or null.
	ShapeNone ContentShape = iota
	// ShapeString means content was a literal string.
	ShapeString
	// ShapeBlocks means content was an ordered block sequence.
	ShapeBlocks
)

// MessageBody is the inner message of an assistant/user output. Content is
// either a literal string or an ordered sequence of normalized blocks;
// every other message key rides along in Extra.
type MessageBody struct {
	Shape  ContentShape
	Text   string
	Blocks []ContentBlock
	Extra  map[string]json.RawMessage
}

// MarshalJSON emits the canonical wire form, preserving the source shape.
func (m MessageBody) MarshalJSON() ([]byte, error) {
	out := cloneExtra(m.Extra, 1)
	switch m.Shape {
	case ShapeString:
		if err := setJSON(out, "content", m.Text); err != nil {
			return nil, err
		}
	case ShapeBlocks:
		blocks := m.Blocks
		if blocks == nil {
			blocks = []ContentBlock{}
		}
		if err := setJSON(out, "content", blocks); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

func decodeMessageBody(data json.RawMessage, path string) (MessageBody, error) {
	var body MessageBody

	fields, err := decodeFields(data, path)
	if err != nil {
		return body, err
	}

	contentRaw, ok := fields["content"]
	delete(fields, "content")
	body.Extra = fields

	if !ok || isJSONNull(contentRaw) {
		body.Shape = ShapeNone
		return body, nil
	}

	// A literal string is legitimate backend variation, passed through
	// as-is rather than coerced into a block list.
	var asString string
	if err := json.Unmarshal(contentRaw, &asString); err == nil {
		body.Shape = ShapeString
		body.Text = asString
		return body, nil
	}

	blocks, err := decodeBlocks(contentRaw, path+".content")
	if err != nil {
		return body, err
	}
	body.Shape = ShapeBlocks
	body.Blocks = blocks
	return body, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 4 && string(raw) == "null"
}
