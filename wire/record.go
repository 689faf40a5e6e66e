package wire

import (
	"encoding/json"
)

// Role is the top-level author of a raw record.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// ContentType discriminates the RawContent union.
type ContentType string

const (
	ContentTypeText   ContentType = "text"
	ContentTypeOutput ContentType = "output"
	ContentTypeCodex  ContentType = "codex"
	ContentTypeEvent  ContentType = "event"
)

// Content is the payload union of a raw record, selected by content.type.
type Content interface {
	ContentType() ContentType
}

// RawRecord is the outer, backend-agnostic envelope validated from one
// transport event. Immutable once validated.
type RawRecord struct {
	Role    Role
	Content Content
	Meta    json.RawMessage
	Extra   map[string]json.RawMessage
}

// MarshalJSON emits the canonical envelope.
func (r *RawRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+3)
	for k, v := range r.Extra {
		out[k] = v
	}
	if err := setJSON(out, "role", string(r.Role)); err != nil {
		return nil, err
	}
	if err := setJSON(out, "content", r.Content); err != nil {
		return nil, err
	}
	if r.Meta != nil {
		out["meta"] = r.Meta
	}
	return json.Marshal(out)
}

// TextContent is a bare user input string.
type TextContent struct {
	Text  string
	Extra map[string]json.RawMessage
}

// ContentType returns the envelope tag.
func (c TextContent) ContentType() ContentType { return ContentTypeText }

// MarshalJSON emits the canonical wire form.
func (c TextContent) MarshalJSON() ([]byte, error) {
	out := cloneExtra(c.Extra, 2)
	if err := setJSON(out, "type", string(ContentTypeText)); err != nil {
		return nil, err
	}
	if err := setJSON(out, "text", c.Text); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// OutputContent wraps a backend-native message. This is the only path the
// legacy-rename transform runs on.
type OutputContent struct {
	Data  OutputData
	Extra map[string]json.RawMessage
}

// ContentType returns the envelope tag.
func (c OutputContent) ContentType() ContentType { return ContentTypeOutput }

// MarshalJSON emits the canonical wire form.
func (c OutputContent) MarshalJSON() ([]byte, error) {
	out := cloneExtra(c.Extra, 2)
	if err := setJSON(out, "type", string(ContentTypeOutput)); err != nil {
		return nil, err
	}
	if err := setJSON(out, "data", c.Data); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// CodexContent wraps a Codex/Gemini-native payload. The payload is kept
// verbatim: hyphenated types there are terminal, valid values in their own
// right, and never renamed.
type CodexContent struct {
	Data  json.RawMessage
	Extra map[string]json.RawMessage
}

// ContentType returns the envelope tag.
func (c CodexContent) ContentType() ContentType { return ContentTypeCodex }

// MarshalJSON emits the canonical wire form.
func (c CodexContent) MarshalJSON() ([]byte, error) {
	out := cloneExtra(c.Extra, 2)
	if err := setJSON(out, "type", string(ContentTypeCodex)); err != nil {
		return nil, err
	}
	if c.Data != nil {
		out["data"] = c.Data
	}
	return json.Marshal(out)
}

// EventContent is a side-channel control event (mode switch and the like).
// The payload is opaque to the normalizer.
type EventContent struct {
	Data  json.RawMessage
	Extra map[string]json.RawMessage
}

// ContentType returns the envelope tag.
func (c EventContent) ContentType() ContentType { return ContentTypeEvent }

// MarshalJSON emits the canonical wire form.
func (c EventContent) MarshalJSON() ([]byte, error) {
	out := cloneExtra(c.Extra, 2)
	if err := setJSON(out, "type", string(ContentTypeEvent)); err != nil {
		return nil, err
	}
	if c.Data != nil {
		out["data"] = c.Data
	}
	return json.Marshal(out)
}

// DecodeRecord validates an arbitrary structured value as a raw record.
// It either returns the canonical record or a *ValidationError listing
// every issue found, each naming a path and a reason. The function is pure
// and idempotent: decoding the marshaled form of a canonical record yields
// a field-for-field identical value.
func DecodeRecord(data []byte) (*RawRecord, error) {
	fields, err := decodeFields(data, "")
	if err != nil {
		return nil, err
	}

	role, ok, err := takeString(fields, "role", "role")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, missingField("role", "role")
	}
	switch Role(role) {
	case RoleUser, RoleAgent:
	default:
		return nil, invalidVariant("role", role)
	}

	contentRaw, ok := fields["content"]
	if !ok {
		return nil, missingField("content", "content")
	}
	delete(fields, "content")

	content, err := decodeContent(contentRaw)
	if err != nil {
		return nil, err
	}

	meta := fields["meta"]
	delete(fields, "meta")

	return &RawRecord{
		Role:    Role(role),
		Content: content,
		Meta:    meta,
		Extra:   fields,
	}, nil
}

func decodeContent(data json.RawMessage) (Content, error) {
	fields, err := decodeFields(data, "content")
	if err != nil {
		return nil, err
	}

	tag, ok, err := takeString(fields, "type", "content")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, missingField("content", "type")
	}

	switch ContentType(tag) {
	case ContentTypeText:
		text, _, err := takeString(fields, "text", "content")
		if err != nil {
			return nil, err
		}
		return TextContent{Text: text, Extra: fields}, nil

	case ContentTypeOutput:
		dataRaw, ok := fields["data"]
		if !ok {
			return nil, missingField("content", "data")
		}
		delete(fields, "data")
		payload, err := decodeOutputData(dataRaw)
		if err != nil {
			return nil, err
		}
		return OutputContent{Data: payload, Extra: fields}, nil

	case ContentTypeCodex:
		dataRaw := fields["data"]
		delete(fields, "data")
		if err := ValidateCodexPayload(dataRaw); err != nil {
			return nil, err
		}
		return CodexContent{Data: dataRaw, Extra: fields}, nil

	case ContentTypeEvent:
		dataRaw := fields["data"]
		delete(fields, "data")
		return EventContent{Data: dataRaw, Extra: fields}, nil

	default:
		return nil, invalidVariant("content.type", tag)
	}
}

func cloneExtra(extra map[string]json.RawMessage, room int) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(extra)+room)
	for k, v := range extra {
		out[k] = v
	}
	return out
}
