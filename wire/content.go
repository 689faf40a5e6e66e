package wire

import (
	"encoding/json"
	"fmt"
)

// BlockType identifies the canonical kind of a content block.
type BlockType string

const (
	BlockTypeText       BlockType = "text"
	BlockTypeThinking   BlockType = "thinking"
	BlockTypeToolUse    BlockType = "tool_use"
	BlockTypeToolResult BlockType = "tool_result"
)

// Legacy hyphenated tags accepted on the output path and renamed to the
// canonical underscore form. The codex path never applies this mapping.
const (
	legacyTagToolCall       = "tool-call"
	legacyTagToolCallResult = "tool-call-result"
)

// ContentBlock is one semantic unit inside an assistant/user message.
// Every variant carries an Extra bag holding fields the schema does not
// model, preserved verbatim through normalization.
type ContentBlock interface {
	BlockType() BlockType
}

// TextBlock is a plain text segment.
type TextBlock struct {
	Text  string
	Extra map[string]json.RawMessage
}

// BlockType returns the canonical block tag.
func (b TextBlock) BlockType() BlockType { return BlockTypeText }

// MarshalJSON emits the canonical wire form.
func (b TextBlock) MarshalJSON() ([]byte, error) {
	return marshalBlock(BlockTypeText, b.Extra, func(out map[string]json.RawMessage) error {
		return setJSON(out, "text", b.Text)
	})
}

// ThinkingBlock is an extended-reasoning segment.
type ThinkingBlock struct {
	Thinking string
	Extra    map[string]json.RawMessage
}

// BlockType returns the canonical block tag.
func (b ThinkingBlock) BlockType() BlockType { return BlockTypeThinking }

// MarshalJSON emits the canonical wire form.
func (b ThinkingBlock) MarshalJSON() ([]byte, error) {
	return marshalBlock(BlockTypeThinking, b.Extra, func(out map[string]json.RawMessage) error {
		return setJSON(out, "thinking", b.Thinking)
	})
}

// ToolUseBlock is a tool invocation. Legacy "tool-call" blocks decode into
// this type with ID taken from callId.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
	Extra map[string]json.RawMessage
}

// BlockType returns the canonical block tag.
func (b ToolUseBlock) BlockType() BlockType { return BlockTypeToolUse }

// MarshalJSON emits the canonical wire form.
func (b ToolUseBlock) MarshalJSON() ([]byte, error) {
	return marshalBlock(BlockTypeToolUse, b.Extra, func(out map[string]json.RawMessage) error {
		if err := setJSON(out, "id", b.ID); err != nil {
			return err
		}
		if err := setJSON(out, "name", b.Name); err != nil {
			return err
		}
		if b.Input != nil {
			out["input"] = b.Input
		}
		return nil
	})
}

// ToolResultBlock is the outcome of a tool invocation, correlated back to
// its ToolUseBlock by ToolUseID. Legacy "tool-call-result" blocks decode
// into this type with ToolUseID taken from callId and Content preferring
// the legacy output field.
type ToolResultBlock struct {
	ToolUseID string
	Content   json.RawMessage
	IsError   bool
	Extra     map[string]json.RawMessage
}

// BlockType returns the canonical block tag.
func (b ToolResultBlock) BlockType() BlockType { return BlockTypeToolResult }

// MarshalJSON emits the canonical wire form. is_error is always present in
// the canonical form, so a defaulted false survives re-validation.
func (b ToolResultBlock) MarshalJSON() ([]byte, error) {
	return marshalBlock(BlockTypeToolResult, b.Extra, func(out map[string]json.RawMessage) error {
		if err := setJSON(out, "tool_use_id", b.ToolUseID); err != nil {
			return err
		}
		if b.Content != nil {
			out["content"] = b.Content
		}
		return setJSON(out, "is_error", b.IsError)
	})
}

// DecodeContentBlock validates one block-shaped value and returns its
// canonical form. Legacy hyphenated tags are renamed per the mapping table;
// canonical tags pass through unchanged apart from defaulting is_error.
// Unrecognized tags fail with an invalid-variant issue. The function is
// pure: the input bytes are never modified.
func DecodeContentBlock(data json.RawMessage, path string) (ContentBlock, error) {
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

	switch tag {
	case string(BlockTypeText):
		text, _, err := takeString(fields, "text", path)
		if err != nil {
			return nil, err
		}
		return TextBlock{Text: text, Extra: fields}, nil

	case string(BlockTypeThinking):
		thinking, _, err := takeString(fields, "thinking", path)
		if err != nil {
			return nil, err
		}
		return ThinkingBlock{Thinking: thinking, Extra: fields}, nil

	case string(BlockTypeToolUse):
		id, ok, err := takeString(fields, "id", path)
		if err != nil {
			return nil, err
		}
		if !ok || id == "" {
			return nil, missingField(path, "id")
		}
		return decodeToolUse(fields, id, path)

	case legacyTagToolCall:
		// id <- callId (preferred) else id; absence of both is a hard
		// failure, never a default.
		id, haveCallID, err := takeString(fields, "callId", path)
		if err != nil {
			return nil, err
		}
		if !haveCallID || id == "" {
			id, haveCallID, err = takeString(fields, "id", path)
			if err != nil {
				return nil, err
			}
			if !haveCallID || id == "" {
				return nil, missingField(path, "callId")
			}
		}
		return decodeToolUse(fields, id, path)

	case string(BlockTypeToolResult):
		toolUseID, ok, err := takeString(fields, "tool_use_id", path)
		if err != nil {
			return nil, err
		}
		if !ok || toolUseID == "" {
			return nil, missingField(path, "tool_use_id")
		}
		return decodeToolResult(fields, toolUseID, fields["content"], path)

	case legacyTagToolCallResult:
		toolUseID, ok, err := takeString(fields, "callId", path)
		if err != nil {
			return nil, err
		}
		if !ok || toolUseID == "" {
			return nil, missingField(path, "callId")
		}
		// content <- output when present, else content.
		content := fields["content"]
		if output, ok := fields["output"]; ok {
			content = output
			delete(fields, "output")
		}
		return decodeToolResult(fields, toolUseID, content, path)

	default:
		return nil, invalidVariant(path, tag)
	}
}

func decodeToolUse(fields map[string]json.RawMessage, id, path string) (ContentBlock, error) {
	name, _, err := takeString(fields, "name", path)
	if err != nil {
		return nil, err
	}
	input := fields["input"]
	delete(fields, "input")
	return ToolUseBlock{ID: id, Name: name, Input: input, Extra: fields}, nil
}

func decodeToolResult(fields map[string]json.RawMessage, toolUseID string, content json.RawMessage, path string) (ContentBlock, error) {
	delete(fields, "content")
	isError, _, err := takeBool(fields, "is_error", path)
	if err != nil {
		return nil, err
	}
	return ToolResultBlock{
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
		Extra:     fields,
	}, nil
}

// decodeBlocks validates an ordered block sequence, collecting every issue
// rather than stopping at the first bad block.
func decodeBlocks(data json.RawMessage, path string) ([]ContentBlock, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, malformedShape(path, err)
	}

	blocks := make([]ContentBlock, 0, len(raws))
	var issues []Issue
	for i, raw := range raws {
		block, err := DecodeContentBlock(raw, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			issues = appendIssues(issues, err)
			continue
		}
		blocks = append(blocks, block)
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return blocks, nil
}

func decodeFields(data json.RawMessage, path string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, malformedShape(path, err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

// takeString pops a string field from the bag. A present-but-non-string
// value is a malformed shape.
func takeString(fields map[string]json.RawMessage, key, path string) (string, bool, error) {
	raw, ok := fields[key]
	if !ok {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, malformedShape(path+"."+key, err)
	}
	delete(fields, key)
	return s, true, nil
}

// takeBool pops a bool field from the bag, defaulting to false when absent.
func takeBool(fields map[string]json.RawMessage, key, path string) (bool, bool, error) {
	raw, ok := fields[key]
	if !ok {
		return false, false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false, malformedShape(path+"."+key, err)
	}
	delete(fields, key)
	return b, true, nil
}

// marshalBlock assembles the canonical wire object: the type tag, the
// variant's named fields, then the untouched extra fields.
func marshalBlock(tag BlockType, extra map[string]json.RawMessage, fill func(map[string]json.RawMessage) error) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(extra)+4)
	for k, v := range extra {
		out[k] = v
	}
	if err := fill(out); err != nil {
		return nil, err
	}
	if err := setJSON(out, "type", string(tag)); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func setJSON(out map[string]json.RawMessage, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	out[key] = raw
	return nil
}
