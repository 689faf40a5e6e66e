package wire

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Producer-facing descriptions of the canonical wire shapes. These are the
// post-normalization forms: underscore tags only, is_error always present.
// Legacy hyphenated producers are accepted on input but are not part of the
// published contract.

type canonicalTextBlock struct {
	Type string `json:"type" jsonschema:"required,enum=text"`
	Text string `json:"text" jsonschema:"required"`
}

type canonicalThinkingBlock struct {
	Type     string `json:"type" jsonschema:"required,enum=thinking"`
	Thinking string `json:"thinking" jsonschema:"required"`
}

type canonicalToolUseBlock struct {
	Type  string      `json:"type" jsonschema:"required,enum=tool_use"`
	ID    string      `json:"id" jsonschema:"required,description=Correlation id matched by tool_result.tool_use_id"`
	Name  string      `json:"name" jsonschema:"required"`
	Input interface{} `json:"input,omitempty"`
}

type canonicalToolResultBlock struct {
	Type      string      `json:"type" jsonschema:"required,enum=tool_result"`
	ToolUseID string      `json:"tool_use_id" jsonschema:"required"`
	Content   interface{} `json:"content,omitempty"`
	IsError   bool        `json:"is_error" jsonschema:"required"`
}

type canonicalEnvelope struct {
	Role    string      `json:"role" jsonschema:"required,enum=user,enum=agent"`
	Content interface{} `json:"content" jsonschema:"required,description=Discriminated by type: text | output | codex | event"`
	Meta    interface{} `json:"meta,omitempty"`
}

// CanonicalSchemas returns reflected JSON Schemas for the canonical wire
// shapes, keyed by a stable name. Producers can validate their output
// against these before shipping records.
func CanonicalSchemas() (map[string]json.RawMessage, error) {
	shapes := map[string]interface{}{
		"record":      canonicalEnvelope{},
		"text":        canonicalTextBlock{},
		"thinking":    canonicalThinkingBlock{},
		"tool_use":    canonicalToolUseBlock{},
		"tool_result": canonicalToolResultBlock{},
	}

	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	out := make(map[string]json.RawMessage, len(shapes))
	for name, shape := range shapes {
		schema := reflector.Reflect(shape)
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("reflect schema %s: %w", name, err)
		}
		out[name] = raw
	}
	return out, nil
}
