package wire

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// The codex path carries Codex/Gemini-native payloads. It is validated by
// its own declarative schema and is deliberately NOT unified with the
// output-path rename table: hyphenated types here are canonical for these
// backends and must survive verbatim.
const codexPayloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": { "type": "string" },
    "callId": { "type": "string" },
    "name": { "type": "string" },
    "input": {},
    "output": {},
    "content": {},
    "text": { "type": "string" }
  },
  "allOf": [
    {
      "if": { "properties": { "type": { "const": "tool-call" } } },
      "then": { "required": ["callId"] }
    },
    {
      "if": { "properties": { "type": { "const": "tool-call-result" } } },
      "then": { "required": ["callId"] }
    }
  ]
}`

// codexPayloadTypes is the accepted vocabulary for codex payloads: the
// hyphenated tool pair plus the Codex CLI response-item and event-msg kinds.
var codexPayloadTypes = map[string]struct{}{
	"message":                 {},
	"reasoning":               {},
	"tool-call":               {},
	"tool-call-result":        {},
	"function_call":           {},
	"function_call_output":    {},
	"custom_tool_call":        {},
	"custom_tool_call_output": {},
	"token_count":             {},
	"agent_message":           {},
	"user_message":            {},
	"turn_aborted":            {},
	"error":                   {},
}

var (
	codexSchemaOnce sync.Once
	codexSchema     *jsonschema.Schema
	codexSchemaErr  error
)

func compiledCodexSchema() (*jsonschema.Schema, error) {
	codexSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		codexSchema, codexSchemaErr = compiler.Compile([]byte(codexPayloadSchema))
		if codexSchemaErr != nil {
			codexSchemaErr = fmt.Errorf("compile codex schema: %w", codexSchemaErr)
		}
	})
	return codexSchema, codexSchemaErr
}

// ValidateCodexPayload checks a codex-path payload against the codex
// sub-schema. The payload itself is never rewritten; callers keep the
// original bytes on success.
func ValidateCodexPayload(data json.RawMessage) error {
	const path = "content.data"
	if len(data) == 0 {
		return missingField("content", "data")
	}

	fields, err := decodeFields(data, path)
	if err != nil {
		return err
	}

	tag, ok, err := takeString(fields, "type", path)
	if err != nil {
		return err
	}
	if !ok {
		return missingField(path, "type")
	}
	if _, known := codexPayloadTypes[tag]; !known {
		return invalidVariant(path+".type", tag)
	}
	if tag == legacyTagToolCall || tag == legacyTagToolCallResult {
		if _, hasCallID := fields["callId"]; !hasCallID {
			return missingField(path, "callId")
		}
	}

	schema, err := compiledCodexSchema()
	if err != nil {
		return err
	}
	result := schema.ValidateJSON(data)
	if !result.IsValid() {
		return &ValidationError{Issues: []Issue{{
			Path:    path,
			Code:    IssueMalformedShape,
			Message: fmt.Sprintf("schema validation failed: %v", result.Errors),
		}}}
	}
	return nil
}
