package wire

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCanonicalSchemas(t *testing.T) {
	schemas, err := CanonicalSchemas()
	if err != nil {
		t.Fatalf("reflect schemas: %v", err)
	}

	for _, name := range []string{"record", "text", "thinking", "tool_use", "tool_result"} {
		raw, ok := schemas[name]
		if !ok {
			t.Errorf("schema %q missing", name)
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Errorf("schema %q is not valid JSON: %v", name, err)
		}
	}

	// Only canonical underscore tags are published; the legacy hyphenated
	// spellings are an input-side courtesy.
	for _, name := range []string{"tool_use", "tool_result"} {
		if strings.Contains(string(schemas[name]), "tool-call") {
			t.Errorf("schema %q leaks a legacy tag", name)
		}
	}
	if !strings.Contains(string(schemas["tool_result"]), "is_error") {
		t.Error("tool_result schema should require is_error")
	}
}
