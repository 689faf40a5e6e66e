package wire

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func mustDecodeBlock(t *testing.T, raw string) ContentBlock {
	t.Helper()
	block, err := DecodeContentBlock(json.RawMessage(raw), "block")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return block
}

func TestDecodeContentBlock_Text(t *testing.T) {
	block := mustDecodeBlock(t, `{"type":"text","text":"hello"}`)
	tb, ok := block.(TextBlock)
	if !ok {
		t.Fatalf("expected TextBlock, got %T", block)
	}
	if tb.Text != "hello" {
		t.Errorf("expected text 'hello', got %q", tb.Text)
	}
	if tb.BlockType() != BlockTypeText {
		t.Errorf("expected BlockType text, got %s", tb.BlockType())
	}
}

func TestDecodeContentBlock_Thinking(t *testing.T) {
	block := mustDecodeBlock(t, `{"type":"thinking","thinking":"hmm","signature":"sig_1"}`)
	tb, ok := block.(ThinkingBlock)
	if !ok {
		t.Fatalf("expected ThinkingBlock, got %T", block)
	}
	if tb.Thinking != "hmm" {
		t.Errorf("expected thinking 'hmm', got %q", tb.Thinking)
	}
	if string(tb.Extra["signature"]) != `"sig_1"` {
		t.Errorf("signature not preserved: %s", tb.Extra["signature"])
	}
}

func TestDecodeContentBlock_LegacyEquivalence(t *testing.T) {
	legacy := mustDecodeBlock(t, `{"type":"tool-call","callId":"c1","name":"Bash","input":{"command":"ls"}}`)
	canonical := mustDecodeBlock(t, `{"type":"tool_use","id":"c1","name":"Bash","input":{"command":"ls"}}`)

	if !reflect.DeepEqual(legacy, canonical) {
		t.Errorf("legacy and canonical forms differ:\n%#v\n%#v", legacy, canonical)
	}
}

func TestDecodeContentBlock_LegacyToolCallFallsBackToID(t *testing.T) {
	block := mustDecodeBlock(t, `{"type":"tool-call","id":"c9","name":"Read","input":{}}`)
	tu, ok := block.(ToolUseBlock)
	if !ok {
		t.Fatalf("expected ToolUseBlock, got %T", block)
	}
	if tu.ID != "c9" {
		t.Errorf("expected id 'c9', got %q", tu.ID)
	}
}

func TestDecodeContentBlock_LegacyToolCallPrefersCallID(t *testing.T) {
	block := mustDecodeBlock(t, `{"type":"tool-call","callId":"call_1","id":"other","name":"Bash","input":{}}`)
	tu := block.(ToolUseBlock)
	if tu.ID != "call_1" {
		t.Errorf("expected callId to win, got %q", tu.ID)
	}
}

func TestDecodeContentBlock_MissingIdentityIsHardFailure(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"legacy tool-call without ids", `{"type":"tool-call","name":"Bash","input":{}}`},
		{"legacy result without callId", `{"type":"tool-call-result","output":"done"}`},
		{"canonical tool_use without id", `{"type":"tool_use","name":"Bash","input":{}}`},
		{"canonical result without tool_use_id", `{"type":"tool_result","content":"x"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeContentBlock(json.RawMessage(tc.raw), "block")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if !ve.HasCode(IssueMissingField) {
				t.Errorf("expected missing_field issue, got %v", ve.Issues)
			}
		})
	}
}

func TestDecodeContentBlock_OutputPrecedence(t *testing.T) {
	block := mustDecodeBlock(t, `{"type":"tool-call-result","callId":"c1","output":"from output","content":"from content"}`)
	tr, ok := block.(ToolResultBlock)
	if !ok {
		t.Fatalf("expected ToolResultBlock, got %T", block)
	}
	if string(tr.Content) != `"from output"` {
		t.Errorf("expected output to win, got %s", tr.Content)
	}
}

func TestDecodeContentBlock_DefaultIsError(t *testing.T) {
	block := mustDecodeBlock(t, `{"type":"tool-call-result","callId":"c1","output":"ok"}`)
	tr := block.(ToolResultBlock)
	if tr.IsError {
		t.Error("expected is_error to default to false")
	}

	block = mustDecodeBlock(t, `{"type":"tool_result","tool_use_id":"c1","content":"boom","is_error":true}`)
	tr = block.(ToolResultBlock)
	if !tr.IsError {
		t.Error("expected is_error true to be kept")
	}
}

func TestDecodeContentBlock_UnknownFieldPreservation(t *testing.T) {
	raw := `{"type":"tool-call","callId":"c1","name":"Bash","input":{"command":"ls"},"metadata":{"nested":{"k":1}},"permissions":{"mode":"ask"}}`
	block := mustDecodeBlock(t, raw)
	tu := block.(ToolUseBlock)

	if string(tu.Extra["metadata"]) != `{"nested":{"k":1}}` {
		t.Errorf("metadata not preserved verbatim: %s", tu.Extra["metadata"])
	}
	if string(tu.Extra["permissions"]) != `{"mode":"ask"}` {
		t.Errorf("permissions not preserved: %s", tu.Extra["permissions"])
	}

	// The extras survive a marshal round trip after the rename.
	out, err := json.Marshal(block)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again := mustDecodeBlock(t, string(out))
	if !reflect.DeepEqual(block, again) {
		t.Errorf("round trip changed block:\n%#v\n%#v", block, again)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if string(fields["type"]) != `"tool_use"` {
		t.Errorf("expected canonical tag, got %s", fields["type"])
	}
	if _, ok := fields["callId"]; ok {
		t.Error("legacy callId should not survive the rename")
	}
}

func TestDecodeContentBlock_InvalidVariant(t *testing.T) {
	_, err := DecodeContentBlock(json.RawMessage(`{"type":"bogus"}`), "block")
	if err == nil {
		t.Fatal("expected error for unknown block type")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if !ve.HasCode(IssueInvalidVariant) {
		t.Errorf("expected invalid_variant issue, got %v", ve.Issues)
	}
}

func TestDecodeContentBlock_Idempotent(t *testing.T) {
	inputs := []string{
		`{"type":"text","text":"hi","cache_control":{"type":"ephemeral"}}`,
		`{"type":"tool_use","id":"c1","name":"Bash","input":{"command":"ls"}}`,
		`{"type":"tool_result","tool_use_id":"c1","content":[{"type":"text","text":"out"}],"is_error":false}`,
		`{"type":"thinking","thinking":"...","signature":"s"}`,
	}

	for _, input := range inputs {
		first := mustDecodeBlock(t, input)
		out1, err := json.Marshal(first)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		second := mustDecodeBlock(t, string(out1))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("revalidation changed block for %s:\n%#v\n%#v", input, first, second)
		}
		out2, err := json.Marshal(second)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(out1) != string(out2) {
			t.Errorf("marshal not stable for %s:\n%s\n%s", input, out1, out2)
		}
	}
}

func TestDecodeBlocks_CollectsAllIssues(t *testing.T) {
	raw := `[{"type":"bogus"},{"type":"tool-call","name":"Bash"}]`
	_, err := decodeBlocks(json.RawMessage(raw), "content")
	if err == nil {
		t.Fatal("expected error")
	}
	ve := err.(*ValidationError)
	if len(ve.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %v", len(ve.Issues), ve.Issues)
	}
	if ve.Issues[0].Path != "content[0]" {
		t.Errorf("unexpected path %q", ve.Issues[0].Path)
	}
}
