package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subterm/agentwire/wire"
)

var flattenBase = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func decode(t *testing.T, raw string) *wire.RawRecord {
	t.Helper()
	rec, err := wire.DecodeRecord([]byte(raw))
	require.NoError(t, err)
	return rec
}

func outputRecord(blocks string) string {
	return `{"role":"agent","content":{"type":"output","data":{"type":"assistant","message":{"content":[` + blocks + `]}}}}`
}

func TestFlattenUserText(t *testing.T) {
	f := NewFlattener(nil)
	local := "local-1"
	msgs := f.Flatten("m1", &local, flattenBase, decode(t, `{"role":"user","content":{"type":"text","text":"run the tests"}}`))

	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
	require.NotNil(t, msgs[0].LocalID)
	assert.Equal(t, "local-1", *msgs[0].LocalID)
	assert.Equal(t, KindUserText, msgs[0].Kind)
	assert.Equal(t, "run the tests", msgs[0].Text)
	assert.Equal(t, flattenBase, msgs[0].CreatedAt)
}

func TestFlattenAssistantBlocksAndDerivedIDs(t *testing.T) {
	f := NewFlattener(nil)
	rec := decode(t, outputRecord(
		`{"type":"thinking","thinking":"planning"},`+
			`{"type":"text","text":"on it"},`+
			`{"type":"tool_use","id":"c1","name":"Bash","input":{"command":"go test"}}`))

	msgs := f.Flatten("m2", nil, flattenBase, rec)
	require.Len(t, msgs, 3)

	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, "m2:1", msgs[1].ID)
	assert.Equal(t, "m2:2", msgs[2].ID)

	assert.Equal(t, KindAgentText, msgs[0].Kind)
	assert.True(t, msgs[0].Thinking)
	assert.Equal(t, "planning", msgs[0].Text)

	assert.Equal(t, KindAgentText, msgs[1].Kind)
	assert.False(t, msgs[1].Thinking)

	require.Equal(t, KindToolCall, msgs[2].Kind)
	require.NotNil(t, msgs[2].ToolCall)
	assert.Equal(t, "c1", msgs[2].ToolCall.ID)
	assert.Equal(t, "Bash", msgs[2].ToolCall.Name)
	assert.Equal(t, StateRunning, msgs[2].ToolCall.State)
	assert.JSONEq(t, `{"command":"go test"}`, string(msgs[2].ToolCall.Input))
}

func TestFlattenToolResultTransitionsInPlace(t *testing.T) {
	f := NewFlattener(nil)
	msgs := f.Flatten("m3", nil, flattenBase,
		decode(t, outputRecord(`{"type":"tool_use","id":"c1","name":"Bash","input":{"command":"ls"}}`)))
	require.Len(t, msgs, 1)
	call := msgs[0].ToolCall

	resultAt := flattenBase.Add(2 * time.Second)
	more := f.Flatten("m4", nil, resultAt, decode(t,
		`{"role":"agent","content":{"type":"output","data":{"type":"user","message":{"content":[`+
			`{"type":"tool_result","tool_use_id":"c1","content":"file.go","permissions":{"mode":"allow"}}`+
			`]}}}}`))

	// The result emits no message of its own.
	assert.Empty(t, more)
	assert.Equal(t, StateCompleted, call.State)
	require.NotNil(t, call.CompletedAt)
	assert.Equal(t, resultAt, *call.CompletedAt)
	assert.JSONEq(t, `"file.go"`, string(call.Result))
	assert.JSONEq(t, `{"mode":"allow"}`, string(call.Permission))
}

func TestFlattenErrorResult(t *testing.T) {
	f := NewFlattener(nil)
	msgs := f.Flatten("m5", nil, flattenBase,
		decode(t, outputRecord(`{"type":"tool_use","id":"c2","name":"Bash","input":{}}`)))
	require.Len(t, msgs, 1)

	f.Flatten("m6", nil, flattenBase, decode(t,
		outputRecord(`{"type":"tool_result","tool_use_id":"c2","content":"exit 1","is_error":true}`)))
	assert.Equal(t, StateError, msgs[0].ToolCall.State)
}

func TestFlattenLegacyToolPairEndToEnd(t *testing.T) {
	f := NewFlattener(nil)
	msgs := f.Flatten("m7", nil, flattenBase, decode(t,
		outputRecord(`{"type":"tool-call","callId":"legacy-1","name":"Read","input":{"path":"main.go"}}`)))
	require.Len(t, msgs, 1)
	assert.Equal(t, "legacy-1", msgs[0].ToolCall.ID)

	f.Flatten("m8", nil, flattenBase, decode(t,
		outputRecord(`{"type":"tool-call-result","callId":"legacy-1","output":"package main"}`)))
	assert.Equal(t, StateCompleted, msgs[0].ToolCall.State)
	assert.JSONEq(t, `"package main"`, string(msgs[0].ToolCall.Result))
}

func TestFlattenOrphanResultDropped(t *testing.T) {
	f := NewFlattener(nil)
	msgs := f.Flatten("m9", nil, flattenBase,
		decode(t, outputRecord(`{"type":"tool_result","tool_use_id":"never-seen","content":"?"}`)))
	assert.Empty(t, msgs)
}

func TestFlattenNestsUnderParentToolCall(t *testing.T) {
	f := NewFlattener(nil)
	parents := f.Flatten("m10", nil, flattenBase,
		decode(t, outputRecord(`{"type":"tool_use","id":"task-1","name":"Task","input":{}}`)))
	require.Len(t, parents, 1)

	nested := f.Flatten("m11", nil, flattenBase, decode(t,
		`{"role":"agent","content":{"type":"output","data":{"type":"assistant","parent_tool_use_id":"task-1","message":{"content":[{"type":"text","text":"subagent says hi"}]}}}}`))

	assert.Empty(t, nested)
	require.Len(t, parents[0].Children, 1)
	assert.Equal(t, "subagent says hi", parents[0].Children[0].Text)
	assert.Equal(t, "task-1", parents[0].Children[0].Meta.ParentToolUseID)
}

func TestFlattenStringContent(t *testing.T) {
	f := NewFlattener(nil)
	msgs := f.Flatten("m12", nil, flattenBase, decode(t,
		`{"role":"agent","content":{"type":"output","data":{"type":"assistant","message":{"content":"just a string"}}}}`))
	require.Len(t, msgs, 1)
	assert.Equal(t, KindAgentText, msgs[0].Kind)
	assert.Equal(t, "just a string", msgs[0].Text)
}

func TestFlattenMetaPropagation(t *testing.T) {
	f := NewFlattener(nil)
	msgs := f.Flatten("m13", nil, flattenBase, decode(t,
		`{"role":"agent","content":{"type":"output","data":{"type":"assistant","uuid":"u1","parentUuid":"u0","isSidechain":true,"isMeta":true,"sessionId":"s1","message":{"content":[{"type":"text","text":"x"}]}}}}`))

	require.Len(t, msgs, 1)
	meta := msgs[0].Meta
	require.NotNil(t, meta)
	assert.Equal(t, "u1", meta.UUID)
	assert.Equal(t, "u0", meta.ParentUUID)
	assert.True(t, meta.Sidechain)
	assert.True(t, meta.MetaRecord)
	assert.Contains(t, meta.Extra, "sessionId")
}

func TestFlattenEvent(t *testing.T) {
	f := NewFlattener(nil)
	msgs := f.Flatten("m14", nil, flattenBase,
		decode(t, `{"role":"agent","content":{"type":"event","data":{"type":"switch","mode":"remote"}}}`))
	require.Len(t, msgs, 1)
	assert.Equal(t, KindAgentEvent, msgs[0].Kind)
	assert.JSONEq(t, `{"type":"switch","mode":"remote"}`, string(msgs[0].Event))
}

func TestFlattenSystemAndSummaryProduceNothing(t *testing.T) {
	f := NewFlattener(nil)
	assert.Empty(t, f.Flatten("m15", nil, flattenBase,
		decode(t, `{"role":"agent","content":{"type":"output","data":{"type":"system","subtype":"init"}}}`)))
	assert.Empty(t, f.Flatten("m16", nil, flattenBase,
		decode(t, `{"role":"agent","content":{"type":"output","data":{"type":"summary","summary":"compacted"}}}`)))
}

func TestFlattenCodexSkipped(t *testing.T) {
	f := NewFlattener(nil)
	assert.Empty(t, f.Flatten("m17", nil, flattenBase,
		decode(t, `{"role":"agent","content":{"type":"codex","data":{"type":"reasoning","text":"hmm"}}}`)))
}
