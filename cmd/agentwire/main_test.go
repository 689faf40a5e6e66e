package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecords(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestCheckFile(t *testing.T) {
	path := writeRecords(t,
		`{"role":"user","content":{"type":"text","text":"hi"}}`,
		``,
		`{"role":"robot","content":{"type":"text","text":"bad role"}}`,
		`{"role":"agent","content":{"type":"output","data":{"type":"assistant","message":{"content":[{"type":"tool-call","name":"Bash"}]}}}}`,
	)

	rows, err := checkFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 3, rows[0].Line)
	assert.Equal(t, "invalid_variant", rows[0].Code)
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "missing_field", rows[1].Code)
}

func TestRenderTranscript(t *testing.T) {
	input := strings.Join([]string{
		`{"role":"user","content":{"type":"text","text":"list files"}}`,
		`{"role":"agent","content":{"type":"output","data":{"type":"assistant","message":{"content":[{"type":"tool-call","callId":"c1","name":"Bash","input":{"command":"ls"}}]}}}}`,
		`{"role":"agent","content":{"type":"output","data":{"type":"user","message":{"content":[{"type":"tool-call-result","callId":"c1","output":"main.go"}]}}}}`,
		`not json at all`,
	}, "\n")

	var out strings.Builder
	require.NoError(t, renderTranscript(&out, strings.NewReader(input), false))

	got := out.String()
	assert.Contains(t, got, "user> list files")
	assert.Contains(t, got, "tool> Bash [completed]")
	assert.Contains(t, got, `-> "main.go"`)
	assert.Contains(t, got, "[line 4] unparsed:")
}
