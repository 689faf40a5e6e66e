// Package main provides the agentwire CLI for checking and replaying
// normalized agent wire-record logs.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/subterm/agentwire/transcript"
	"github.com/subterm/agentwire/wire"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "agentwire",
	Short:   "Validate and replay agent wire-record logs",
	Version: version,
}

func init() {
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newSchemaCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "agentwire: %v\n", err)
		os.Exit(1)
	}
}

func newCheckCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "check <records.jsonl>",
		Short: "Validate every record in a JSONL file and report issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := checkFile(args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(formatFlag) {
			case "", "table":
				writeIssueTable(cmd.OutOrStdout(), rows)
			case "plain":
				for _, row := range rows {
					fmt.Fprintf(cmd.OutOrStdout(), "line %d\t%s\t%s\t%s\n", row.Line, row.Path, row.Code, row.Message)
				}
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(rows); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported format: %s", formatFlag)
			}

			if len(rows) > 0 {
				return fmt.Errorf("%d invalid record(s)", countLines(rows))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all records valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "table", "Output format: table, plain, json")
	return cmd
}

// issueRow is one validation issue tied to its source line.
type issueRow struct {
	Line    int    `json:"line"`
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func checkFile(path string) ([]issueRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	var rows []issueRow
	line := 0
	scanner := newScanner(file)
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		_, err := wire.DecodeRecord(raw)
		if err == nil {
			continue
		}

		var ve *wire.ValidationError
		if errors.As(err, &ve) {
			for _, issue := range ve.Issues {
				rows = append(rows, issueRow{Line: line, Path: issue.Path, Code: string(issue.Code), Message: issue.Message})
			}
			continue
		}
		rows = append(rows, issueRow{Line: line, Message: err.Error()})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return rows, nil
}

func countLines(rows []issueRow) int {
	seen := map[int]struct{}{}
	for _, row := range rows {
		seen[row.Line] = struct{}{}
	}
	return len(seen)
}

func writeIssueTable(w io.Writer, rows []issueRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Line", "Path", "Code", "Message"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, WidthMax: 80},
	})

	for _, row := range rows {
		tw.AppendRow(table.Row{row.Line, row.Path, row.Code, row.Message})
	}
	if len(rows) == 0 {
		tw.AppendRow(table.Row{"-", "-", "-", "(no issues)"})
	}
	_ = tw.Render()
}

func newViewCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "view <records.jsonl>",
		Short: "Replay a record log as a rendered transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open records file: %w", err)
			}
			defer file.Close() //nolint:errcheck

			color := !noColor && isatty.IsTerminal(os.Stdout.Fd())
			return renderTranscript(cmd.OutOrStdout(), file, color)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors")
	return cmd
}

func renderTranscript(w io.Writer, r io.Reader, color bool) error {
	flattener := transcript.NewFlattener(nil)
	var messages []*transcript.Message

	line := 0
	scanner := newScanner(r)
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		rec, err := wire.DecodeRecord(raw)
		if err != nil {
			fmt.Fprintln(w, paint(color, text.FgRed, fmt.Sprintf("[line %d] unparsed: %v", line, err)))
			continue
		}

		id := fmt.Sprintf("L%d", line)
		messages = append(messages, flattener.Flatten(id, nil, recordTime(rec), rec)...)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan records: %w", err)
	}

	for _, msg := range messages {
		printMessage(w, msg, color, 0)
	}
	return nil
}

func printMessage(w io.Writer, msg *transcript.Message, color bool, depth int) {
	indent := strings.Repeat("  ", depth)

	switch msg.Kind {
	case transcript.KindUserText:
		fmt.Fprintf(w, "%s%s %s\n", indent, paint(color, text.FgCyan, "user>"), msg.Text)
	case transcript.KindAgentText:
		label := "agent>"
		if msg.Thinking {
			label = "agent~"
		}
		fmt.Fprintf(w, "%s%s %s\n", indent, paint(color, text.FgGreen, label), msg.Text)
	case transcript.KindToolCall:
		tc := msg.ToolCall
		state := string(tc.State)
		switch tc.State {
		case transcript.StateError:
			state = paint(color, text.FgRed, state)
		case transcript.StateCompleted:
			state = paint(color, text.FgGreen, state)
		default:
			state = paint(color, text.FgYellow, state)
		}
		fmt.Fprintf(w, "%s%s %s [%s] %s\n", indent, paint(color, text.FgMagenta, "tool>"), tc.Name, state, compactJSON(tc.Input))
		if tc.Result != nil {
			fmt.Fprintf(w, "%s      -> %s\n", indent, compactJSON(tc.Result))
		}
		for _, child := range msg.Children {
			printMessage(w, child, color, depth+1)
		}
	case transcript.KindAgentEvent:
		fmt.Fprintf(w, "%s%s %s\n", indent, paint(color, text.FgYellow, "event>"), compactJSON(msg.Event))
	}
}

func paint(color bool, c text.Color, s string) string {
	if !color {
		return s
	}
	return c.Sprint(s)
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	const max = 120
	s := buf.String()
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// recordTime recovers a timestamp carried on the envelope or the output
// payload, falling back to zero when absent.
func recordTime(rec *wire.RawRecord) time.Time {
	candidates := []json.RawMessage{rec.Extra["timestamp"], rec.Extra["createdAt"]}
	if out, ok := rec.Content.(wire.OutputContent); ok {
		switch d := out.Data.(type) {
		case wire.AssistantOutput:
			candidates = append(candidates, d.Extra["timestamp"])
		case wire.UserOutput:
			candidates = append(candidates, d.Extra["timestamp"])
		}
	}

	for _, raw := range candidates {
		if raw == nil {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the canonical wire-shape JSON schemas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schemas, err := wire.CanonicalSchemas()
			if err != nil {
				return err
			}

			names := make([]string, 0, len(schemas))
			for name := range schemas {
				names = append(names, name)
			}
			sort.Strings(names)

			out := make(map[string]json.RawMessage, len(schemas))
			for _, name := range names {
				out[name] = schemas[name]
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// Allow large payloads
	const maxCapacity = 8 * 1024 * 1024
	scanner.Buffer(make([]byte, 1024), maxCapacity)
	return scanner
}
