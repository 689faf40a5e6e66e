package wire

import (
	"fmt"
	"strings"
)

// IssueCode classifies a validation failure.
type IssueCode string

const (
	// IssueInvalidVariant marks an unrecognized "type" tag at any union
	// level. Always fatal to the record; never coerced to a default.
	IssueInvalidVariant IssueCode = "invalid_variant"
	// IssueMissingField marks a required field that is absent, including
	// identity fields needed for tool correlation.
	IssueMissingField IssueCode = "missing_field"
	// IssueMalformedShape marks a field whose JSON shape could not be
	// decoded (wrong scalar type, truncated object).
	IssueMalformedShape IssueCode = "malformed_shape"
)

// Issue describes one validation failure with the path that produced it.
type Issue struct {
	Path    string
	Code    IssueCode
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("%s: %s", i.Code, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Path, i.Code, i.Message)
}

// ValidationError aggregates the issues found while decoding a record.
// Callers can drop, log, or surface a single bad record without aborting
// an entire transcript replay.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasCode reports whether any issue carries the given code.
func (e *ValidationError) HasCode(code IssueCode) bool {
	for _, issue := range e.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func invalidVariant(path, got string) error {
	return &ValidationError{Issues: []Issue{{
		Path:    path,
		Code:    IssueInvalidVariant,
		Message: fmt.Sprintf("no matching variant for type %q", got),
	}}}
}

func missingField(path, field string) error {
	return &ValidationError{Issues: []Issue{{
		Path:    path,
		Code:    IssueMissingField,
		Message: fmt.Sprintf("required field %q is absent", field),
	}}}
}

func malformedShape(path string, cause error) error {
	return &ValidationError{Issues: []Issue{{
		Path:    path,
		Code:    IssueMalformedShape,
		Message: cause.Error(),
	}}}
}

// appendIssues merges the issues of err (which must be a *ValidationError
// or nil) into dst.
func appendIssues(dst []Issue, err error) []Issue {
	if err == nil {
		return dst
	}
	if ve, ok := err.(*ValidationError); ok {
		return append(dst, ve.Issues...)
	}
	return append(dst, Issue{Code: IssueMalformedShape, Message: err.Error()})
}
