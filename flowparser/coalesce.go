package flowparser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"cdr.dev/slog"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/lib/log"
)

// XMLParseError is a diagnostic covering one or more raw errors with the same message
// that form a contiguous run of columns or lines.
type XMLParseError struct {
	StartLine   int    `json:"startLine"`
	StartColumn int    `json:"startColumn"`
	EndLine     int    `json:"endLine"`
	EndColumn   int    `json:"endColumn"`
	Message     string `json:"message"`
}

func (e XMLParseError) Range() flowast.Range {
	return flowast.Span(e.StartLine, e.StartColumn, e.EndLine, e.EndColumn)
}

func (e XMLParseError) Error() string {
	return fmt.Sprintf("%d:%d-%d:%d: %s", e.StartLine, e.StartColumn, e.EndLine, e.EndColumn, e.Message)
}

// RawError is a single line:column: message diagnostic.
type RawError struct {
	Line    int
	Column  int
	Message string
}

var rawErrorRegex = regexp.MustCompile(`^([0-9]+):([0-9]+):\s(?s)(.+)$`)

// ParseRawError splits s of the form line:column: message.
func ParseRawError(s string) (RawError, error) {
	m := rawErrorRegex.FindStringSubmatch(s)
	if m == nil {
		return RawError{}, fmt.Errorf("malformed parse error %q: expected line:column: message", s)
	}
	line, err := strconv.Atoi(m[1])
	if err != nil {
		return RawError{}, fmt.Errorf("malformed parse error %q: %w", s, err)
	}
	column, err := strconv.Atoi(m[2])
	if err != nil {
		return RawError{}, fmt.Errorf("malformed parse error %q: %w", s, err)
	}
	return RawError{
		Line:    line,
		Column:  column,
		Message: m[3],
	}, nil
}

// Coalesce merges raw errors into one XMLParseError per run of identical messages.
//
// A run continues while each error is either the next column on the same line or the
// first column of the next line. Raw errors that are not of the line:column: message form
// are skipped.
func Coalesce(ctx context.Context, raw []string) []XMLParseError {
	var coalesced []XMLParseError
	var cur *XMLParseError
	flush := func() {
		if cur != nil {
			coalesced = append(coalesced, *cur)
			cur = nil
		}
	}

	for _, s := range raw {
		e, err := ParseRawError(s)
		if err != nil {
			log.Warn(ctx, "skipping parse error", slog.Error(err))
			continue
		}

		switch {
		case cur == nil:
		case e.Message != cur.Message:
			flush()
		case e.Line == cur.EndLine && e.Column == cur.EndColumn+1:
			cur.EndColumn = e.Column
			continue
		case e.Line == cur.EndLine+1 && e.Column == 1:
			// Only the line grows, EndColumn keeps the column of the first line.
			cur.EndLine = e.Line
			continue
		default:
			flush()
		}
		cur = &XMLParseError{
			StartLine:   e.Line,
			StartColumn: e.Column,
			EndLine:     e.Line,
			EndColumn:   e.Column,
			Message:     e.Message,
		}
	}
	flush()
	return coalesced
}

// Errors returns the coalesced form of err when it is a *ParseError.
func Errors(ctx context.Context, err error) []XMLParseError {
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Empty() {
		return nil
	}
	return Coalesce(ctx, pe.Raw())
}
