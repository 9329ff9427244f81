package flowast

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"strconv"

	"oss.terrastruct.com/xdefer"
)

// Position is a line:column location in a configuration file.
//
// note: Line and Column are one indexed like in every text editor. Column 0 is accepted
// .     as an alias for the start of the line and compares equal to column 1.
// note: Column counts runes unless the position was advanced byUTF16, in which case it
// .     counts UTF-16 code units for browser consumption.
//
// Positions and ranges travel as text, 3:4 and 3:4-5:1, in JSON as well.
type Position struct {
	Line   int
	Column int
}

var _ fmt.Stringer = Position{}
var _ encoding.TextMarshaler = Position{}
var _ encoding.TextUnmarshaler = &Position{}

// Pos is shorthand for Position{line, column}.
func Pos(line, column int) Position {
	return Position{Line: line, Column: column}
}

// LineStart returns the position at the start of line.
func LineStart(line int) Position {
	return Position{Line: line}
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(b []byte) (err error) {
	defer xdefer.Errorf(&err, "failed to unmarshal Position from %q", b)

	fields := bytes.Split(b, []byte{':'})
	if len(fields) != 2 {
		return errors.New("expected two fields")
	}
	p.Line, err = strconv.Atoi(string(fields[0]))
	if err != nil {
		return err
	}
	p.Column, err = strconv.Atoi(string(fields[1]))
	return err
}

// Normalize maps column 0 onto column 1.
func (p Position) Normalize() Position {
	if p.Column < 1 {
		p.Column = 1
	}
	return p
}

// Advance advances p by r and returns the new Position.
func (p Position) Advance(r rune, byUTF16 bool) Position {
	if r == '\n' {
		p.Line++
		p.Column = 1
		return p
	}
	p = p.Normalize()
	// Runes outside the basic multilingual plane take a surrogate pair.
	if byUTF16 && r >= 0x10000 {
		p.Column += 2
		return p
	}
	p.Column++
	return p
}

func (p Position) AdvanceString(s string, byUTF16 bool) Position {
	for _, r := range s {
		p = p.Advance(r, byUTF16)
	}
	return p
}

func (p Position) Before(p2 Position) bool {
	p, p2 = p.Normalize(), p2.Normalize()
	if p.Line != p2.Line {
		return p.Line < p2.Line
	}
	return p.Column < p2.Column
}

func (p Position) Equal(p2 Position) bool {
	return p.Normalize() == p2.Normalize()
}

// Range is the half open span [Start, End) of text.
//
// It looks like startLine:startColumn-endLine:endColumn when marshalled.
type Range struct {
	Start Position
	End   Position
}

var _ fmt.Stringer = Range{}
var _ encoding.TextMarshaler = Range{}
var _ encoding.TextUnmarshaler = &Range{}

// MakeRange parses s in the marshalled form of Range. Invalid input yields the zero Range.
func MakeRange(s string) Range {
	var r Range
	_ = r.UnmarshalText([]byte(s))
	return r
}

// Span is shorthand for a range between two line:column pairs.
func Span(startLine, startColumn, endLine, endColumn int) Range {
	return Range{
		Start: Pos(startLine, startColumn),
		End:   Pos(endLine, endColumn),
	}
}

// Lines returns the range covering every line in [start, end) including line breaks.
func Lines(start, end int) Range {
	return Range{Start: LineStart(start), End: LineStart(end)}
}

// EmptyAt returns the empty range at p, used by insertions.
func EmptyAt(p Position) Range {
	return Range{Start: p, End: p}
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Range) UnmarshalText(b []byte) (err error) {
	defer xdefer.Errorf(&err, "failed to unmarshal Range from %q", b)

	i := bytes.IndexByte(b, '-')
	if i == -1 {
		return errors.New("missing End field")
	}
	err = r.Start.UnmarshalText(b[:i])
	if err != nil {
		return err
	}
	return r.End.UnmarshalText(b[i+1:])
}

// Empty reports whether the range covers no text.
func (r Range) Empty() bool {
	return r.Start.Equal(r.End)
}

func (r Range) OneLine() bool {
	return r.Start.Line == r.End.Line
}

func (r Range) Before(r2 Range) bool {
	return r.Start.Before(r2.Start)
}

// Contains reports whether r2 lies entirely inside r.
func (r Range) Contains(r2 Range) bool {
	return !r2.Start.Before(r.Start) && !r.End.Before(r2.End)
}

// Overlaps reports whether r and r2 share any text. Ranges that only touch do not overlap.
func (r Range) Overlaps(r2 Range) bool {
	return r.Start.Before(r2.End) && r2.Start.Before(r.End)
}
