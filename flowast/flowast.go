// Package flowast implements the positional model of a Frank!Flow configuration: the
// elements of an XML configuration that the flow editor addresses, the exact source spans
// of their tags and attributes, and the text edits applied to them.
//
// A Structure is a snapshot. It is never mutated after the parser returns it and is
// replaced wholesale on every parse. Identity across snapshots is the UID string.
package flowast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ImplicitExitID identifies the placeholder exit shown for pipelines without exits.
const ImplicitExitID = "implicitExit"

// Kind classifies an element by the role it plays in a flow.
type Kind int

const (
	KindOther Kind = iota
	KindConfiguration
	KindAdapter
	KindReceiver
	KindListener
	KindPipeline
	KindPipe
	KindSender
	KindExits
	KindExit
	KindForward
)

var kindNames = [...]string{
	KindOther:         "other",
	KindConfiguration: "configuration",
	KindAdapter:       "adapter",
	KindReceiver:      "receiver",
	KindListener:      "listener",
	KindPipeline:      "pipeline",
	KindPipe:          "pipe",
	KindSender:        "sender",
	KindExits:         "exits",
	KindExit:          "exit",
	KindForward:       "forward",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// KindOf classifies an element by its tag name.
func KindOf(typ string) Kind {
	switch typ {
	case "Configuration":
		return KindConfiguration
	case "Adapter":
		return KindAdapter
	case "Receiver":
		return KindReceiver
	case "Pipeline":
		return KindPipeline
	case "Exits":
		return KindExits
	case "Exit":
		return KindExit
	case "Forward":
		return KindForward
	}
	switch {
	case strings.HasSuffix(typ, "Pipe"):
		return KindPipe
	case strings.HasSuffix(typ, "Listener"):
		return KindListener
	case strings.HasSuffix(typ, "Sender"):
		return KindSender
	}
	return KindOther
}

// Group returns the key an element is grouped under in its parent's NestedElements.
func Group(typ string) string {
	switch k := KindOf(typ); k {
	case KindSender, KindListener, KindForward:
		return k.String()
	}
	return strings.ToLower(typ)
}

// Attribute is a single attribute of an element.
//
// Line, StartColumn and EndColumn delimit the full name="value" text, EndColumn being
// exclusive. EndLine only differs from Line for values spanning lines. Value is unescaped.
type Attribute struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Line        int    `json:"line"`
	StartColumn int    `json:"startColumn"`
	EndLine     int    `json:"endLine"`
	EndColumn   int    `json:"endColumn"`

	// OnTagStartLine is set when the attribute shares its line with the < of its tag.
	OnTagStartLine bool `json:"onTagStartLine"`
	// OnLineWithOthers is set when other attributes of the same tag share the line.
	OnLineWithOthers bool `json:"onLineWithOthers"`
	// IndexOnLine is the zero based index of the attribute among the attributes of its
	// tag on the same line.
	IndexOnLine int `json:"indexOnLine"`
	// OnTagEndLine is set when the tag's closing bracket follows on the same line.
	OnTagEndLine bool `json:"onTagEndLine"`
}

func (a *Attribute) Range() Range {
	endLine := a.EndLine
	if endLine == 0 {
		endLine = a.Line
	}
	return Span(a.Line, a.StartColumn, endLine, a.EndColumn)
}

// Attributes maps attribute names to attributes.
type Attributes map[string]*Attribute

func (as Attributes) Get(name string) (*Attribute, bool) {
	a, ok := as[name]
	return a, ok
}

// Value returns the value of the named attribute or the empty string.
func (as Attributes) Value(name string) string {
	if a, ok := as[name]; ok {
		return a.Value
	}
	return ""
}

// Sorted returns the attributes in source order.
func (as Attributes) Sorted() []*Attribute {
	sorted := make([]*Attribute, 0, len(as))
	for _, a := range as {
		sorted = append(sorted, a)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].EndColumn < sorted[j].EndColumn
	})
	return sorted
}

// Last returns the attribute with the greatest (Line, EndColumn).
func (as Attributes) Last() (*Attribute, bool) {
	sorted := as.Sorted()
	if len(sorted) == 0 {
		return nil, false
	}
	return sorted[len(sorted)-1], true
}

// Point is a position on the flow canvas decoded from flow:x and flow:y.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one element of the configuration.
type Node struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
	Type string `json:"type"`
	Kind Kind   `json:"kind"`

	// Line and Column locate the < of the start tag.
	Line   int `json:"line"`
	Column int `json:"column"`
	// TagEndLine and TagEndColumn locate the position right after the > of the start tag.
	TagEndLine   int `json:"tagEndLine"`
	TagEndColumn int `json:"tagEndColumn"`
	// EndLine and EndColumn locate the position right after the whole element. For self
	// closing elements they equal TagEndLine and TagEndColumn.
	EndLine   int `json:"endLine"`
	EndColumn int `json:"endColumn"`

	IsSelfClosing bool       `json:"isSelfClosing"`
	Attributes    Attributes `json:"attributes"`
	Positions     *Point     `json:"positions,omitempty"`

	Forwards       []*Node            `json:"forwards,omitempty"`
	NestedElements map[string][]*Node `json:"nestedElements,omitempty"`
	Parent         *Node              `json:"-"`
	Children       []*Node            `json:"-"`
}

func (n *Node) String() string {
	return fmt.Sprintf("%s@%d:%d", n.UID, n.Line, n.Column)
}

// OnSingleLine reports whether the element starts and ends on the same line.
func (n *Node) OnSingleLine() bool {
	return n.Line == n.EndLine
}

// ContainsLine reports whether line is part of the element.
func (n *Node) ContainsLine(line int) bool {
	return n.Line <= line && line <= n.EndLine
}

// Forward returns the nested forward whose path is target.
func (n *Node) Forward(target string) (*Node, bool) {
	for _, f := range n.Forwards {
		if f.Attributes.Value("path") == target {
			return f, true
		}
	}
	return nil, false
}

// HasForwardNamed reports whether a nested forward is called name.
func (n *Node) HasForwardNamed(name string) bool {
	for _, f := range n.Forwards {
		if f.Attributes.Value("name") == name {
			return true
		}
	}
	return false
}

// LastNestedElement returns the nested element that ends last.
func (n *Node) LastNestedElement() (*Node, bool) {
	var last *Node
	for _, c := range n.Children {
		if last == nil || c.EndLine > last.EndLine {
			last = c
		}
	}
	return last, last != nil
}

// Structure is the parse result of a configuration.
type Structure struct {
	Configuration *Node `json:"configuration,omitempty"`
	Pipeline      *Node `json:"pipeline,omitempty"`
	ExitsTag      *Node `json:"exitsTag,omitempty"`

	Receivers []*Node `json:"receivers"`
	Listeners []*Node `json:"listeners"`
	Pipes     []*Node `json:"pipes"`
	Senders   []*Node `json:"senders"`
	Exits     []*Node `json:"exits"`
	// Nodes holds every element below the pipeline and adapter level in document order.
	Nodes []*Node `json:"nodes"`

	// FirstPipe is the value of the pipeline's firstPipe attribute.
	FirstPipe string `json:"firstPipe,omitempty"`

	byUID map[string]*Node
}

// NewStructure returns an empty Structure ready for Index.
func NewStructure() *Structure {
	return &Structure{
		byUID: make(map[string]*Node),
	}
}

// Index assigns n a UID unique within s and records it in the arena. UIDs are
// Type(Name) with a #n suffix for the nth duplicate.
func (s *Structure) Index(n *Node) {
	if s.byUID == nil {
		s.byUID = make(map[string]*Node)
	}
	base := fmt.Sprintf("%s(%s)", n.Type, n.Name)
	uid := base
	for i := 2; ; i++ {
		if _, ok := s.byUID[uid]; !ok {
			break
		}
		uid = base + "#" + strconv.Itoa(i)
	}
	n.UID = uid
	s.byUID[uid] = n
}

// Node looks up any element by UID.
func (s *Structure) Node(uid string) (*Node, bool) {
	n, ok := s.byUID[uid]
	return n, ok
}

// Pipe looks up a pipe by UID.
func (s *Structure) Pipe(uid string) (*Node, bool) {
	n, ok := s.byUID[uid]
	if !ok || n.Kind != KindPipe {
		return nil, false
	}
	return n, true
}

// PipeNamed looks up a pipe by name.
func (s *Structure) PipeNamed(name string) (*Node, bool) {
	return findNamed(s.Pipes, name)
}

// Target looks up the pipe or exit a forward path refers to.
func (s *Structure) Target(name string) (*Node, bool) {
	if n, ok := findNamed(s.Pipes, name); ok {
		return n, true
	}
	return findNamed(s.Exits, name)
}

// NodeAtLine returns the first element in document order containing line.
func (s *Structure) NodeAtLine(line int) (*Node, bool) {
	for _, n := range s.Nodes {
		if n.ContainsLine(line) {
			return n, true
		}
	}
	return nil, false
}

// Len returns the number of indexed elements.
func (s *Structure) Len() int {
	return len(s.byUID)
}

func findNamed(nodes []*Node, name string) (*Node, bool) {
	for _, n := range nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Names returns the names of nodes in order.
func Names(nodes []*Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}

// Error is a diagnostic with its source range.
type Error struct {
	Range   Range  `json:"range"`
	Message string `json:"errmsg"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Range.Start, e.Message)
}
