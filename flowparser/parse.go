// Package flowparser parses Frank!Flow XML configurations into a flowast.Structure.
//
// The parser never gives up: every problem is recorded in a ParseError and the structure
// of everything that could be read is still returned so the flow diagram keeps working
// while the user is typing.
package flowparser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	tunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowformat"
)

type ParseOptions struct {
	// UTF16Pos records columns in UTF-16 code units for browser clients, which index
	// JavaScript strings by UTF-16 code unit.
	UTF16Pos bool

	ParseError *ParseError
}

// Parse parses the configuration in r.
//
// The returned Structure is never nil. All encountered errors are in the returned
// *ParseError.
func Parse(path string, r io.Reader, opts *ParseOptions) (*flowast.Structure, error) {
	if opts == nil {
		opts = &ParseOptions{}
	}

	p := &parser{
		path:     path,
		utf16Pos: opts.UTF16Pos,
		err:      opts.ParseError,
		pos:      flowast.Pos(1, 1),
		s:        flowast.NewStructure(),
	}
	if p.err == nil {
		p.err = &ParseError{}
	}
	p.err.Path = path

	br := bufio.NewReader(r)
	var rd io.Reader = br
	bom, err := br.Peek(2)
	if err == nil && bom[0] == 0xFF && bom[1] == 0xFE {
		// 0xFFFE is invalid UTF-8 so this is safe.
		p.utf16Pos = true
		rd = transform.NewReader(br, tunicode.UTF16(tunicode.LittleEndian, tunicode.UseBOM).NewDecoder())
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		p.errorf(p.pos, p.pos, "io error: %v", err)
	}
	b = bytes.TrimPrefix(b, []byte("\xEF\xBB\xBF"))
	p.src = []rune(string(b))

	p.parse()
	if !p.err.Empty() {
		return p.s, p.err
	}
	return p.s, nil
}

// ParseString is Parse for in memory text.
func ParseString(path, text string) (*flowast.Structure, error) {
	return Parse(path, strings.NewReader(text), nil)
}

type parser struct {
	path     string
	utf16Pos bool

	src []rune
	i   int
	pos flowast.Position

	err *ParseError

	s     *flowast.Structure
	root  *flowast.Node
	stack []*flowast.Node
}

// ParseError holds every error encountered while parsing.
type ParseError struct {
	Path   string          `json:"path,omitempty"`
	Errors []flowast.Error `json:"errs"`
}

func (pe *ParseError) Empty() bool {
	if pe == nil {
		return true
	}
	return len(pe.Errors) == 0
}

func (pe *ParseError) Error() string {
	var sb strings.Builder
	for i, err := range pe.Errors {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if pe.Path != "" {
			sb.WriteString(pe.Path)
			sb.WriteByte(':')
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Raw returns the errors in the line:column: message form consumed by Coalesce.
func (pe *ParseError) Raw() []string {
	if pe == nil {
		return nil
	}
	raw := make([]string, len(pe.Errors))
	for i, err := range pe.Errors {
		raw[i] = err.Error()
	}
	return raw
}

func (p *parser) errorf(start, end flowast.Position, f string, v ...interface{}) {
	p.err.Errors = append(p.err.Errors, flowast.Error{
		Range:   flowast.Range{Start: start, End: end},
		Message: fmt.Sprintf(f, v...),
	})
}

func (p *parser) eof() bool {
	return p.i >= len(p.src)
}

// peek returns the rune n runes ahead without advancing. It returns 0 past the end.
func (p *parser) peek(n int) rune {
	if p.i+n >= len(p.src) {
		return 0
	}
	return p.src[p.i+n]
}

func (p *parser) next() rune {
	r := p.src[p.i]
	p.i++
	p.pos = p.pos.Advance(r, p.utf16Pos)
	return r
}

func (p *parser) hasPrefix(s string) bool {
	i := p.i
	for _, r := range s {
		if i >= len(p.src) || p.src[i] != r {
			return false
		}
		i++
	}
	return true
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek(0)) {
		p.next()
	}
}

// skipPast advances past the next occurrence of term.
func (p *parser) skipPast(term string, unterminated string) {
	start := p.pos
	for !p.eof() {
		if p.hasPrefix(term) {
			for range term {
				p.next()
			}
			return
		}
		p.next()
	}
	p.errorf(start, p.pos, "%s", unterminated)
}

func isNameStart(r rune) bool {
	return r == '_' || r == ':' || unicode.IsLetter(r)
}

func isNameRune(r rune) bool {
	return isNameStart(r) || r == '-' || r == '.' || unicode.IsDigit(r)
}

func (p *parser) readName() string {
	if p.eof() || !isNameStart(p.peek(0)) {
		return ""
	}
	var sb strings.Builder
	for !p.eof() && isNameRune(p.peek(0)) {
		sb.WriteRune(p.next())
	}
	return sb.String()
}

func (p *parser) parse() {
	for !p.eof() {
		if p.peek(0) != '<' {
			p.parseText()
			continue
		}
		switch {
		case p.hasPrefix("<?"):
			p.skipPast("?>", "unclosed processing instruction.")
		case p.hasPrefix("<!--"):
			p.skipPast("-->", "unclosed comment.")
		case p.hasPrefix("<![CDATA["):
			if len(p.stack) == 0 {
				p.errorf(p.pos, p.pos.Advance('<', p.utf16Pos), "text data outside of root node.")
			}
			p.skipPast("]]>", "unclosed CDATA section.")
		case p.hasPrefix("<!"):
			p.skipPast(">", "unclosed declaration.")
		case p.hasPrefix("</"):
			p.parseEndTag()
		default:
			p.parseStartTag()
		}
	}

	for len(p.stack) > 0 {
		n := p.pop()
		p.errorf(flowast.Pos(n.Line, n.Column), flowast.Pos(n.TagEndLine, n.TagEndColumn), "unclosed tag: %s.", n.Type)
		n.EndLine, n.EndColumn = p.pos.Line, p.pos.Column
	}
	if p.root == nil {
		p.errorf(p.pos, p.pos, "document must contain a root element.")
	}
}

// parseText reads character data up to the next tag. Outside of the root element only
// whitespace is allowed and every other character is reported on its own.
func (p *parser) parseText() {
	for !p.eof() && p.peek(0) != '<' {
		start := p.pos
		r := p.next()
		if len(p.stack) == 0 && !unicode.IsSpace(r) {
			p.errorf(start, p.pos, "text data outside of root node.")
		}
	}
}

func (p *parser) pop() *flowast.Node {
	n := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return n
}

func (p *parser) parseStartTag() {
	start := p.pos
	p.next()
	name := p.readName()
	if name == "" {
		p.errorf(start, p.pos, "disallowed character in tag name.")
		return
	}

	n := &flowast.Node{
		Type:       name,
		Kind:       flowast.KindOf(name),
		Line:       start.Line,
		Column:     start.Column,
		Attributes: flowast.Attributes{},
	}

	var attrs []*flowast.Attribute
	selfClosing := false
tag:
	for {
		p.skipSpace()
		if p.eof() {
			p.errorf(start, p.pos, "unclosed tag: %s.", name)
			break
		}
		switch p.peek(0) {
		case '>':
			p.next()
			break tag
		case '/':
			if p.peek(1) == '>' {
				p.next()
				p.next()
				selfClosing = true
				break tag
			}
			p.errorf(p.pos, p.pos.Advance('/', p.utf16Pos), "forward-slash in opening tag not followed by >.")
			p.next()
		case '<':
			p.errorf(start, p.pos, "unclosed tag: %s.", name)
			break tag
		default:
			a := p.parseAttribute()
			if a == nil {
				continue
			}
			if _, ok := n.Attributes[a.Name]; ok {
				p.errorf(flowast.Pos(a.Line, a.StartColumn), flowast.Pos(a.EndLine, a.EndColumn), "duplicate attribute: %s.", a.Name)
				continue
			}
			n.Attributes[a.Name] = a
			attrs = append(attrs, a)
		}
	}
	n.TagEndLine, n.TagEndColumn = p.pos.Line, p.pos.Column

	onLine := make(map[int]int)
	for _, a := range attrs {
		a.OnTagStartLine = a.Line == n.Line
		a.OnTagEndLine = a.EndLine == n.TagEndLine
		a.IndexOnLine = onLine[a.Line]
		onLine[a.Line]++
	}
	for _, a := range attrs {
		a.OnLineWithOthers = onLine[a.Line] > 1
	}

	p.addNode(n, selfClosing)
}

func (p *parser) parseAttribute() *flowast.Attribute {
	start := p.pos
	name := p.readName()
	if name == "" {
		p.errorf(start, start.Advance(p.peek(0), p.utf16Pos), "disallowed character in attribute name.")
		p.next()
		return nil
	}
	p.skipSpace()
	if p.peek(0) != '=' {
		p.errorf(start, p.pos, "attribute without value: %s.", name)
		return nil
	}
	p.next()
	p.skipSpace()

	q := p.peek(0)
	if q != '"' && q != '\'' {
		valueStart := p.pos
		for !p.eof() && !unicode.IsSpace(p.peek(0)) && p.peek(0) != '>' && p.peek(0) != '/' && p.peek(0) != '<' {
			p.next()
		}
		p.errorf(valueStart, p.pos, "unquoted attribute value.")
		return nil
	}
	p.next()

	var raw strings.Builder
	for {
		if p.eof() {
			p.errorf(start, p.pos, "unclosed attribute value: %s.", name)
			return nil
		}
		rpos := p.pos
		r := p.next()
		if r == q {
			break
		}
		if r == '<' {
			p.errorf(rpos, p.pos, "disallowed character in attribute value.")
		}
		raw.WriteRune(r)
	}

	value, ok := flowformat.UnescapeAttr(raw.String())
	if !ok {
		p.errorf(start, p.pos, "undefined entity in attribute value: %s.", name)
	}
	return &flowast.Attribute{
		Name:        name,
		Value:       value,
		Line:        start.Line,
		StartColumn: start.Column,
		EndLine:     p.pos.Line,
		EndColumn:   p.pos.Column,
	}
}

func (p *parser) parseEndTag() {
	start := p.pos
	p.next()
	p.next()
	name := p.readName()
	p.skipSpace()
	if p.peek(0) == '>' {
		p.next()
	} else {
		p.errorf(start, p.pos, "unclosed end tag: %s.", name)
	}
	end := p.pos

	i := len(p.stack) - 1
	for ; i >= 0; i-- {
		if p.stack[i].Type == name {
			break
		}
	}
	if i < 0 {
		p.errorf(start, end, "unexpected close tag: %s.", name)
		return
	}
	for len(p.stack)-1 > i {
		n := p.pop()
		p.errorf(flowast.Pos(n.Line, n.Column), flowast.Pos(n.TagEndLine, n.TagEndColumn), "unclosed tag: %s.", n.Type)
		n.EndLine, n.EndColumn = start.Line, start.Column
	}
	n := p.pop()
	n.EndLine, n.EndColumn = end.Line, end.Column
}

func (p *parser) addNode(n *flowast.Node, selfClosing bool) {
	n.Name = nodeName(n)
	n.Positions = nodePositions(n.Attributes)

	var parent *flowast.Node
	if len(p.stack) > 0 {
		parent = p.stack[len(p.stack)-1]
	}
	n.Parent = parent
	if parent == nil {
		if p.root == nil {
			p.root = n
			p.s.Configuration = n
		} else {
			p.errorf(flowast.Pos(n.Line, n.Column), flowast.Pos(n.TagEndLine, n.TagEndColumn), "more than one root element.")
		}
	} else {
		parent.Children = append(parent.Children, n)
		if parent.NestedElements == nil {
			parent.NestedElements = make(map[string][]*flowast.Node)
		}
		g := flowast.Group(n.Type)
		parent.NestedElements[g] = append(parent.NestedElements[g], n)
	}

	p.s.Index(n)
	switch n.Kind {
	case flowast.KindAdapter:
	case flowast.KindPipeline:
		if p.s.Pipeline == nil {
			p.s.Pipeline = n
			p.s.FirstPipe = n.Attributes.Value("firstPipe")
		}
	default:
		if n != p.root {
			p.s.Nodes = append(p.s.Nodes, n)
		}
	}

	switch n.Kind {
	case flowast.KindReceiver:
		p.s.Receivers = append(p.s.Receivers, n)
	case flowast.KindListener:
		p.s.Listeners = append(p.s.Listeners, n)
	case flowast.KindPipe:
		p.s.Pipes = append(p.s.Pipes, n)
	case flowast.KindSender:
		p.s.Senders = append(p.s.Senders, n)
	case flowast.KindExits:
		if p.s.ExitsTag == nil {
			p.s.ExitsTag = n
		}
	case flowast.KindExit:
		p.s.Exits = append(p.s.Exits, n)
	case flowast.KindForward:
		if parent != nil {
			parent.Forwards = append(parent.Forwards, n)
		}
	}

	if selfClosing {
		n.IsSelfClosing = true
		n.EndLine, n.EndColumn = n.TagEndLine, n.TagEndColumn
		return
	}
	p.stack = append(p.stack, n)
}

func nodeName(n *flowast.Node) string {
	if name := n.Attributes.Value("name"); name != "" {
		return name
	}
	if path := n.Attributes.Value("path"); path != "" {
		return path
	}
	return n.Type
}

func nodePositions(attrs flowast.Attributes) *flowast.Point {
	xa, hasX := attrs.Get("flow:x")
	ya, hasY := attrs.Get("flow:y")
	if !hasX && !hasY {
		return nil
	}
	var pt flowast.Point
	var err error
	if hasX {
		pt.X, err = strconv.ParseFloat(strings.TrimSpace(xa.Value), 64)
		if err != nil {
			hasX = false
		}
	}
	if hasY {
		pt.Y, err = strconv.ParseFloat(strings.TrimSpace(ya.Value), 64)
		if err != nil {
			hasY = false
		}
	}
	if !hasX && !hasY {
		return nil
	}
	return &pt
}
