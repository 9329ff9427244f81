// Package flowformat renders the XML snippets inserted into configurations.
//
// Indentation is significant: generated elements use tabs so they line up with hand
// written Frank!Framework configurations.
package flowformat

import (
	"fmt"
	"strconv"

	"github.com/frankframework/frankflow/flowast"
)

// Attr renders name="value" with value escaped.
func Attr(name, value string) string {
	return fmt.Sprintf(`%s="%s"`, name, EscapeAttr(value))
}

// FormatNumber renders a coordinate without a trailing .0.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func Pipe(typ, name string) string {
	return fmt.Sprintf("\t\t\t<%s %s />\n", typ, Attr("name", name))
}

func Listener(typ, name string) string {
	return fmt.Sprintf("\t\t<Receiver %s>\n\t\t\t<%s %s />\n\t\t</Receiver>\n",
		Attr("name", name+"Receiver"), typ, Attr("name", name))
}

func Sender(typ, name string) string {
	return fmt.Sprintf("\t\t<SenderPipe %s>\n\t\t\t<%s %s />\n\t\t</SenderPipe>\n",
		Attr("name", name+"Pipe"), typ, Attr("name", name))
}

// Exit renders a success exit, with canvas coordinates when pos is not nil.
func Exit(path string, pos *flowast.Point) string {
	coords := ""
	if pos != nil {
		coords = fmt.Sprintf("%s %s ", Attr("flow:y", FormatNumber(pos.Y)), Attr("flow:x", FormatNumber(pos.X)))
	}
	return fmt.Sprintf("\t\t\t\t<Exit %s state=\"success\" %s/>\n", Attr("path", path), coords)
}

// Exits wraps exits, each a full line of text, in an Exits element.
func Exits(exits ...string) string {
	s := "\t\t\t<Exits>\n"
	for _, e := range exits {
		s += e
	}
	return s + "\t\t\t</Exits>\n"
}

func Forward(name, path string) string {
	return fmt.Sprintf("\t\t\t\t<Forward %s %s />\n", Attr("name", name), Attr("path", path))
}

func NestedElement(typ, name string) string {
	return fmt.Sprintf("\t\t\t\t<%s %s />\n", typ, Attr("name", name))
}

func ClosingTag(typ string) string {
	return fmt.Sprintf("\t\t\t</%s>\n", typ)
}

// Inline moves nested text onto its own lines after a single line start tag.
func Inline(text string) string {
	return "\n" + text + "\t\t\t"
}
