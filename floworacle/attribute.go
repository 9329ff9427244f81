package floworacle

import (
	"unicode/utf8"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowformat"
)

// ChangedAttribute is an attribute value to write.
type ChangedAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PlanAttributeEdit returns the edit that sets changed in attrs. Existing attributes have
// their name="value" text replaced. Missing attributes are appended after the last
// attribute. ok is false when attrs is empty as there is nothing to anchor the new
// attribute to, see PlanNodeAttributeEdit.
func PlanAttributeEdit(changed ChangedAttribute, attrs flowast.Attributes) (op flowast.EditOperation, ok bool) {
	text := flowformat.Attr(changed.Name, changed.Value)
	if a, found := attrs.Get(changed.Name); found {
		return flowast.Replace(a.Range(), text), true
	}
	last, found := attrs.Last()
	if !found {
		return flowast.EditOperation{}, false
	}
	return flowast.Insert(flowast.Pos(last.EndLine, last.EndColumn), " "+text), true
}

// PlanNodeAttributeEdit is PlanAttributeEdit that inserts right after the tag name of n
// when n has no attributes.
func PlanNodeAttributeEdit(n *flowast.Node, changed ChangedAttribute) flowast.EditOperation {
	if op, ok := PlanAttributeEdit(changed, n.Attributes); ok {
		return op
	}
	p := flowast.Pos(n.Line, n.Column+1+utf8.RuneCountInString(n.Type))
	return flowast.Insert(p, " "+flowformat.Attr(changed.Name, changed.Value))
}

// DeleteAttributeRange returns the range to delete to remove a along with the whitespace
// separating it from its neighbours.
func DeleteAttributeRange(a *flowast.Attribute) flowast.Range {
	endLine := a.EndLine
	if endLine == 0 {
		endLine = a.Line
	}
	leading := flowast.Span(a.Line, a.StartColumn-1, endLine, a.EndColumn)
	switch {
	case a.OnTagStartLine:
		return leading
	case a.OnLineWithOthers && a.IndexOnLine == 0:
		return flowast.Span(a.Line, a.StartColumn, endLine, a.EndColumn+1)
	case a.OnLineWithOthers:
		return leading
	case a.OnTagEndLine:
		// Deleting the line would take the closing bracket with it.
		return leading
	default:
		return flowast.Lines(a.Line, endLine+1)
	}
}

// PlanAttributeDelete returns the deletion of the named attribute.
func PlanAttributeDelete(name string, attrs flowast.Attributes) (flowast.EditOperation, error) {
	a, ok := attrs.Get(name)
	if !ok {
		return flowast.EditOperation{}, NotFoundError{Kind: "attribute", ID: name}
	}
	return flowast.Delete(DeleteAttributeRange(a)), nil
}

// PlanAttributesDelete returns the deletions of every attribute of attrs named in names.
func PlanAttributesDelete(names []string, attrs flowast.Attributes) []flowast.EditOperation {
	var ops []flowast.EditOperation
	for _, name := range names {
		if op, err := PlanAttributeDelete(name, attrs); err == nil {
			ops = append(ops, op)
		}
	}
	return flowast.MergeEdits(ops)
}
