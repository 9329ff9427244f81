// Package floworacle plans the text edits behind every change made to a flow in the
// diagram. Planners are pure: they read a flowast.Structure snapshot and return a
// flowast.Batch to apply to the text the snapshot was parsed from.
package floworacle

import (
	"errors"

	"oss.terrastruct.com/xdefer"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowformat"
)

var errNoPipeline = NotFoundError{Kind: "pipeline", ID: "Pipeline"}

// DefaultExit is where AddDefaultExit places its exit on the canvas.
var DefaultExit = flowast.Point{X: 700, Y: 100}

// FlowSettings are the configuration attributes removed by DeleteFlowSettings.
var FlowSettings = []string{
	"flow:direction",
	"flow:forwardStyle",
	"flow:gridSize",
	"xmlns:flow",
}

// FlowPositions are the node attributes removed by DeleteFlowSettings.
var FlowPositions = []string{
	"flow:y",
	"flow:x",
}

// pipeInsertionLine is the line right after the last pipe or else right after the
// pipeline's start tag.
func pipeInsertionLine(s *flowast.Structure) (int, error) {
	if len(s.Pipes) > 0 {
		return s.Pipes[len(s.Pipes)-1].EndLine + 1, nil
	}
	if s.Pipeline == nil {
		return 0, errNoPipeline
	}
	return s.Pipeline.Line + 1, nil
}

// AddPipe inserts a self closing pipe of type typ after the last pipe. The pipe is named
// after name, made unique among pipes.
func AddPipe(s *flowast.Structure, typ, name string) (_ *flowast.Batch, newName string, err error) {
	defer xdefer.Errorf(&err, "failed to add pipe %q", name)

	line, err := pipeInsertionLine(s)
	if err != nil {
		return nil, "", err
	}
	newName = UniqueNodeName(s.Pipes, name)
	b := flowast.NewBatch(true, flowast.Insert(flowast.LineStart(line), flowformat.Pipe(typ, newName)))
	return b, newName, nil
}

// AddSender inserts a SenderPipe wrapping a sender of type typ after the last pipe.
func AddSender(s *flowast.Structure, typ, name string) (_ *flowast.Batch, newName string, err error) {
	defer xdefer.Errorf(&err, "failed to add sender %q", name)

	line, err := pipeInsertionLine(s)
	if err != nil {
		return nil, "", err
	}
	newName = UniqueNodeName(s.Senders, name)
	b := flowast.NewBatch(true, flowast.Insert(flowast.LineStart(line), flowformat.Sender(typ, newName)))
	return b, newName, nil
}

// AddListener inserts a Receiver wrapping a listener of type typ right before the pipeline.
func AddListener(s *flowast.Structure, typ, name string) (_ *flowast.Batch, newName string, err error) {
	defer xdefer.Errorf(&err, "failed to add listener %q", name)

	if s.Pipeline == nil {
		return nil, "", errNoPipeline
	}
	newName = UniqueNodeName(s.Listeners, name)
	b := flowast.NewBatch(true, flowast.Insert(flowast.LineStart(s.Pipeline.Line), flowformat.Listener(typ, newName)))
	return b, newName, nil
}

// AddExit adds a success exit. pos is written as flow:x and flow:y when not nil.
//
// Without an Exits element, one is created right after the pipeline's start tag and every
// existing exit is moved into it.
func AddExit(s *flowast.Structure, text TextReader, name string, pos *flowast.Point) (_ *flowast.Batch, newName string, err error) {
	defer xdefer.Errorf(&err, "failed to add exit %q", name)

	newName = UniqueNodeName(s.Exits, name)
	exit := flowformat.Exit(newName, pos)

	if s.ExitsTag != nil {
		line := s.ExitsTag.EndLine
		if s.ExitsTag.IsSelfClosing {
			line++
		}
		return flowast.NewBatch(true, nestedInsert(s.ExitsTag, exit, line)...), newName, nil
	}
	if s.Pipeline == nil {
		return nil, "", errNoPipeline
	}

	b := flowast.NewBatch(true)
	var exits []string
	for _, e := range s.Exits {
		exits = append(exits, NodeText(text, e)+"\n")
		b.Add(flowast.Delete(NodeLines(e)))
	}
	exits = append(exits, exit)
	b.Add(flowast.Insert(flowast.LineStart(s.Pipeline.Line+1), flowformat.Exits(exits...)))
	return b, newName, nil
}

// AddDefaultExit adds a READY exit at DefaultExit.
func AddDefaultExit(s *flowast.Structure, text TextReader) (*flowast.Batch, string, error) {
	pos := DefaultExit
	return AddExit(s, text, "READY", &pos)
}

// AddConnection adds a forward named forwardName from the source pipe to the target.
// Connecting to the implicit exit also creates a READY exit.
//
// Callers must pick a forwardName other than success when HasSuccessForward.
func AddConnection(s *flowast.Structure, text TextReader, sourceID, targetID, forwardName string) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to connect %q to %q", sourceID, targetID)

	source, err := GetSourceNode(s, sourceID)
	if err != nil {
		return nil, err
	}
	path := "READY"
	if target, ok := s.Node(targetID); ok {
		path = target.Name
	}

	line := source.EndLine
	if source.IsSelfClosing {
		line++
	}
	b := flowast.NewBatch(true, nestedInsert(source, flowformat.Forward(forwardName, path), line)...)

	if targetID == flowast.ImplicitExitID {
		eb, _, err := AddExit(s, text, "READY", nil)
		if err != nil {
			return nil, err
		}
		b.Concat(eb)
	}
	return b, nil
}

// DeleteConnection deletes the line of the forward from source to target.
func DeleteConnection(s *flowast.Structure, sourceID, targetID string) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to disconnect %q from %q", sourceID, targetID)

	f, err := GetTargetForward(s, sourceID, targetID)
	if err != nil {
		return nil, err
	}
	return flowast.NewBatch(true, flowast.Delete(NodeLines(f))), nil
}

// MoveConnection points the forward from source to target at newTarget instead.
func MoveConnection(s *flowast.Structure, sourceID, targetID, newTargetID string) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to move connection %q -> %q to %q", sourceID, targetID, newTargetID)

	f, err := GetTargetForward(s, sourceID, targetID)
	if err != nil {
		return nil, err
	}
	path := newTargetID
	if target, ok := s.Node(newTargetID); ok {
		path = target.Name
	}
	return flowast.NewBatch(true, PlanNodeAttributeEdit(f, ChangedAttribute{Name: "path", Value: path})), nil
}

// SetFirstPipe sets the pipeline's firstPipe attribute.
func SetFirstPipe(s *flowast.Structure, name string) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to set first pipe to %q", name)

	if s.Pipeline == nil {
		return nil, errNoPipeline
	}
	op := PlanNodeAttributeEdit(s.Pipeline, ChangedAttribute{Name: "firstPipe", Value: name})
	return flowast.NewBatch(true, op), nil
}

// SetFirstPipeByID is SetFirstPipe for the pipe identified by uid.
func SetFirstPipeByID(s *flowast.Structure, uid string) (*flowast.Batch, error) {
	pipe, err := GetSourceNode(s, uid)
	if err != nil {
		return nil, err
	}
	return SetFirstPipe(s, pipe.Name)
}

// RemoveFirstPipe deletes the pipeline's firstPipe attribute. When there is none the
// returned batch has no edits and requests a refresh instead.
func RemoveFirstPipe(s *flowast.Structure) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to remove first pipe")

	if s.Pipeline == nil {
		return nil, errNoPipeline
	}
	a, ok := s.Pipeline.Attributes.Get("firstPipe")
	if !ok || a.Value == "" {
		b := flowast.NewBatch(true)
		b.Refresh = true
		return b, nil
	}
	return flowast.NewBatch(true, flowast.Delete(DeleteAttributeRange(a))), nil
}

// DeleteNode deletes the lines of the node identified by uid. Unless nested, forwards
// pointing at it and a firstPipe naming it are deleted in the same batch.
func DeleteNode(s *flowast.Structure, uid string, nested bool) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to delete %q", uid)

	n, err := getNode(s, uid)
	if err != nil {
		return nil, err
	}

	b := flowast.NewBatch(true)
	if !nested {
		for _, f := range ForwardsWithTarget(s, n) {
			b.Add(flowast.Delete(NodeLines(f)))
		}
		if s.Pipeline != nil && s.Pipeline.Attributes.Value("firstPipe") == n.Name {
			rb, err := RemoveFirstPipe(s)
			if err != nil {
				return nil, err
			}
			b.Concat(rb)
		}
	}
	b.Add(flowast.Delete(NodeLines(n)))
	return b, nil
}

// CreateNestedElement adds a self closing element of type typ to the parent identified by
// uid, after its last nested element.
func CreateNestedElement(s *flowast.Structure, parentID, typ, name string) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to create %s in %q", typ, parentID)

	parent, err := getNode(s, parentID)
	if err != nil {
		return nil, err
	}
	line := parent.EndLine
	if parent.IsSelfClosing {
		line++
	}
	if last, ok := parent.LastNestedElement(); ok {
		line = last.EndLine + 1
	}
	return flowast.NewBatch(true, nestedInsert(parent, flowformat.NestedElement(typ, name), line)...), nil
}

// DeleteFlowSettings strips every flow setting from the configuration and every canvas
// position from its nodes.
func DeleteFlowSettings(s *flowast.Structure) *flowast.Batch {
	b := flowast.NewBatch(true)
	if s.Configuration != nil {
		b.Add(PlanAttributesDelete(FlowSettings, s.Configuration.Attributes)...)
	}
	for _, n := range s.Nodes {
		b.Add(PlanAttributesDelete(FlowPositions, n.Attributes)...)
	}
	return b
}

// SetFlowSetting sets an attribute of the configuration element.
func SetFlowSetting(s *flowast.Structure, name, value string) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to set flow setting %q", name)

	if s.Configuration == nil {
		return nil, NotFoundError{Kind: "configuration", ID: "Configuration"}
	}
	op := PlanNodeAttributeEdit(s.Configuration, ChangedAttribute{Name: name, Value: value})
	return flowast.NewBatch(true, op), nil
}

// DeleteFlowSetting deletes an attribute of the configuration element.
func DeleteFlowSetting(s *flowast.Structure, name string) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to delete flow setting %q", name)

	if s.Configuration == nil {
		return nil, NotFoundError{Kind: "configuration", ID: "Configuration"}
	}
	op, err := PlanAttributeDelete(name, s.Configuration.Attributes)
	if err != nil {
		return nil, err
	}
	return flowast.NewBatch(true, op), nil
}

// EditNodeAttributes sets attributes of the node identified by uid.
func EditNodeAttributes(s *flowast.Structure, uid string, changes []ChangedAttribute, flowUpdate bool) (_ *flowast.Batch, err error) {
	defer xdefer.Errorf(&err, "failed to edit attributes of %q", uid)

	n, err := getNode(s, uid)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, errors.New("no attributes to edit")
	}
	b := flowast.NewBatch(flowUpdate)
	for _, c := range changes {
		b.Add(PlanNodeAttributeEdit(n, c))
	}
	return b, nil
}

// nestedInsert returns the edits that insert text as a child of n. line is where text goes
// when n already spans multiple lines.
func nestedInsert(n *flowast.Node, text string, line int) []flowast.EditOperation {
	switch {
	case n.IsSelfClosing:
		return []flowast.EditOperation{
			closingBracketEdit(n),
			flowast.Insert(flowast.LineStart(n.EndLine+1), text),
			flowast.Insert(flowast.LineStart(n.EndLine+1), flowformat.ClosingTag(n.Type)),
		}
	case n.OnSingleLine():
		return []flowast.EditOperation{
			flowast.Insert(flowast.Pos(n.TagEndLine, n.TagEndColumn), flowformat.Inline(text)),
		}
	default:
		return []flowast.EditOperation{
			flowast.Insert(flowast.LineStart(line), text),
		}
	}
}

// closingBracketEdit turns the /> of a self closing tag into >, along with the space
// before it.
func closingBracketEdit(n *flowast.Node) flowast.EditOperation {
	start := n.TagEndColumn - 2
	if hasSpaceBeforeClosingBracket(n) {
		start--
	}
	return flowast.Replace(flowast.Span(n.TagEndLine, start, n.TagEndLine, n.TagEndColumn), ">")
}

func hasSpaceBeforeClosingBracket(n *flowast.Node) bool {
	last, ok := n.Attributes.Last()
	if !ok {
		return n.TagEndLine == n.Line && n.TagEndColumn-(n.Column+1+len(n.Type)) >= 3
	}
	return last.EndLine == n.TagEndLine && n.TagEndColumn-last.EndColumn >= 3
}
