package flowlib

import (
	"context"
	"fmt"
	"strings"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowsettings"
)

// Op names a structural edit.
type Op string

const (
	OpAddPipe            Op = "addPipe"
	OpAddListener        Op = "addListener"
	OpAddSender          Op = "addSender"
	OpAddExit            Op = "addExit"
	OpAddDefaultExit     Op = "addDefaultExit"
	OpConnect            Op = "connect"
	OpDisconnect         Op = "disconnect"
	OpMoveConnection     Op = "moveConnection"
	OpSetFirstPipe       Op = "setFirstPipe"
	OpRemoveFirstPipe    Op = "removeFirstPipe"
	OpDeleteNode         Op = "deleteNode"
	OpCreateNested       Op = "createNestedElement"
	OpDeleteFlowSettings Op = "deleteFlowSettings"
	OpSetFlowSetting     Op = "setFlowSetting"
	OpDeleteFlowSetting  Op = "deleteFlowSetting"
)

// Edit is a structural edit as sent by clients. Which fields are read depends on Op.
type Edit struct {
	Op Op `json:"op"`

	// Type is the element type of added pipes, listeners, senders and nested elements.
	Type string `json:"type,omitempty"`
	// Name is the name of added elements and flow settings.
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`

	// UID identifies the edited node, the source of connections and the parent of nested
	// elements.
	UID       string `json:"uid,omitempty"`
	Target    string `json:"target,omitempty"`
	NewTarget string `json:"newTarget,omitempty"`

	Nested   bool           `json:"nested,omitempty"`
	Position *flowast.Point `json:"position,omitempty"`
}

type UnknownOpError struct {
	Op Op
}

func (e UnknownOpError) Error() string {
	return fmt.Sprintf("unknown edit %q", string(e.Op))
}

// Apply submits ed to the sync service. It does not wait for the edit to be parsed, see
// Settle.
func (e *Editor) Apply(ctx context.Context, ed Edit) error {
	s := e.Service
	switch ed.Op {
	case OpAddPipe:
		return s.AddPipe(ctx, ed.Type, ed.Name)
	case OpAddListener:
		return s.AddListener(ctx, ed.Type, ed.Name)
	case OpAddSender:
		return s.AddSender(ctx, ed.Type, ed.Name)
	case OpAddExit:
		return s.AddExit(ctx, ed.Name, ed.Position)
	case OpAddDefaultExit:
		return s.AddDefaultExit(ctx)
	case OpConnect:
		return s.AddConnection(ctx, ed.UID, ed.Target)
	case OpDisconnect:
		return s.DeleteConnection(ctx, ed.UID, ed.Target)
	case OpMoveConnection:
		return s.MoveConnection(ctx, ed.UID, ed.Target, ed.NewTarget)
	case OpSetFirstPipe:
		return s.SetFirstPipe(ctx, ed.UID)
	case OpRemoveFirstPipe:
		return s.RemoveFirstPipe(ctx)
	case OpDeleteNode:
		return s.DeleteNode(ctx, ed.UID, ed.Nested)
	case OpCreateNested:
		return s.CreateNestedElement(ctx, ed.UID, ed.Type, ed.Name)
	case OpDeleteFlowSettings:
		return s.DeleteFlowSettings(ctx)
	case OpSetFlowSetting:
		return s.SetFlowSetting(ctx, settingAttribute(ed.Name), ed.Value)
	case OpDeleteFlowSetting:
		return s.DeleteFlowSetting(ctx, settingAttribute(ed.Name))
	}
	return UnknownOpError{Op: ed.Op}
}

// settingAttribute accepts flow settings with or without their namespace prefix.
func settingAttribute(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return flowsettings.Attribute(name)
}
