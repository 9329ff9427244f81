package flowcli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"oss.terrastruct.com/xdefer"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowlib"
	"github.com/frankframework/frankflow/flowsync"
	"github.com/frankframework/frankflow/lib/xmain"
)

// editCommand edits the input file in place. args excludes the input file.
type editCommand struct {
	usage string
	// nargs is the exact number of arguments, or the minimum when variadic.
	nargs    int
	variadic bool
	apply    func(ctx context.Context, e *flowlib.Editor, args []string) error
}

func structural(op flowlib.Op, build func(args []string) (flowlib.Edit, error)) func(context.Context, *flowlib.Editor, []string) error {
	return func(ctx context.Context, e *flowlib.Editor, args []string) error {
		ed := flowlib.Edit{}
		if build != nil {
			var err error
			ed, err = build(args)
			if err != nil {
				return err
			}
		}
		ed.Op = op
		return e.Apply(ctx, ed)
	}
}

var editCommands = map[string]editCommand{
	"add-pipe": {
		usage: "Type Name",
		nargs: 2,
		apply: structural(flowlib.OpAddPipe, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{Type: args[0], Name: args[1]}, nil
		}),
	},
	"add-listener": {
		usage: "Type Name",
		nargs: 2,
		apply: structural(flowlib.OpAddListener, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{Type: args[0], Name: args[1]}, nil
		}),
	},
	"add-sender": {
		usage: "Type Name",
		nargs: 2,
		apply: structural(flowlib.OpAddSender, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{Type: args[0], Name: args[1]}, nil
		}),
	},
	"add-exit": {
		usage:    "Name [x y]",
		nargs:    1,
		variadic: true,
		apply: structural(flowlib.OpAddExit, func(args []string) (flowlib.Edit, error) {
			ed := flowlib.Edit{Name: args[0]}
			switch len(args) {
			case 1:
			case 3:
				p, err := parsePoint(args[1], args[2])
				if err != nil {
					return ed, err
				}
				ed.Position = &p
			default:
				return ed, xmain.UsageErrorf("add-exit takes a name and optionally x and y")
			}
			return ed, nil
		}),
	},
	"add-default-exit": {
		apply: structural(flowlib.OpAddDefaultExit, nil),
	},
	"connect": {
		usage: "SourceUID TargetUID",
		nargs: 2,
		apply: structural(flowlib.OpConnect, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{UID: args[0], Target: args[1]}, nil
		}),
	},
	"disconnect": {
		usage: "SourceUID TargetUID",
		nargs: 2,
		apply: structural(flowlib.OpDisconnect, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{UID: args[0], Target: args[1]}, nil
		}),
	},
	"move": {
		usage: "SourceUID TargetUID NewTargetUID",
		nargs: 3,
		apply: structural(flowlib.OpMoveConnection, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{UID: args[0], Target: args[1], NewTarget: args[2]}, nil
		}),
	},
	"delete": {
		usage: "UID",
		nargs: 1,
		apply: structural(flowlib.OpDeleteNode, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{UID: args[0]}, nil
		}),
	},
	"delete-nested": {
		usage: "UID",
		nargs: 1,
		apply: structural(flowlib.OpDeleteNode, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{UID: args[0], Nested: true}, nil
		}),
	},
	"nest": {
		usage: "ParentUID Type Name",
		nargs: 3,
		apply: structural(flowlib.OpCreateNested, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{UID: args[0], Type: args[1], Name: args[2]}, nil
		}),
	},
	"first-pipe": {
		usage: "PipeUID",
		nargs: 1,
		apply: structural(flowlib.OpSetFirstPipe, func(args []string) (flowlib.Edit, error) {
			return flowlib.Edit{UID: args[0]}, nil
		}),
	},
	"remove-first-pipe": {
		apply: structural(flowlib.OpRemoveFirstPipe, nil),
	},
	"strip-flow": {
		apply: structural(flowlib.OpDeleteFlowSettings, nil),
	},
	"flow-setting": {
		usage:    "Name [Value]",
		nargs:    1,
		variadic: true,
		apply: func(ctx context.Context, e *flowlib.Editor, args []string) error {
			switch len(args) {
			case 1:
				return e.Apply(ctx, flowlib.Edit{Op: flowlib.OpDeleteFlowSetting, Name: args[0]})
			case 2:
				return e.Apply(ctx, flowlib.Edit{Op: flowlib.OpSetFlowSetting, Name: args[0], Value: args[1]})
			}
			return xmain.UsageErrorf("flow-setting takes a name and optionally a value")
		},
	},
	"set": {
		usage:    "UID name=value...",
		nargs:    2,
		variadic: true,
		apply: func(ctx context.Context, e *flowlib.Editor, args []string) error {
			var changes []flowsync.ChangedAttribute
			for _, kv := range args[1:] {
				name, value, ok := strings.Cut(kv, "=")
				if !ok || name == "" {
					return xmain.UsageErrorf("expected name=value, got %q", kv)
				}
				changes = append(changes, flowsync.ChangedAttribute{Name: name, Value: value})
			}
			return e.Service.RequestAttributeEdits(ctx, args[0], changes, true)
		},
	},
	"position": {
		usage: "UID x y",
		nargs: 3,
		apply: func(ctx context.Context, e *flowlib.Editor, args []string) error {
			p, err := parsePoint(args[1], args[2])
			if err != nil {
				return err
			}
			return e.Service.EditNodePositions(ctx, args[0], p)
		},
	},
}

func parsePoint(x, y string) (flowast.Point, error) {
	px, err := strconv.ParseFloat(x, 64)
	if err != nil {
		return flowast.Point{}, xmain.UsageErrorf("invalid x %q", x)
	}
	py, err := strconv.ParseFloat(y, 64)
	if err != nil {
		return flowast.Point{}, xmain.UsageErrorf("invalid y %q", y)
	}
	return flowast.Point{X: px, Y: py}, nil
}

func editCmd(ctx context.Context, ms *xmain.State, f flags, name string, ec editCommand, args []string) (err error) {
	if len(args) == 0 {
		return xmain.UsageErrorf("%s must be passed the file to edit", name)
	}
	inputPath, args := args[0], args[1:]
	if len(args) < ec.nargs || (!ec.variadic && len(args) > ec.nargs) {
		return xmain.UsageErrorf("usage: %s file.xml %s", name, ec.usage)
	}
	defer xdefer.Errorf(&err, "failed to %s", name)

	input, err := ms.ReadPath(inputPath)
	if err != nil {
		return err
	}
	e := flowlib.NewEditor(ctx, inputPath, string(input), &flowlib.EditorOptions{
		UTF16:    f.utf16,
		Strategy: f.layout,
	})
	defer e.Close()

	err = e.Settle(ctx)
	if err != nil {
		return err
	}
	if errs := e.Errors(); len(errs) > 0 {
		ms.Log.Warn.Printf("%s has %d errors, editing what could be parsed", ms.HumanPath(inputPath), len(errs))
	}

	err = ec.apply(ctx, e, args)
	if err != nil {
		return err
	}
	err = e.Settle(ctx)
	if err != nil {
		return err
	}

	out := e.Text()
	if out == string(input) {
		ms.Log.Info.Printf("%s unchanged", ms.HumanPath(inputPath))
		return nil
	}
	if inputPath == "-" {
		_, err = fmt.Fprint(ms.Stdout, out)
		return err
	}
	err = ms.WritePath(inputPath, []byte(out))
	if err != nil {
		return err
	}
	ms.Log.Success.Printf("edited %s", ms.HumanPath(inputPath))
	return nil
}
