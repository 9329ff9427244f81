package flowcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"oss.terrastruct.com/xdefer"

	"github.com/frankframework/frankflow/flowlayouts"
	"github.com/frankframework/frankflow/flowlib"
	"github.com/frankframework/frankflow/flowparser"
	"github.com/frankframework/frankflow/lib/flowfs"
	"github.com/frankframework/frankflow/lib/xmain"
)

type fileCmd func(ctx context.Context, ms *xmain.State, f flags, inputPath string, args []string) error

// watchOrRun runs cmd on the input file, and with --watch again on every change until
// interrupted.
func watchOrRun(ctx context.Context, ms *xmain.State, f flags, args []string, cmd fileCmd) error {
	if len(args) == 0 {
		return xmain.UsageErrorf("missing input file")
	}
	inputPath := args[0]
	if !f.watch || inputPath == "-" {
		return cmd(ctx, ms, f, inputPath, args[1:])
	}

	err := flowfs.Watch(ctx, []string{ms.AbsPath(inputPath)}, func(ctx context.Context, changed []string) {
		ms.Log.Info.Printf("processing %v...", ms.HumanPath(changed[0]))
		err := cmd(ctx, ms, f, inputPath, args[1:])
		if err != nil {
			ms.Log.Error.Print(err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func checkCmd(ctx context.Context, ms *xmain.State, f flags, inputPath string, args []string) (err error) {
	if len(args) > 0 {
		return xmain.UsageErrorf("check accepts a single input file")
	}
	input, err := ms.ReadPath(inputPath)
	if err != nil {
		return err
	}

	_, err = flowparser.Parse(inputPath, bytes.NewReader(input), &flowparser.ParseOptions{
		UTF16Pos: f.utf16,
	})
	errs := flowparser.Errors(ctx, err)
	if len(errs) > 0 {
		printErrors(ms, inputPath, errs)
		return xmain.ExitErrorf(1, "%s has %d errors", ms.HumanPath(inputPath), len(errs))
	}
	ms.Log.Success.Printf("%s is valid", ms.HumanPath(inputPath))
	return nil
}

func printErrors(ms *xmain.State, inputPath string, errs []flowparser.XMLParseError) {
	for _, e := range errs {
		fmt.Fprintf(ms.Stdout, "%s:%v\n", ms.HumanPath(inputPath), e)
	}
}

func graphCmd(ctx context.Context, ms *xmain.State, f flags, inputPath string, args []string) (err error) {
	defer xdefer.Errorf(&err, "failed to generate graph")

	outputPath := "-"
	if len(args) == 1 {
		outputPath = args[0]
	} else if len(args) > 1 {
		return xmain.UsageErrorf("too many arguments passed")
	}

	input, err := ms.ReadPath(inputPath)
	if err != nil {
		return err
	}
	g, _, err := flowlib.Compile(ctx, inputPath, string(input), &flowlib.CompileOptions{
		UTF16:  f.utf16,
		Layout: flowlayouts.New(f.layout).Layout,
	})
	if errs := flowparser.Errors(ctx, err); len(errs) > 0 {
		printErrors(ms, inputPath, errs)
		return xmain.ExitErrorf(1, "%s has %d errors", ms.HumanPath(inputPath), len(errs))
	}
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if outputPath == "-" {
		_, err = ms.Stdout.Write(b)
		return err
	}
	err = ms.WritePath(outputPath, b)
	if err != nil {
		return err
	}
	ms.Log.Success.Printf("wrote %s", ms.HumanPath(ms.AbsPath(outputPath)))
	return nil
}
