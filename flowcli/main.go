// Package flowcli implements the frankflow command.
package flowcli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cdr.dev/slog"
	"github.com/spf13/pflag"

	"github.com/frankframework/frankflow/flowlayouts"
	"github.com/frankframework/frankflow/lib/go2"
	"github.com/frankframework/frankflow/lib/log"
	"github.com/frankframework/frankflow/lib/version"
	"github.com/frankframework/frankflow/lib/xmain"
)

type flags struct {
	layout   flowlayouts.Strategy
	watch    bool
	utf16    bool
	host     string
	port     string
	autosave time.Duration
}

func Run(ctx context.Context, ms *xmain.State) (err error) {
	ctx = log.WithDefault(ctx)

	layoutFlag := ms.Opts.String("FRANKFLOW_LAYOUT", "layout", "l", string(flowlayouts.StrategyAuto), "the layout of nodes without flow:x and flow:y: auto, rows or bfs")
	watchFlag, err := ms.Opts.Bool("FRANKFLOW_WATCH", "watch", "w", false, "rerun check and graph whenever the input file changes")
	if err != nil {
		return err
	}
	utf16Flag, err := ms.Opts.Bool("FRANKFLOW_UTF16", "utf16", "", false, "report columns in UTF-16 code units instead of characters")
	if err != nil {
		return err
	}
	debugFlag, err := ms.Opts.Bool("DEBUG", "debug", "d", false, "print debug logs.")
	if err != nil {
		ms.Log.Warn.Printf("Invalid DEBUG flag value ignored")
		debugFlag = go2.Pointer(false)
	}
	timeoutFlag, err := ms.Opts.Int64("FRANKFLOW_TIMEOUT", "timeout", "", 120, "the maximum number of seconds a command other than serve runs for")
	if err != nil {
		return err
	}
	hostFlag := ms.Opts.String("HOST", "host", "h", "localhost", "host listening address of serve")
	portFlag := ms.Opts.String("PORT", "port", "p", "0", "port listening address of serve")
	autosaveFlag, err := ms.Opts.Duration("FRANKFLOW_AUTOSAVE", "autosave", "", 0, "interval between saves of modified files by serve, e.g. 30s. 0 disables autosaving")
	if err != nil {
		return err
	}
	versionFlag, err := ms.Opts.Bool("", "version", "v", false, "get the version")
	if err != nil {
		return err
	}

	err = ms.Opts.Flags.Parse(ms.Opts.Args)
	if !errors.Is(err, pflag.ErrHelp) && err != nil {
		return xmain.UsageErrorf("failed to parse flags: %v", err)
	}
	if errors.Is(err, pflag.ErrHelp) {
		help(ms)
		return nil
	}

	if *debugFlag {
		ctx = log.Leveled(ctx, slog.LevelDebug)
		ms.Env.Setenv("DEBUG", "1")
	}
	defer log.Sync(ctx)

	strategy, err := flowlayouts.ParseStrategy(*layoutFlag)
	if err != nil {
		return xmain.UsageErrorf("%v", err)
	}
	f := flags{
		layout:   strategy,
		watch:    *watchFlag,
		utf16:    *utf16Flag,
		host:     *hostFlag,
		port:     *portFlag,
		autosave: *autosaveFlag,
	}

	args := ms.Opts.Flags.Args()
	if len(args) == 0 {
		if *versionFlag {
			fmt.Fprintln(ms.Stdout, version.Version)
			return nil
		}
		help(ms)
		return nil
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "version":
		if len(args) > 0 {
			return xmain.UsageErrorf("version subcommand accepts no arguments")
		}
		fmt.Fprintln(ms.Stdout, version.Version)
		return nil
	case "serve":
		return serveCmd(ctx, ms, f, args)
	}

	if *timeoutFlag > 0 && !f.watch {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*timeoutFlag)*time.Second)
		defer cancel()
	}

	switch cmd {
	case "check":
		return watchOrRun(ctx, ms, f, args, checkCmd)
	case "graph":
		return watchOrRun(ctx, ms, f, args, graphCmd)
	}
	if ec, ok := editCommands[cmd]; ok {
		return editCmd(ctx, ms, f, cmd, ec, args)
	}
	return xmain.UsageErrorf("unknown subcommand %q", cmd)
}
