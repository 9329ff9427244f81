package flowcli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"cdr.dev/slog"

	"github.com/frankframework/frankflow/flowlib"
	"github.com/frankframework/frankflow/flowserver"
	"github.com/frankframework/frankflow/lib/env"
	"github.com/frankframework/frankflow/lib/flowfs"
	"github.com/frankframework/frankflow/lib/log"
	"github.com/frankframework/frankflow/lib/xhttp"
	"github.com/frankframework/frankflow/lib/xmain"
)

func serveCmd(ctx context.Context, ms *xmain.State, f flags, args []string) error {
	dir := env.ConfigurationsDir()
	switch len(args) {
	case 0:
		if dir == "" {
			dir = "."
		}
	case 1:
		dir = args[0]
	default:
		return xmain.UsageErrorf("serve accepts a single configurations directory")
	}
	dir = ms.AbsPath(dir)
	d, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !d.IsDir() {
		return xmain.UsageErrorf("%s is not a directory", ms.HumanPath(dir))
	}

	ctx = log.Named(ctx, "serve")
	s := flowserver.New(ctx, flowfs.New(dir), &flowserver.Options{
		Editor: &flowlib.EditorOptions{
			UTF16:    f.utf16,
			Strategy: f.layout,
		},
		Autosave: f.autosave,
	})
	defer s.Close()

	l, err := net.Listen("tcp", net.JoinHostPort(f.host, f.port))
	if err != nil {
		return err
	}
	ms.Log.Success.Printf("serving %s on http://%s", ms.HumanPath(dir), l.Addr())
	log.Info(ctx, "listening", slog.F("addr", l.Addr().String()), slog.F("dir", dir))

	err = xhttp.Serve(ctx, 30*time.Second, xhttp.NewServer(ctx, s), l)
	if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
