package flowfs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankframework/frankflow/flowsync"
	"github.com/frankframework/frankflow/lib/flowfs"
	"github.com/frankframework/frankflow/lib/log"
)

func writeFile(t *testing.T, fp, s string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(fp), 0755))
	require.NoError(t, os.WriteFile(fp, []byte(s), 0644))
}

func TestDirStore(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main", "Configuration.xml"), "<Configuration />\n")
	writeFile(t, filepath.Join(root, "main", "adapters", "Echo.xml"), "<Adapter />\n")
	writeFile(t, filepath.Join(root, "main", "README.md"), "x")
	writeFile(t, filepath.Join(root, "other", "Configuration.xml"), "<Configuration />\n")
	writeFile(t, filepath.Join(root, ".git", "config"), "x")

	s := flowfs.New(root)
	confs, err := s.ListConfigurations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "other"}, confs)

	files, err := s.ListFiles(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"Configuration.xml", "adapters/Echo.xml"}, files)

	f, err := s.GetFileFromConfiguration(ctx, "main", "adapters/Echo.xml")
	require.NoError(t, err)
	assert.Equal(t, "<Adapter />\n", f.XML)

	f.XML = "<Adapter name=\"a\" />\n"
	require.NoError(t, s.UpdateFileForConfiguration(ctx, f))
	b, err := os.ReadFile(filepath.Join(root, "main", "adapters", "Echo.xml"))
	require.NoError(t, err)
	assert.Equal(t, f.XML, string(b))

	entries, err := os.ReadDir(filepath.Join(root, "main", "adapters"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = s.GetFileFromConfiguration(ctx, "main", "../other/Configuration.xml")
	assert.True(t, errors.Is(err, flowfs.ErrInvalidPath), err)
	_, err = s.GetFileFromConfiguration(ctx, "..", "Configuration.xml")
	assert.True(t, errors.Is(err, flowfs.ErrInvalidPath), err)
	err = s.UpdateFileForConfiguration(ctx, &flowsync.File{Configuration: "main", Path: "/etc/passwd"})
	assert.True(t, errors.Is(err, flowfs.ErrInvalidPath), err)

	_, err = s.GetFileFromConfiguration(ctx, "main", "Missing.xml")
	assert.True(t, errors.Is(err, os.ErrNotExist), err)
}

func TestWatch(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	fp := filepath.Join(t.TempDir(), "Configuration.xml")
	writeFile(t, fp, "<Configuration />\n")

	calls := make(chan []string, 16)
	done := make(chan error, 1)
	go func() {
		done <- flowfs.Watch(ctx, []string{fp}, func(ctx context.Context, changed []string) {
			calls <- changed
		})
	}()

	assert.Equal(t, []string{fp}, <-calls)

	writeFile(t, fp, "<Configuration name=\"c\" />\n")
	select {
	case changed := <-calls:
		assert.Equal(t, []string{fp}, changed)
	case <-ctx.Done():
		t.Fatal("no change observed")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
