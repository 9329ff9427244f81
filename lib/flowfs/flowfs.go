// Package flowfs stores configurations on disk. Every directory below the root is a
// configuration and every .xml file within it one of its files.
package flowfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cdr.dev/slog"
	"oss.terrastruct.com/xdefer"

	"github.com/frankframework/frankflow/flowsync"
	"github.com/frankframework/frankflow/lib/log"
)

var ErrInvalidPath = errors.New("path escapes the configuration")

type DirStore struct {
	root string
}

var _ flowsync.FileStore = &DirStore{}

func New(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) Root() string {
	return s.root
}

// ListConfigurations returns the names of the configurations in s, sorted.
func (s *DirStore) ListConfigurations(ctx context.Context) (_ []string, err error) {
	defer xdefer.Errorf(&err, "failed to list configurations")

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ListFiles returns the slash separated paths of the XML files of configuration, sorted.
func (s *DirStore) ListFiles(ctx context.Context, configuration string) (_ []string, err error) {
	defer xdefer.Errorf(&err, "failed to list files of %s", configuration)

	dir, err := s.resolve(configuration, ".")
	if err != nil {
		return nil, err
	}
	var files []string
	err = fs.WalkDir(os.DirFS(dir), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.EqualFold(path.Ext(p), ".xml") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (s *DirStore) GetFileFromConfiguration(ctx context.Context, configuration, p string) (_ *flowsync.File, err error) {
	defer xdefer.Errorf(&err, "failed to read %s/%s", configuration, p)

	fp, err := s.resolve(configuration, p)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(fp)
	if err != nil {
		return nil, err
	}
	return &flowsync.File{
		Configuration: configuration,
		Path:          p,
		XML:           string(b),
	}, nil
}

// UpdateFileForConfiguration replaces the file atomically.
func (s *DirStore) UpdateFileForConfiguration(ctx context.Context, f *flowsync.File) (err error) {
	defer xdefer.Errorf(&err, "failed to write %s/%s", f.Configuration, f.Path)

	fp, err := s.resolve(f.Configuration, f.Path)
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(fp), 0755)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(fp), "."+filepath.Base(fp)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.WriteString(f.XML)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	err = os.Rename(tmp.Name(), fp)
	if err != nil {
		return err
	}
	log.Debug(ctx, "wrote file", slog.F("path", fp), slog.F("bytes", len(f.XML)))
	return nil
}

// resolve maps p within configuration to a path below the root.
func (s *DirStore) resolve(configuration, p string) (string, error) {
	if configuration == "" || strings.ContainsAny(configuration, `/\`) || !filepath.IsLocal(configuration) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, configuration)
	}
	p = filepath.FromSlash(p)
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return filepath.Join(s.root, configuration, p), nil
}
