package flowsync

import (
	"context"
	"errors"
	"sync"

	"cdr.dev/slog"
	"oss.terrastruct.com/xdefer"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowparser"
	"github.com/frankframework/frankflow/lib/log"
)

// File is a configuration file being edited.
type File struct {
	Configuration string `json:"configuration"`
	Path          string `json:"path"`
	XML           string `json:"xml"`
	Saved         bool   `json:"saved"`
	// FlowNeedsUpdate is set when the diagram is out of date with XML.
	FlowNeedsUpdate bool                       `json:"flowNeedsUpdate"`
	Errors          []flowparser.XMLParseError `json:"errors,omitempty"`

	Structure *flowast.Structure `json:"-"`
}

// FileStore loads and saves configuration files.
type FileStore interface {
	GetFileFromConfiguration(ctx context.Context, configuration, path string) (*File, error)
	UpdateFileForConfiguration(ctx context.Context, f *File) error
}

// Poster accepts text to parse, see Worker.
type Poster interface {
	Post(text string)
}

var ErrNoFile = errors.New("no file opened")

// Session tracks the current file.
type Session struct {
	store  FileStore
	poster Poster

	mu  sync.Mutex
	cur *File
}

func NewSession(store FileStore, poster Poster) *Session {
	return &Session{
		store:  store,
		poster: poster,
	}
}

// SwitchToFile saves the current file if it has unsaved changes and opens path of
// configuration. Switching to the current file does nothing and reports false.
func (s *Session) SwitchToFile(ctx context.Context, configuration, path string) (_ bool, err error) {
	defer xdefer.Errorf(&err, "failed to open %s/%s", configuration, path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur != nil && s.cur.Configuration == configuration && s.cur.Path == path {
		return false, nil
	}
	if err := s.saveLocked(ctx); err != nil {
		return false, err
	}

	f, err := s.store.GetFileFromConfiguration(ctx, configuration, path)
	if err != nil {
		return false, err
	}
	f.Saved = true
	f.FlowNeedsUpdate = true
	s.cur = f
	s.poster.Post(f.XML)
	return true, nil
}

// Current returns a copy of the current file.
func (s *Session) Current(ctx context.Context) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return File{}, ErrNoFile
	}
	return *s.cur, nil
}

// UpdateText records an edit of the current file and parses it.
func (s *Session) UpdateText(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return ErrNoFile
	}
	if s.cur.XML == text {
		return nil
	}
	s.cur.XML = text
	s.cur.Saved = false
	s.poster.Post(text)
	return nil
}

// OnResult stores the structure and errors parsed from the current text. Results for
// text that has since changed are ignored.
func (s *Session) OnResult(ctx context.Context, r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil || s.cur.XML != r.Text {
		return
	}
	s.cur.Structure = r.Structure
	s.cur.Errors = r.Errors
}

func (s *Session) SetFlowNeedsUpdate(ctx context.Context, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur != nil {
		s.cur.FlowNeedsUpdate = v
	}
}

// Save writes the current file to the store unless it has no unsaved changes.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) (err error) {
	if s.cur == nil || s.cur.Saved {
		return nil
	}
	defer xdefer.Errorf(&err, "failed to save %s", s.cur.Path)

	err = s.store.UpdateFileForConfiguration(ctx, s.cur)
	if err != nil {
		return err
	}
	s.cur.Saved = true
	log.Debug(ctx, "saved", slog.F("configuration", s.cur.Configuration), slog.F("path", s.cur.Path))
	return nil
}
