// Package flowserver serves the configurations of a flowfs.DirStore over HTTP, one
// flowlib.Editor per open file.
package flowserver

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cdr.dev/slog"
	"github.com/go-chi/chi/v5"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowlib"
	"github.com/frankframework/frankflow/floworacle"
	"github.com/frankframework/frankflow/flowparser"
	"github.com/frankframework/frankflow/flowsync"
	"github.com/frankframework/frankflow/lib/background"
	"github.com/frankframework/frankflow/lib/flowfs"
	"github.com/frankframework/frankflow/lib/log"
	"github.com/frankframework/frankflow/lib/syncmap"
	"github.com/frankframework/frankflow/lib/xhttp"
)

// settleTimeout bounds how long a request waits for its edits to be parsed.
const settleTimeout = 10 * time.Second

type Options struct {
	Editor *flowlib.EditorOptions
	// Autosave saves modified files at this interval. Zero disables it.
	Autosave time.Duration
}

type Server struct {
	ctx   context.Context
	store *flowfs.DirStore
	opts  Options

	handler http.Handler

	editors syncmap.SyncMap[string, *flowlib.Editor]

	stopAutosave func()
}

// New returns a server for store. Editors live until Close and log to ctx.
func New(ctx context.Context, store *flowfs.DirStore, opts *Options) *Server {
	if opts == nil {
		opts = &Options{}
	}
	s := &Server{
		ctx:     ctx,
		store:   store,
		opts:    *opts,
		editors: syncmap.New[string, *flowlib.Editor](),
	}
	s.handler = xhttp.Log(ctx, s.buildRouter())
	if s.opts.Autosave > 0 {
		s.stopAutosave = background.Repeat(ctx, s.opts.Autosave, s.saveAll)
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", xhttp.Handle(s.handleHealth))
	r.Route("/api/configurations", func(r chi.Router) {
		r.Get("/", xhttp.Handle(s.handleConfigurations))
		r.Route("/{configuration}", func(r chi.Router) {
			r.Get("/files", xhttp.Handle(s.handleFiles))
			r.Route("/file", func(r chi.Router) {
				r.Get("/", xhttp.Handle(s.handleFile))
				r.Put("/", xhttp.Handle(s.handleUpdateFile))
				r.Post("/save", xhttp.Handle(s.handleSave))
				r.Get("/structure", xhttp.Handle(s.handleStructure))
				r.Get("/graph", xhttp.Handle(s.handleGraph))
				r.Get("/settings", xhttp.Handle(s.handleSettings))
				r.Post("/edits", xhttp.Handle(s.handleEdit))
				r.Post("/attributes", xhttp.Handle(s.handleAttributes))
				r.Post("/positions", xhttp.Handle(s.handlePositions))
				r.Post("/select", xhttp.Handle(s.handleSelect))
				r.Post("/undo", xhttp.Handle(s.handleUndo))
				r.Post("/redo", xhttp.Handle(s.handleRedo))
			})
		})
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close saves and closes every open editor.
func (s *Server) Close() {
	if s.stopAutosave != nil {
		s.stopAutosave()
	}
	s.saveAll(s.ctx)
	s.editors.Range(func(key string, e *flowlib.Editor) bool {
		e.Close()
		s.editors.Delete(key)
		return true
	})
}

func (s *Server) saveAll(ctx context.Context) {
	s.editors.Range(func(key string, e *flowlib.Editor) bool {
		err := e.Save(ctx)
		if err != nil {
			log.Warn(ctx, "autosave failed", slog.F("file", key), slog.Error(err))
		}
		return true
	})
}

// editor returns the open editor of the file the request names, opening it on first use.
func (s *Server) editor(r *http.Request) (*flowlib.Editor, error) {
	configuration := chi.URLParam(r, "configuration")
	path := r.URL.Query().Get("path")
	if path == "" {
		return nil, xhttp.Errorf(http.StatusBadRequest, "missing path", "missing path query parameter")
	}
	key := configuration + "/" + path

	e, err := s.editors.LoadOrCreate(key, func() (*flowlib.Editor, error) {
		return flowlib.OpenEditor(s.ctx, s.store, configuration, path, s.opts.Editor)
	})
	if err != nil {
		return nil, httpError(err)
	}
	return e, nil
}

// settle waits for e to catch up with the request's edits.
func settle(ctx context.Context, e *flowlib.Editor) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	err := e.Settle(ctx)
	if err != nil {
		return xhttp.ErrorWrap(http.StatusServiceUnavailable, "edits still pending", err)
	}
	return nil
}

// httpError maps the errors of the layers below to status codes.
func httpError(err error) error {
	var herr xhttp.Error
	switch {
	case errors.As(err, &herr):
		return err
	case floworacle.IsNotFound(err):
		return xhttp.ErrorWrap(http.StatusNotFound, err.Error(), err)
	case errors.Is(err, os.ErrNotExist):
		return xhttp.ErrorWrap(http.StatusNotFound, nil, err)
	case errors.Is(err, flowfs.ErrInvalidPath):
		return xhttp.ErrorWrap(http.StatusBadRequest, err.Error(), err)
	}
	return err
}

type fileResponse struct {
	Configuration   string                     `json:"configuration"`
	Path            string                     `json:"path"`
	XML             string                     `json:"xml"`
	Saved           bool                       `json:"saved"`
	FlowNeedsUpdate bool                       `json:"flowNeedsUpdate"`
	Errors          []flowparser.XMLParseError `json:"errors"`
}

func respondFile(w http.ResponseWriter, r *http.Request, e *flowlib.Editor) error {
	f, err := e.Session.Current(r.Context())
	if err != nil {
		return err
	}
	errs := f.Errors
	if errs == nil {
		errs = []flowparser.XMLParseError{}
	}
	xhttp.JSON(w, r, http.StatusOK, fileResponse{
		Configuration:   f.Configuration,
		Path:            f.Path,
		XML:             e.Text(),
		Saved:           f.Saved,
		FlowNeedsUpdate: e.FlowNeedsUpdate(),
		Errors:          errs,
	})
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	xhttp.JSON(w, r, http.StatusOK, map[string]interface{}{"ok": true})
	return nil
}

func (s *Server) handleConfigurations(w http.ResponseWriter, r *http.Request) error {
	confs, err := s.store.ListConfigurations(r.Context())
	if err != nil {
		return err
	}
	if confs == nil {
		confs = []string{}
	}
	xhttp.JSON(w, r, http.StatusOK, confs)
	return nil
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) error {
	files, err := s.store.ListFiles(r.Context(), chi.URLParam(r, "configuration"))
	if err != nil {
		return httpError(err)
	}
	if files == nil {
		files = []string{}
	}
	xhttp.JSON(w, r, http.StatusOK, files)
	return nil
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	return respondFile(w, r, e)
}

type updateRequest struct {
	XML string `json:"xml"`
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	var req updateRequest
	err = xhttp.DecodeJSON(r, &req)
	if err != nil {
		return err
	}
	e.Buffer.SetText(r.Context(), req.XML)
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	return respondFile(w, r, e)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	err = e.Save(r.Context())
	if err != nil {
		return httpError(err)
	}
	return respondFile(w, r, e)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	xhttp.JSON(w, r, http.StatusOK, e.Structure())
	return nil
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	g, err := e.Graph(r.Context())
	if err != nil {
		return err
	}
	xhttp.JSON(w, r, http.StatusOK, g)
	return nil
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	xhttp.JSON(w, r, http.StatusOK, e.FlowSettings())
	return nil
}

type attributesRequest struct {
	UID        string                      `json:"uid"`
	Changes    []flowsync.ChangedAttribute `json:"changes"`
	FlowUpdate bool                        `json:"flowUpdate"`
}

func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	var req attributesRequest
	err = xhttp.DecodeJSON(r, &req)
	if err != nil {
		return err
	}
	err = e.Service.RequestAttributeEdits(r.Context(), req.UID, req.Changes, req.FlowUpdate)
	if err != nil {
		return httpError(err)
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	return respondFile(w, r, e)
}

type positionsRequest struct {
	UID string  `json:"uid"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	var req positionsRequest
	err = xhttp.DecodeJSON(r, &req)
	if err != nil {
		return err
	}
	err = e.Service.EditNodePositions(r.Context(), req.UID, flowast.Point{X: req.X, Y: req.Y})
	if err != nil {
		return httpError(err)
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	return respondFile(w, r, e)
}

type selectRequest struct {
	UID    string `json:"uid,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	var req selectRequest
	err = xhttp.DecodeJSON(r, &req)
	if err != nil {
		return err
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}

	var n *flowast.Node
	if req.UID != "" {
		n, err = e.Service.SelectNodeByID(r.Context(), req.UID)
	} else {
		n, err = e.Service.SelectNodeByPosition(r.Context(), flowast.Pos(req.Line, req.Column))
	}
	if err != nil {
		return httpError(err)
	}
	xhttp.JSON(w, r, http.StatusOK, map[string]interface{}{
		"uid":       n.UID,
		"highlight": e.Buffer.Highlight(),
	})
	return nil
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) error {
	return s.travel(w, r, (*flowlib.Editor).Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) error {
	return s.travel(w, r, (*flowlib.Editor).Redo)
}

func (s *Server) travel(w http.ResponseWriter, r *http.Request, fn func(*flowlib.Editor, context.Context) bool) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	if !fn(e, r.Context()) {
		return xhttp.Errorf(http.StatusConflict, "nothing to revert", "history exhausted")
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	return respondFile(w, r, e)
}
