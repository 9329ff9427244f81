package flowserver

import (
	"errors"
	"net/http"

	"github.com/frankframework/frankflow/flowlib"
	"github.com/frankframework/frankflow/lib/xhttp"
)

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) error {
	e, err := s.editor(r)
	if err != nil {
		return err
	}
	var ed flowlib.Edit
	err = xhttp.DecodeJSON(r, &ed)
	if err != nil {
		return err
	}
	// Edits are planned against the latest structure.
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}

	err = e.Apply(r.Context(), ed)
	var uerr flowlib.UnknownOpError
	if errors.As(err, &uerr) {
		return xhttp.ErrorWrap(http.StatusBadRequest, uerr.Error(), err)
	}
	if err != nil {
		return httpError(err)
	}
	err = settle(r.Context(), e)
	if err != nil {
		return err
	}
	return respondFile(w, r, e)
}
