package api

import (
	"errors"
	"net/http"

	"github.com/korobprog/supermock-matcher/internal/adapters/repository"
	service "github.com/korobprog/supermock-matcher/internal/app"
	"github.com/korobprog/supermock-matcher/internal/domain/session"
	"github.com/korobprog/supermock-matcher/internal/domain/slot"
)

var (
	// ErrBadRequest indicates a malformed or unparseable request body.
	ErrBadRequest = errors.New("bad request")
	// ErrMethodNotAllowed indicates an unsupported HTTP method on a route.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// translateError maps domain errors onto HTTP status codes and writes the
// response. Unrecognized errors surface as 500 without leaking detail.
func translateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrBadInput),
		errors.Is(err, slot.ErrInvalidTime),
		errors.Is(err, session.ErrInvalidRole),
		errors.Is(err, session.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, session.ErrAlreadyAssigned):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}
