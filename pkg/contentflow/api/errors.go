package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/content-flow/pkg/contentflow"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string   `json:"error"`
	Code  string   `json:"code"`
	IDs   []string `json:"ids,omitempty"`
}

// writeError maps the service error kinds onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, contentflow.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, contentflow.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, contentflow.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, contentflow.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, contentflow.ErrValidation):
		status, code = http.StatusUnprocessableEntity, "validation_failed"
	}

	resp := ErrorResponse{Error: err.Error(), Code: code}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Error = "internal error"
	}
	var verr *contentflow.ValidationError
	if errors.As(err, &verr) {
		for _, id := range verr.IDs {
			resp.IDs = append(resp.IDs, id.String())
		}
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: msg, Code: "bad_request"})
}
