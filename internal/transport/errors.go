package transport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"bookledger/internal/errs"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var statusByKind = map[errs.Kind]int{
	errs.InvalidArgument:    http.StatusBadRequest,
	errs.NotFound:           http.StatusNotFound,
	errs.AlreadyExists:      http.StatusConflict,
	errs.FailedPrecondition: http.StatusPreconditionFailed,
	errs.Internal:           http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind errs.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// KindForStatus is the inverse of StatusFor. Statuses outside the mapping
// are Internal.
func KindForStatus(status int) errs.Kind {
	for kind, s := range statusByKind {
		if s == status {
			return kind
		}
	}
	return errs.Internal
}

// WriteError writes err with the status of its kind. Internal errors get a
// generic message; the cause is logged.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := errs.KindOf(err)
	message := err.Error()

	if kind == errs.Internal {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		message = "internal error"
	}

	WriteJSON(w, StatusFor(kind), ErrorResponse{Error: message, Code: kind.String()})
}
