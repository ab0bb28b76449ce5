package api

import (
	"errors"
	"log/slog"
	"net/http"

	"editorial/internal/journal"
	"editorial/internal/logging"
	"editorial/internal/workflow"
)

// httpError carries a status code and a client-facing message.
type httpError struct {
	code    int
	message string
	cause   error
}

func (e *httpError) Error() string { return e.message }

func (e *httpError) Unwrap() error { return e.cause }

func badRequest(message string, cause error) error {
	return &httpError{code: http.StatusBadRequest, message: message, cause: cause}
}

// appHandler is a handler that reports failures by returning them.
type appHandler func(w http.ResponseWriter, r *http.Request) error

// statusFor maps workflow and store errors onto HTTP status codes.
func statusFor(err error) int {
	var he *httpError
	switch {
	case errors.As(err, &he):
		return he.code
	case errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrIllegalTransition), errors.Is(err, journal.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrActionNotAllowed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handle(h appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		status := statusFor(err)
		message := err.Error()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
			message = http.StatusText(status)
		}
		s.logger.Log(r.Context(), level, "request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
		s.writeJSON(w, status, map[string]string{"error": message})
	}
}
