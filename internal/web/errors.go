package web

// errors.go turns handler errors into responses.
//
// The technical error is logged with the request ID; the client receives
// the mapped user message and its code, as JSON for API routes and as an
// HTML fragment for previews.

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/layout"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/logging"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/service"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, layout.ErrUnknownLayout):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTooManyExports):
		return http.StatusServiceUnavailable
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case service.IsUserError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := service.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err,
	}
	if status >= 500 {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := errorAlert(msg).Render(r.Context(), w); err != nil {
		logger.Error("render error alert", "error", err)
	}
}

// wantsJSON reports whether the client should get JSON rather than HTML.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// errorAlert renders a user message as an HTML fragment.
func errorAlert(msg service.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="alert" role="alert"><p>`+
			templ.EscapeString(msg.Message)+`</p><p>`+
			templ.EscapeString(msg.Action)+`</p><small>Code: `+
			templ.EscapeString(msg.Code)+`</small></div>`)
		return err
	})
}
