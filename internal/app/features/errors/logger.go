// internal/app/features/errors/logger.go
package errors

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorLogger logs a failure with request context and renders the matching
// page. Handlers hold one as ErrLog.
type ErrorLogger struct {
	log *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

func (el *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
}

// LogServerError logs at error level and renders a 500 page with userMsg.
func (el *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	el.log.Error(msg, el.fields(r, err)...)
	RenderServerError(w, r, userMsg, backURL)
}

// LogBadRequest logs at warn level and renders a 400 page with userMsg.
func (el *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	el.log.Warn(msg, el.fields(r, err)...)
	RenderBadRequest(w, r, userMsg, backURL)
}

// NotFound logs at debug level and renders a 404 page.
func (el *ErrorLogger) NotFound(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	el.log.Debug("not found", zap.String("path", r.URL.Path), zap.String("reason", msg))
	RenderNotFound(w, r, msg, backURL)
}

// HTMXLogServerError logs and renders an inline 500 fragment.
func (el *ErrorLogger) HTMXLogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	el.log.Error(msg, el.fields(r, err)...)
	HTMXError(w, r, http.StatusInternalServerError, userMsg)
}
