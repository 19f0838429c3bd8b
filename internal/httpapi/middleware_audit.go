package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// AuditMiddleware logs one line per request and turns handler panics into
// 500 responses.
type AuditMiddleware struct {
	logger zerolog.Logger
}

// NewAuditMiddleware creates the request logging middleware.
func NewAuditMiddleware(logger zerolog.Logger) *AuditMiddleware {
	return &AuditMiddleware{
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Handler wraps next.
func (m *AuditMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				m.logger.Error().
					Interface("panic", p).
					Str("path", r.URL.Path).
					Msg("Handler panicked")
				if !rec.wroteHeader {
					http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}
			m.log(r, rec, time.Since(start))
		}()

		next.ServeHTTP(rec, r)
	})
}

func (m *AuditMiddleware) log(r *http.Request, rec *statusResponseWriter, elapsed time.Duration) {
	var event *zerolog.Event
	switch {
	case rec.status >= http.StatusInternalServerError:
		event = m.logger.Warn()
	case r.URL.Path == "/health":
		event = m.logger.Debug()
	default:
		event = m.logger.Info()
	}

	event = event.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote_addr", r.RemoteAddr).
		Int("status", rec.status).
		Int("bytes", rec.bytes).
		Dur("duration", elapsed)

	if ua := r.Header.Get("User-Agent"); ua != "" {
		event = event.Str("user_agent", ua)
	}

	event.Msg("Request")
}

// statusResponseWriter records the status code and body size.
type statusResponseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
