package middleware

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

// responseWriter records the status and size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingConfig selects which requests reach the access log.
type LoggingConfig struct {
	SkipPaths       []string
	LogImages       bool
	LogHealthChecks bool
}

// DefaultLoggingConfig leaves out image fetches, health probes and
// /metrics. A rater session fetches every image in each batch, which would
// drown the rest.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{SkipPaths: []string{"/metrics"}}
}

const imagePathPrefix = "/images/"

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// AccessLogFields is the W3C extended log #Fields directive matching the
// lines Logger writes.
const AccessLogFields = "date time c-ip cs-username cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken sc(Content-Encoding) cs(User-Agent)"

type raterKey struct{}

// raterSlot is filled in by the auth layer further down the chain.
type raterSlot struct {
	name string
}

// SetRater records the authenticated rater for the access log line of the
// request carrying ctx. Outside Logger it does nothing.
func SetRater(ctx context.Context, user string) {
	if slot, ok := ctx.Value(raterKey{}).(*raterSlot); ok {
		slot.name = user
	}
}

// Logger writes one W3C extended format line per request through the
// standard logger.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			slot := &raterSlot{}
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), raterKey{}, slot)))

			//nolint:gosec // every request-controlled field goes through w3cField
			log.Println(accessLine(time.Now().UTC(), r, slot.name, wrapped, time.Since(start)))
		})
	}
}

func accessLine(now time.Time, r *http.Request, rater string, rw *responseWriter, took time.Duration) string {
	return fmt.Sprintf("%s %s %s %s %s %s %s %d %d %d %s %s",
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		w3cField(getClientIP(r)),
		w3cField(rater),
		w3cField(r.Method),
		w3cField(r.URL.Path),
		w3cField(r.URL.RawQuery),
		rw.statusCode,
		rw.bytesWritten,
		took.Milliseconds(),
		w3cField(rw.Header().Get("Content-Encoding")),
		w3cField(r.Header.Get("User-Agent")),
	)
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, prefix := range config.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}
	return !config.LogImages && strings.HasPrefix(path, imagePathPrefix)
}

// w3cField makes s safe for one space-separated log field: "-" when empty,
// control characters dropped, quoted when it holds blanks or quotes.
func w3cField(s string) string {
	s = sanitizeLogField(s)
	switch {
	case s == "":
		return "-"
	case strings.ContainsAny(s, " \t\""):
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	default:
		return s
	}
}

// sanitizeLogField turns line breaks into spaces and drops other control
// characters except tab.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
