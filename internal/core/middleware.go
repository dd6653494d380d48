package core

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"cdnlocal/pkg/auth"
)

// ResponseWriterWrapper is a wrapper around the default http.ResponseWriter.
// It intercepts the WriteHeader call and saves the response status code.
type ResponseWriterWrapper struct {
	http.ResponseWriter
	WrittenResponseCode int
}

// WriteHeader intercepts the status code and stores it, then calls the original WriteHeader.
func (w *ResponseWriterWrapper) WriteHeader(statusCode int) {
	w.WrittenResponseCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Write calls the underlying ResponseWriter's Write method.
func (w *ResponseWriterWrapper) Write(b []byte) (int, error) {
	if w.WrittenResponseCode == 0 {
		w.WrittenResponseCode = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

type LogEntry struct {
	RequestID  string
	IP         string
	AccessKey  string
	Method     string
	URL        string
	Proto      string
	DurationMS float64
	StatusCode int
}

func (e LogEntry) User() slog.Attr {
	return slog.Group("user", "ip", e.IP, "access_key", e.AccessKey)
}

func (e LogEntry) Request() slog.Attr {
	return slog.Group("request",
		"id", e.RequestID,
		"proto", e.Proto,
		"method", e.Method,
		"url", e.URL,
		"duration_ms", e.DurationMS,
		"status_code", e.StatusCode,
	)
}

// LogRequest is middleware that logs incoming HTTP requests and feeds the
// request latency histogram.
func (s *Server) LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		entry := LogEntry{
			RequestID: chimiddleware.GetReqID(r.Context()),
			IP:        r.RemoteAddr,
			Method:    r.Method,
			URL:       r.URL.String(),
			Proto:     r.Proto,
		}

		writer := ResponseWriterWrapper{ResponseWriter: w}

		// RequireAuthentication runs further down the chain; it records the
		// user here so the log line can carry it.
		var user *auth.User
		r = r.WithContext(context.WithValue(r.Context(), userSlotKey{}, &user))

		start := time.Now()
		next.ServeHTTP(&writer, r)
		elapsed := time.Since(start)

		if writer.WrittenResponseCode == 0 {
			writer.WrittenResponseCode = http.StatusOK
		}

		entry.DurationMS = float64(elapsed.Nanoseconds()) / float64(time.Millisecond)
		entry.StatusCode = writer.WrittenResponseCode
		if user != nil {
			entry.AccessKey = user.AccessKeyID
		}

		s.metrics.ObserveRequest(r.Method, entry.StatusCode, elapsed)

		switch {
		case writer.WrittenResponseCode >= 500:
			slog.Error("Request", entry.User(), entry.Request())
		case writer.WrittenResponseCode >= 400:
			slog.Warn("Request", entry.User(), entry.Request())
		default:
			slog.Info("Request", entry.User(), entry.Request())
		}
	})
}

type userSlotKey struct{}

// RequireAuthentication rejects requests no configured engine accepts and
// stores the authenticated user in the request context.
func (s *Server) RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user, err := s.authenticator.AuthenticateRequest(ctx, r)
		if err != nil {
			slog.Debug("Authentication failed", "error", err)
		}
		if user == nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="cdnlocal"`)
			writeError(w, http.StatusUnauthorized, "access denied")
			return
		}

		if slot, ok := ctx.Value(userSlotKey{}).(**auth.User); ok {
			*slot = user
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(ctx, user)))
	})
}

type secureKey struct{}

// WithSecure marks ctx as belonging to a request that arrived over HTTPS.
func WithSecure(ctx context.Context, secure bool) context.Context {
	return context.WithValue(ctx, secureKey{}, secure)
}

// MarkSecure is middleware that records whether the request is secure,
// either directly over TLS or behind a proxy that says so.
func MarkSecure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
		next.ServeHTTP(w, r.WithContext(WithSecure(r.Context(), secure)))
	})
}

// RequestSecurity reports the flag set by MarkSecure or WithSecure.
// Contexts without the flag are not secure.
type RequestSecurity struct{}

func (RequestSecurity) IsSecure(ctx context.Context) bool {
	secure, _ := ctx.Value(secureKey{}).(bool)
	return secure
}

func SlashFix(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Replace all occurrences of "//" with "/" in the URL path
		r.URL.Path = strings.ReplaceAll(r.URL.Path, "//", "/")

		if r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimSuffix(r.URL.Path, "/")
		}

		next.ServeHTTP(w, r)
	})
}
