package httpapi

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"leaddesk-engine/internal/config"
)

// Middleware wraps a handler. Chain applies them in the order given, so
// the first one listed sees the request first.
type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, m ...Middleware) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID keeps the caller's X-Request-ID or mints one, stores it on the
// context and echoes it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// recorder remembers the status and body size a handler produced.
type recorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *recorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *recorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Recover turns a handler panic into a 500 envelope.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			log.Printf("level=error msg=\"handler panic\" request_id=%s method=%s path=%s panic=%v",
				RequestIDFrom(r.Context()), r.Method, r.URL.Path, rec)
			WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		rw := &recorder{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		log.Printf("level=info msg=\"request\" request_id=%s method=%s path=%s status=%d size=%d ms=%d",
			RequestIDFrom(r.Context()), r.Method, r.URL.Path, rw.status, rw.size, time.Since(began).Milliseconds())
	})
}

// LocalOnly refuses peers that are not on the loopback interface.
func LocalOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if ip := net.ParseIP(host); (ip == nil || !ip.IsLoopback()) && host != "localhost" {
			WriteError(w, r, http.StatusForbidden, "forbidden", "the engine only accepts local connections")
			return
		}
		next.ServeHTTP(w, r)
	})
}

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, X-Request-ID"
	corsExposed = "Content-Disposition, X-Request-ID"
)

// AllowOrigins admits browser requests only from the origins allowed()
// returns, read per request so config reloads apply. Requests without an
// Origin header (the CLI, the shell's native side) pass. Any other origin
// is refused with 403 before routing and gets no CORS headers.
func AllowOrigins(allowed func() []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !originAllowed(allowed(), origin) {
				log.Printf("level=warn msg=\"origin refused\" request_id=%s origin=%q method=%s path=%s",
					RequestIDFrom(r.Context()), origin, r.Method, r.URL.Path)
				WriteError(w, r, http.StatusForbidden, "origin_forbidden", "origin not allowed: "+origin)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposed)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(list []string, origin string) bool {
	want := config.NormalizeOrigin(origin)
	for _, o := range list {
		if config.NormalizeOrigin(o) == want {
			return true
		}
	}
	return false
}
