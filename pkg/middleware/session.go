package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
	"github.com/utafrali/storefront-cart/pkg/httputil"
)

// SessionHeader carries the storefront session that owns a cart. The
// storefront issues it on first visit; it is not an authentication token.
const SessionHeader = "X-Session-ID"

// SessionQueryParam is read when the header is absent. Browser EventSource
// connections cannot set headers.
const SessionQueryParam = "session"

// maxSessionIDLen bounds the header so it cannot blow up store keys.
const maxSessionIDLen = 128

type contextKeyType string

const sessionIDKey contextKeyType = "session_id"

// SessionIDFromHeader reads the X-Session-ID header, falling back to the
// session query parameter, and stores it in the request context. Requests
// without a usable session are rejected with 401.
func SessionIDFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := rawSessionID(r)
		if sid == "" || len(sid) > maxSessionIDLen || strings.ContainsAny(sid, ": \t") {
			httputil.WriteError(w, r, apperrors.Unauthorized("a valid X-Session-ID header is required"), slog.Default())
			return
		}
		ctx := context.WithValue(r.Context(), sessionIDKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rawSessionID returns the unvalidated session carried by the request.
func rawSessionID(r *http.Request) string {
	if sid := strings.TrimSpace(r.Header.Get(SessionHeader)); sid != "" {
		return sid
	}
	return strings.TrimSpace(r.URL.Query().Get(SessionQueryParam))
}

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// NoStore marks responses as uncacheable. Cart payloads are per-session and
// change on every mutation.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
