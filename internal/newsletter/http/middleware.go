package http

import (
	"context"
	"net/http"

	"github.com/quillpost/quillpost/internal/newsletter/session"
	"github.com/quillpost/quillpost/pkg/httpx"
	"github.com/quillpost/quillpost/pkg/slogx"
)

// SessionCookieName carries the opaque session id. The cookie is HttpOnly
// and SameSite=Lax; Secure is left to the TLS-terminating proxy config.
const SessionCookieName = "quillpost_session"

type sessionCtxKey struct{}

// SessionMiddleware resolves the request's session from its cookie and
// stashes it in the context. A storage fault fails the request outright so
// nothing downstream runs with half-loaded session state.
func SessionMiddleware(m *session.Manager) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var id string
			if c, err := r.Cookie(SessionCookieName); err == nil {
				id = c.Value
			}

			sess, err := m.Load(ctx, id)
			if err != nil {
				slogx.FromContext(ctx).Error("failed to load session", "error", err)
				httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
					Error:            "server_error",
					ErrorDescription: "Something went wrong",
				})
				return
			}

			ctx = context.WithValue(ctx, sessionCtxKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the request session placed by SessionMiddleware,
// or nil when the route is not session-aware.
func SessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(*session.Session)
	return sess
}

// RequireUser redirects anonymous requests to the login form. It must run
// after SessionMiddleware.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil {
			httpx.SeeOther(w, r, "/login")
			return
		}
		if _, ok := sess.UserID(); !ok {
			httpx.SeeOther(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeSessionCookie (re)issues the session cookie when the session id
// changed during the request.
func writeSessionCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
