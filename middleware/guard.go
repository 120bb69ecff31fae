// Package middleware exposes HTTP adapters for the authentication engine.
//
// [RequireAuth] reads the Authorization header, calls Engine.Authenticate,
// and injects the caller's profile into the request context;
// [RequirePermission] additionally checks one capability.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// the engine.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/donorhub/authcore"
)

type profileContextKey struct{}

// ProfileFromContext returns the authenticated caller injected by
// [RequireAuth], if any.
func ProfileFromContext(ctx context.Context) (*authcore.Profile, bool) {
	p, ok := ctx.Value(profileContextKey{}).(*authcore.Profile)
	return p, ok
}

// RequireAuth rejects requests without a valid access token and live
// session. The caller's profile, client IP, and user agent are attached to
// the request context for downstream handlers.
func RequireAuth(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := requestContext(r)
			profile, err := engine.Authenticate(ctx, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, profileContextKey{}, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission behaves like [RequireAuth] and additionally rejects
// callers whose role does not grant capability.
func RequirePermission(engine *authcore.Engine, capability string) func(http.Handler) http.Handler {
	requireAuth := RequireAuth(engine)
	return func(next http.Handler) http.Handler {
		return requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := ProfileFromContext(r.Context())
			if !ok || !engine.HasPermission(r.Context(), profile.ID, capability) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// requestContext decorates the request context with the client address and
// user agent so the engine can record them.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ctx = authcore.WithClientIP(ctx, host)
	} else if r.RemoteAddr != "" {
		ctx = authcore.WithClientIP(ctx, r.RemoteAddr)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = authcore.WithUserAgent(ctx, ua)
	}
	return ctx
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}
