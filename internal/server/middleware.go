package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"estatehub/internal/auth"
	"estatehub/internal/i18n"
)

type ctxKey string

const identityContextKey ctxKey = "identity"

// requireAuth is the auth gate. It resolves the caller from the access cookie,
// falling back to the refresh cookie, and sets a renewed access cookie when
// the fallback was used.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.Auth.ResolveIdentity(r.Context(),
			auth.ReadCookie(r, auth.AccessCookieName),
			auth.ReadCookie(r, auth.RefreshCookieName),
		)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if id.RenewedAccess != "" {
			s.cookies.SetAccess(w, id.RenewedAccess, id.AccessExpires)
		}

		ctx := context.WithValue(r.Context(), identityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireRoles(roles []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicAccess(roles) {
				next.ServeHTTP(w, r)
				return
			}

			id := identityFromContext(r.Context())
			if id == nil {
				s.writeError(w, r, auth.ErrNotAuthenticated)
				return
			}

			if !roleAllowed(roles, string(id.User.Role)) {
				s.writeError(w, r, auth.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func identityFromContext(ctx context.Context) *auth.Identity {
	if val, ok := ctx.Value(identityContextKey).(*auth.Identity); ok {
		return val
	}
	return nil
}

func currentUser(r *http.Request) *auth.User {
	if id := identityFromContext(r.Context()); id != nil {
		return id.User
	}
	return nil
}

// withLocale makes the Accept-Language choice available to mail composition.
func withLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := i18n.WithLocale(r.Context(), i18n.LocaleFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request at a level chosen by status class.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", clientIP(r, s.trustedProxies)),
		}
		switch {
		case status >= http.StatusInternalServerError:
			s.Log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			s.Log.Warn("request", fields...)
		default:
			s.Log.Info("request", fields...)
		}
	})
}
