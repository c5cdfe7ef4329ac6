package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"estatehub/internal/auth"
	"estatehub/internal/config"
)

// Limiter throttles guessing and mail sending. auth.RateLimiter implements it.
type Limiter interface {
	IsIPBanned(ctx context.Context, ip string) bool
	RegisterSignInFailure(ctx context.Context, ip string) (bool, error)
	ResetSignIn(ctx context.Context, ip string)
	RegisterAttempt(ctx context.Context, scope, ip string) (bool, time.Duration, error)
	ResetAttempts(ctx context.Context, scope, ip string)
	AcquireCooldown(ctx context.Context, scope, email string) (time.Duration, error)
}

type Auditor interface {
	Log(ctx context.Context, e auth.AuditEvent) error
}

type OAuthStates interface {
	Create(ctx context.Context, provider auth.Provider) (string, error)
	Consume(ctx context.Context, state string, provider auth.Provider) error
}

// Deps are the collaborators of the HTTP layer. Limiter, Audit, OAuth and
// OAuthStates are optional.
type Deps struct {
	Auth        *auth.Service
	Limiter     Limiter
	Audit       Auditor
	OAuth       *auth.OAuthProviders
	OAuthStates OAuthStates
	Log         *zap.Logger
}

type Server struct {
	Auth        *auth.Service
	Limiter     Limiter
	Audit       Auditor
	OAuth       *auth.OAuthProviders
	OAuthStates OAuthStates
	Config      config.Config
	Log         *zap.Logger

	cookies        auth.CookiePolicy
	trustedProxies proxySet
}

func NewServer(cfg config.Config, deps Deps) *Server {
	s := &Server{
		Auth:           deps.Auth,
		Limiter:        deps.Limiter,
		Audit:          deps.Audit,
		OAuth:          deps.OAuth,
		OAuthStates:    deps.OAuthStates,
		Config:         cfg,
		Log:            deps.Log,
		cookies:        auth.CookiePolicy{Secure: cfg.IsProduction()},
		trustedProxies: parseTrustedProxies(cfg.TrustedProxies),
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	s.Log = s.Log.Named("http")
	if s.Limiter == nil {
		s.Limiter = noopLimiter{}
	}
	if s.Audit == nil {
		s.Audit = noopAuditor{}
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders(s.Config.IsProduction()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.Config.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(withLocale)

	r.Get("/healthz", s.handleHealth)

	r.With(s.requireRoles(accessRoles(http.MethodPost, "/api/auth/sign-up"))).Post("/api/auth/sign-up", s.handleSignUp)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/api/auth/verify-email"))).Post("/api/auth/verify-email", s.handleVerifyEmail)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/api/auth/resend-verification"))).Post("/api/auth/resend-verification", s.handleResendVerification)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/api/auth/sign-in"))).Post("/api/auth/sign-in", s.handleSignIn)
	r.With(s.requireRoles(accessRoles(http.MethodGet, "/api/auth/refresh"))).Get("/api/auth/refresh", s.handleRefresh)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/api/auth/sign-out"))).Post("/api/auth/sign-out", s.handleSignOut)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/api/auth/forgot-password"))).Post("/api/auth/forgot-password", s.handleForgotPassword)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/api/auth/verify-otp"))).Post("/api/auth/verify-otp", s.handleVerifyOTP)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/api/auth/reset-password"))).Post("/api/auth/reset-password", s.handleResetPassword)

	r.With(s.requireRoles(accessRoles(http.MethodGet, "/api/oauth/failure"))).Get("/api/oauth/failure", s.handleOAuthFailure)
	r.With(s.requireRoles(accessRoles(http.MethodGet, "/api/oauth/{provider}"))).Get("/api/oauth/{provider}", s.handleOAuthStart)
	r.With(s.requireRoles(accessRoles(http.MethodGet, "/api/oauth/{provider}/callback"))).Get("/api/oauth/{provider}/callback", s.handleOAuthCallback)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)

		pr.With(s.requireRoles(accessRoles(http.MethodGet, "/api/auth/me"))).Get("/api/auth/me", s.handleMe)

		pr.With(s.requireRoles(accessRoles(http.MethodGet, "/api/users/profile"))).Get("/api/users/profile", s.handleProfile)
		pr.With(s.requireRoles(accessRoles(http.MethodPut, "/api/users/profile"))).Put("/api/users/profile", s.handleUpdateProfile)
		pr.With(s.requireRoles(accessRoles(http.MethodPut, "/api/users/change-password"))).Put("/api/users/change-password", s.handleChangePassword)
		pr.With(s.requireRoles(accessRoles(http.MethodDelete, "/api/users/delete"))).Delete("/api/users/delete", s.handleDeleteAccount)

		pr.With(s.requireRoles(accessRoles(http.MethodGet, "/api/admin/users"))).Get("/api/admin/users", s.handleListUsers)
		pr.With(s.requireRoles(accessRoles(http.MethodGet, "/api/admin/users/{id}"))).Get("/api/admin/users/{id}", s.handleGetUser)
		pr.With(s.requireRoles(accessRoles(http.MethodPatch, "/api/admin/users/{id}/role"))).Patch("/api/admin/users/{id}/role", s.handleSetRole)
		pr.With(s.requireRoles(accessRoles(http.MethodDelete, "/api/admin/users/{id}"))).Delete("/api/admin/users/{id}", s.handleDeleteUser)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.Auth.Store.Ping(ctx); err != nil {
		s.Log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) audit(r *http.Request, event, userID string, meta map[string]any) {
	err := s.Audit.Log(r.Context(), auth.AuditEvent{
		EventType: event,
		UserID:    userID,
		IP:        clientIP(r, s.trustedProxies),
		UserAgent: r.UserAgent(),
		Meta:      meta,
	})
	if err != nil {
		s.Log.Warn("audit log failed", zap.String("event", event), zap.Error(err))
	}
}

type noopLimiter struct{}

func (noopLimiter) IsIPBanned(context.Context, string) bool                     { return false }
func (noopLimiter) RegisterSignInFailure(context.Context, string) (bool, error) { return false, nil }
func (noopLimiter) ResetSignIn(context.Context, string)                         {}
func (noopLimiter) RegisterAttempt(context.Context, string, string) (bool, time.Duration, error) {
	return false, 0, nil
}
func (noopLimiter) ResetAttempts(context.Context, string, string) {}
func (noopLimiter) AcquireCooldown(context.Context, string, string) (time.Duration, error) {
	return 0, nil
}

type noopAuditor struct{}

func (noopAuditor) Log(context.Context, auth.AuditEvent) error { return nil }
