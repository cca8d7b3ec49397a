package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/metrics"
	"github.com/aussiebroadwan/identity/internal/identity/service"
	"github.com/aussiebroadwan/identity/internal/identity/store"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/slogx"

	_ "github.com/aussiebroadwan/identity/api/identity" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	guard        *httpx.Guard

	Sessions *service.SessionManager
	Tokens   *service.TokenService
	Metrics  *metrics.Metrics

	// RateLimitScale multiplies every rate limit profile. Zero leaves them as is.
	RateLimitScale float64
}

func NewRouter(
	sessions *service.SessionManager,
	buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	// Session outcomes land on the same registry /metrics serves.
	if sessions.Metrics == nil {
		sessions.Metrics = m
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		Sessions:     sessions,
		Tokens:       sessions.Tokens,
		Metrics:      m,
	}

	r.guard = &httpx.Guard{
		Verifier:   sessions,
		Principals: sessions,
		Observe:    m.Authorize,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPrincipal()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Identity Service API
//	@version		0.1.0
//	@description	Credential and session lifecycle: password sign-in, emailed one-time codes for
//	@description	elevated accounts, HS256 access and refresh tokens, sign-out and role-guarded routes.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/identity
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token (or refresh token on /v1/auth/refresh). Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) limit(cfg httpx.RateLimitConfig) httpx.RateLimitConfig {
	return cfg.Scale(r.RateLimitScale)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Sessions: r.Sessions, Tokens: r.Tokens}

	// Credential endpoints are not throttled here; that is the edge's job.
	r.Mux.HandleFunc("POST /v1/auth/signin", h.HandleSignIn)
	r.Mux.HandleFunc("POST /v1/auth/verify-otp", h.HandleVerifyOTP)

	// The refresh token is checked by the handler itself, so limit by IP.
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.limit(httpx.SessionLimit)),
		),
	)

	r.Mux.Handle("POST /v1/auth/signout",
		httpx.Chain(http.HandlerFunc(h.HandleSignOut),
			httpx.AuthnMiddleware(r.guard),
			httpx.RateLimitByPrincipal(r.limit(httpx.SessionLimit)),
		),
	)
}

func (r *Router) registerPrincipal() {
	h := &MeHandler{Sessions: r.Sessions}

	r.Mux.Handle("GET /v1/me",
		httpx.Chain(h,
			httpx.AuthnMiddleware(r.guard),
			httpx.RateLimitByPrincipal(r.limit(httpx.ReadLimit)),
		),
	)
}

func (r *Router) registerAdmin() {
	r.Mux.Handle("GET /v1/admin/ping",
		httpx.Chain(http.HandlerFunc(AdminPingHandler),
			httpx.AuthnMiddleware(r.guard, domain.RoleNames(domain.RoleElevated)...),
			httpx.RateLimitByPrincipal(r.limit(httpx.ReadLimit)),
		),
	)
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limit(httpx.PublicLimit)),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(r.limit(httpx.PublicLimit)),
		),
	)
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
