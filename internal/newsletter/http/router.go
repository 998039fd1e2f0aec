package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quillpost/quillpost/internal/newsletter/service"
	"github.com/quillpost/quillpost/internal/newsletter/session"
	"github.com/quillpost/quillpost/internal/newsletter/store"
	"github.com/quillpost/quillpost/pkg/httpx"
	"github.com/quillpost/quillpost/pkg/secretx"
	"github.com/quillpost/quillpost/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	sessions *session.Manager

	// hmacKey signs redirect query parameters for the sessionless login
	// error variant.
	hmacKey         secretx.Secret
	signedRedirects bool

	CredentialsService  *service.CredentialsService
	SubscriptionService *service.SubscriptionService
	PublishService      *service.PublishService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	sessions *session.Manager,
	hmacKey secretx.Secret,
	signedRedirects bool,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:             http.NewServeMux(),
		buildVersion:    buildVersion,
		startTime:       time.Now(),
		store:           st,
		sessions:        sessions,
		hmacKey:         hmacKey,
		signedRedirects: signedRedirects,
		logger:          logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSubscriptions()
	r.registerLogin()
	r.registerAdmin()
	r.registerNewsletters()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSubscriptions() {
	subscribeHandler := &SubscribeHandler{SubscriptionService: r.SubscriptionService}
	r.Mux.Handle("POST /subscriptions",
		httpx.Chain(subscribeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	confirmHandler := &ConfirmHandler{SubscriptionService: r.SubscriptionService}
	r.Mux.Handle("GET /subscriptions/confirm",
		httpx.Chain(confirmHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerLogin() {
	h := &LoginHandler{
		CredentialsService: r.CredentialsService,
		HMACKey:            r.hmacKey,
		SignedRedirects:    r.signedRedirects,
	}

	// GET /login - lenient rate limit (just renders the form)
	r.Mux.Handle("GET /login",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			SessionMiddleware(r.sessions),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /login - strict rate limit by IP + username to slow brute force
	r.Mux.Handle("POST /login",
		httpx.Chain(http.HandlerFunc(h.HandlePost),
			SessionMiddleware(r.sessions),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)
}

func (r *Router) registerAdmin() {
	secure := func(h http.Handler) http.Handler {
		return httpx.Chain(h,
			SessionMiddleware(r.sessions),
			RequireUser,
			httpx.RateLimitByIP(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("GET /admin/dashboard",
		secure(&DashboardHandler{Store: r.store}))
	r.Mux.Handle("POST /admin/password",
		secure(&ChangePasswordHandler{CredentialsService: r.CredentialsService}))
	r.Mux.Handle("POST /admin/logout",
		secure(&LogoutHandler{}))
}

func (r *Router) registerNewsletters() {
	h := &PublishHandler{
		CredentialsService: r.CredentialsService,
		PublishService:     r.PublishService,
	}
	r.Mux.Handle("POST /newsletters",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
