package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/codelinker-admin/internal/metrics"
)

// Router wires the HTTP surface together.
type Router struct {
	authHandler    *AuthHandler
	userHandler    *UserHandler
	healthHandler  *HealthHandler
	authMiddleware func(http.Handler) http.Handler
	staticDir      string
	logger         zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AuthHandler    *AuthHandler
	UserHandler    *UserHandler
	HealthHandler  *HealthHandler
	AuthMiddleware func(http.Handler) http.Handler
	StaticDir      string
	Logger         zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		authHandler:    config.AuthHandler,
		userHandler:    config.UserHandler,
		healthHandler:  config.HealthHandler,
		authMiddleware: config.AuthMiddleware,
		staticDir:      config.StaticDir,
		logger:         config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(metrics.Middleware)
	r.Use(rt.requestLogger)

	r.Post("/login", rt.authHandler.Login)
	r.Get("/system/health", rt.healthHandler.Health)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/admin", func(r chi.Router) {
		r.Use(rt.authMiddleware)

		r.Route("/user", func(r chi.Router) {
			r.Post("/create", rt.userHandler.Create)
			r.Get("/user_info", rt.userHandler.Info)
			r.Delete("/delete_user", rt.userHandler.Delete)
			r.Put("/update_user", rt.userHandler.Update)
			r.Put("/forget_password", rt.userHandler.ForgetPassword)
		})

		r.Route("/user_self", func(r chi.Router) {
			r.Put("/change_username_password", rt.userHandler.SelfChange)
		})
	})

	if rt.staticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(rt.staticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}

// requestLogger logs one line per handled request.
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		rt.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("request handled")
	})
}
