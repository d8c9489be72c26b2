package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medicare-api/internal/config"
	"github.com/jwalitptl/medicare-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers groups the route owners by the access they need.
type Handlers struct {
	Health Handler
	Auth   Handler

	// Authenticated mounts under a group that only requires a valid token;
	// each handler applies its own role guards.
	Authenticated []Handler

	// Staff mounts under a group restricted to staff tokens.
	Staff []Handler
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	MaxBodySize    int64
	RateLimit      config.RateLimitConfig
	CORS           config.CORSConfig
	MetricsPrefix  string
	Registerer     prometheus.Registerer
	ServiceName    string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, cfg RouterConfig) *Router {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = middleware.DefaultMaxBodySize
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "medicare-api"
	}

	engine := gin.New()
	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		metrics:  initRouterMetrics(cfg.MetricsPrefix, cfg.Registerer),
	}

	engine.Use(
		middleware.RequestID(),
		otelgin.Middleware(cfg.ServiceName),
		middleware.Recovery(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(middleware.CORSFromConfig(cfg.CORS)),
		middleware.SizeLimit(cfg.MaxBodySize),
		middleware.Timeout(cfg.RequestTimeout),
	)

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		engine.Use(limiter.RateLimit())
	}

	r.setup()
	return r
}

func (r *Router) setup() {
	api := r.engine.Group("/api/v1")

	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(api)
	}
	if r.handlers.Auth != nil {
		r.handlers.Auth.RegisterRoutes(api)
	}

	protected := api.Group("", r.auth.Authenticate())
	for _, h := range r.handlers.Authenticated {
		h.RegisterRoutes(protected)
	}

	staff := protected.Group("", r.auth.RequireStaff())
	for _, h := range r.handlers.Staff {
		h.RegisterRoutes(staff)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string, reg prometheus.Registerer) *routerMetrics {
	if prefix == "" {
		prefix = "medicare_http"
	}
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "class"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	}
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Unmatched routes share one label so path cardinality stays bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := c.Writer.Status()
		status := strconv.Itoa(code)

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		switch {
		case code >= 500:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "server").Inc()
		case code >= 400:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "client").Inc()
		}
	}
}
