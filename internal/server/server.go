// Package server wires the HTTP surface: the gin engine, auth middleware,
// the /v1/messages dispatcher, and the read-only dashboard API.
package server

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/alexwday/cc-launcher/internal/config"
	"github.com/alexwday/cc-launcher/internal/oauth"
	"github.com/alexwday/cc-launcher/internal/usage"
)

// Server owns every collaborator the HTTP handlers need.
type Server struct {
	cfg        *config.Config
	mapper     *config.ModelMapper
	tracker    *usage.Tracker
	tokenCache *oauth.Cache
	httpClient *http.Client
	engine     *gin.Engine
}

// New builds a Server and registers its routes. mapper must be non-nil;
// tokenCache may be nil (it always is, unless cfg.IsOAuthConfigured()).
func New(cfg *config.Config, mapper *config.ModelMapper, tracker *usage.Tracker, tokenCache *oauth.Cache) *Server {
	transport := &http.Transport{}
	if cfg.SkipSSLVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		logrus.Warn("SKIP_SSL_VERIFY is enabled; TLS certificate verification is disabled for the target endpoint")
	}

	s := &Server{
		cfg:        cfg,
		mapper:     mapper,
		tracker:    tracker,
		tokenCache: tokenCache,
		httpClient: &http.Client{Transport: transport},
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())

	s.engine = engine
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine, e.g. for http.ListenAndServe.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1", s.proxyAuthMiddleware())
	v1.POST("/messages", s.handleMessages)
	v1.POST("/messages/count_tokens", s.handleCountTokens)

	if s.cfg.DashboardEnabled {
		dash := s.engine.Group("/dashboard", s.dashboardAuthMiddleware())
		dash.GET("/health", s.handleDashboardHealth)
		dash.GET("/stats", s.handleDashboardStats)
		dash.GET("/calls", s.handleDashboardCalls)
		dash.POST("/probe", s.handleDashboardProbe)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("handled request")
	}
}
