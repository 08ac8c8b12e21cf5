package gateway

import (
	"github.com/aurastack/aura/internal/agent"
	"github.com/aurastack/aura/internal/auth/jwt"
	"github.com/aurastack/aura/internal/common/config"
	"github.com/aurastack/aura/internal/common/middleware"
	"github.com/aurastack/aura/internal/file"
	"github.com/aurastack/aura/pkg/metrics"
	"github.com/aurastack/aura/pkg/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server is the API gateway: SQL generation, agent proxying, file
// uploads and token issuance.
type Server struct {
	logger       *zap.Logger
	cfg          *config.GatewayConfig
	orchestrator *agent.Orchestrator
	files        *file.Service
	jwtService   *jwt.Service
	metrics      *metrics.Metrics
}

// NewServer wires the gateway. jwtService may be nil; auth routes and
// middleware are only installed when it is configured.
func NewServer(
	logger *zap.Logger,
	cfg *config.GatewayConfig,
	orchestrator *agent.Orchestrator,
	files *file.Service,
	jwtService *jwt.Service,
	m *metrics.Metrics,
) *Server {
	return &Server{
		logger:       logger.Named("gateway"),
		cfg:          cfg,
		orchestrator: orchestrator,
		files:        files,
		jwtService:   jwtService,
		metrics:      m,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(s.logger),
		middleware.RequestLogger(s.logger),
		middleware.CORS(s.cfg.CORS.AllowOrigins),
		s.metrics.Middleware(),
	)

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	protected := router.Group("/")
	if s.jwtService != nil {
		router.POST("/auth/token", s.handleTokenIssue)
		protected.Use(middleware.JWTAuth(s.jwtService))
	}

	protected.POST("/generate_query", s.handleGenerateQuery)

	protected.POST("/files/upload", s.handleFileUpload)
	router.GET("/files", s.handleFileList)
	router.GET("/files/:id", s.handleFileGet)
	protected.DELETE("/files/:id", s.handleFileDelete)

	s.registerProxy(router, "/agent", s.cfg.Routes.AgentServiceURL)
	s.registerProxy(router, "/db", s.cfg.Routes.DatabaseServiceURL)

	return router
}

func (s *Server) registerProxy(router *gin.Engine, prefix, rawURL string) {
	if rawURL == "" {
		return
	}
	proxy, err := s.newProxy(prefix, rawURL)
	if err != nil {
		s.logger.Error("proxy route disabled",
			zap.String("prefix", prefix),
			zap.String("url", rawURL),
			zap.Error(err))
		return
	}
	router.Any(prefix+"/*path", proxy)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "healthy",
		"service": "gateway",
		"version": version.Get(),
	})
}
