package dbservice

import (
	"github.com/aurastack/aura/internal/common/config"
	"github.com/aurastack/aura/internal/common/middleware"
	"github.com/aurastack/aura/internal/connection"
	"github.com/aurastack/aura/pkg/metrics"
	"github.com/aurastack/aura/pkg/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server is the database connectivity service HTTP surface.
type Server struct {
	logger  *zap.Logger
	manager *connection.Manager
	metrics *metrics.Metrics
}

func NewServer(logger *zap.Logger, manager *connection.Manager, m *metrics.Metrics) *Server {
	return &Server{
		logger:  logger.Named("dbservice"),
		manager: manager,
		metrics: m,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router(cors config.CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(s.logger),
		middleware.RequestLogger(s.logger),
		middleware.CORS(cors.AllowOrigins),
		s.metrics.Middleware(),
	)

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	router.POST("/connections", s.handleConnectionCreate)
	router.GET("/connections", s.handleConnectionList)
	router.GET("/connections/:id", s.handleConnectionGet)
	router.DELETE("/connections/:id", s.handleConnectionDelete)
	router.POST("/connections/:id/test", s.handleConnectionTest)
	router.GET("/connections/:id/schema", s.handleSchemaGet)
	router.POST("/connections/:id/query", s.handleQueryExecute)

	router.GET("/supported-databases", s.handleSupportedDatabases)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":      "healthy",
		"service":     "database-svc",
		"version":     version.Get(),
		"connections": len(s.manager.List()),
	})
}
