package mcpserver

import (
	"github.com/aurastack/aura/internal/agent"
	"github.com/aurastack/aura/internal/common/config"
	"github.com/aurastack/aura/internal/common/middleware"
	ctxstore "github.com/aurastack/aura/internal/context"
	"github.com/aurastack/aura/internal/protocol"
	"github.com/aurastack/aura/internal/tool"
	"github.com/aurastack/aura/pkg/metrics"
	"github.com/aurastack/aura/pkg/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server is the MCP server HTTP surface: context store, protocol
// message routing, tool registry and agent task execution.
type Server struct {
	logger   *zap.Logger
	store    ctxstore.Store
	tools    *tool.Registry
	agents   *agent.Registry
	protocol *protocol.Handler
	metrics  *metrics.Metrics
}

func NewServer(
	logger *zap.Logger,
	store ctxstore.Store,
	tools *tool.Registry,
	agents *agent.Registry,
	protocolHandler *protocol.Handler,
	m *metrics.Metrics,
) *Server {
	return &Server{
		logger:   logger.Named("mcpserver"),
		store:    store,
		tools:    tools,
		agents:   agents,
		protocol: protocolHandler,
		metrics:  m,
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

	router.POST("/contexts", s.handleContextCreate)
	router.GET("/contexts", s.handleContextList)
	router.GET("/contexts/:key", s.handleContextGet)
	router.PUT("/contexts/:key", s.handleContextUpdate)
	router.DELETE("/contexts/:key", s.handleContextDelete)

	router.POST("/database-contexts", s.handleDatabaseContextCreate)
	router.GET("/database-contexts/:connectionId", s.handleDatabaseContextGet)
	router.POST("/database-contexts/:connectionId/queries", s.handleRecordQuery)

	router.POST("/conversations", s.handleConversationAppend)
	router.GET("/conversations/:sessionId", s.handleConversationGet)

	router.POST("/messages", s.handleMessageRoute)
	router.GET("/messages", s.handleMessageQueue)

	router.GET("/tools", s.handleToolList)
	router.GET("/tools/:name", s.handleToolGet)
	router.POST("/tools/execute", s.handleToolExecute)

	router.GET("/agents", s.handleAgentList)
	router.GET("/agents/:id", s.handleAgentGet)
	router.POST("/agents/execute", s.handleAgentExecute)

	router.GET("/stats/contexts", s.handleContextStats)
	router.GET("/stats/protocol", s.handleProtocolStats)

	router.POST("/maintenance/clear-expired", s.handleClearExpired)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "healthy",
		"service": "mcp-server",
		"version": version.Get(),
	})
}
