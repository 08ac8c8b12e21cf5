package gateway

import (
	"net/http"

	"github.com/aurastack/aura/internal/common/errorx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// defaultSchemaContext is used when the caller supplies no schema.
const defaultSchemaContext = "Schema: sales_table(product_name, total_revenue, sale_date)"

type generateQueryRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Prompt    string `json:"prompt" binding:"required"`
	Context   string `json:"context"`
}

func (s *Server) handleGenerateQuery(c *gin.Context) {
	var req generateQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}
	if req.Context == "" {
		req.Context = defaultSchemaContext
	}

	outcome, err := s.orchestrator.GenerateQuery(c.Request.Context(), req.SessionID, req.Prompt, req.Context)
	if err != nil {
		s.logger.Error("query generation failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		errorx.RespondWithError(c, errorx.ErrUpstream.WithDetail("reason", err.Error()))
		return
	}

	c.JSON(http.StatusOK, outcome)
}
