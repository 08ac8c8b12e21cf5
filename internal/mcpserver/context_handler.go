package mcpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aurastack/aura/internal/common/errorx"
	ctxstore "github.com/aurastack/aura/internal/context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type contextRequest struct {
	AgentID     string         `json:"agent_id" binding:"required"`
	SessionID   string         `json:"session_id" binding:"required"`
	ContextType string         `json:"context_type" binding:"required"`
	Data        map[string]any `json:"data"`
	Metadata    map[string]any `json:"metadata"`
	TTLSeconds  int            `json:"ttl_seconds"`
}

// splitContextKey parses an "agentID:sessionID:type" path key.
func splitContextKey(key string) (agentID, sessionID, contextType string, err error) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", errorx.ValidationError("key", "expected agent_id:session_id:context_type")
	}
	return parts[0], parts[1], parts[2], nil
}

func (s *Server) handleContextCreate(c *gin.Context) {
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}

	ac := &ctxstore.AgentContext{
		AgentID:   req.AgentID,
		SessionID: req.SessionID,
		Type:      req.ContextType,
		Data:      req.Data,
		Metadata:  req.Metadata,
		TTL:       time.Duration(req.TTLSeconds) * time.Second,
	}
	if err := s.store.Set(c.Request.Context(), ac); err != nil {
		s.metrics.ContextOp("set", "error")
		errorx.RespondWithError(c, err)
		return
	}
	s.metrics.ContextOp("set", "ok")

	c.JSON(http.StatusCreated, gin.H{
		"key":     ac.Key(),
		"context": ac,
	})
}

func (s *Server) handleContextGet(c *gin.Context) {
	agentID, sessionID, contextType, err := splitContextKey(c.Param("key"))
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}

	ac, err := s.store.Get(c.Request.Context(), agentID, sessionID, contextType)
	if err != nil {
		if errors.Is(err, ctxstore.ErrContextNotFound) {
			s.metrics.ContextOp("get", "miss")
			errorx.RespondWithError(c, errorx.NotFoundError("context", c.Param("key")))
			return
		}
		s.metrics.ContextOp("get", "error")
		errorx.RespondWithError(c, err)
		return
	}
	s.metrics.ContextOp("get", "ok")
	c.JSON(http.StatusOK, ac)
}

func (s *Server) handleContextUpdate(c *gin.Context) {
	agentID, sessionID, contextType, err := splitContextKey(c.Param("key"))
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}

	var req struct {
		Data map[string]any `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}

	ac, err := s.store.Update(c.Request.Context(), agentID, sessionID, contextType, req.Data)
	if err != nil {
		if errors.Is(err, ctxstore.ErrContextNotFound) {
			s.metrics.ContextOp("update", "miss")
			errorx.RespondWithError(c, errorx.NotFoundError("context", c.Param("key")))
			return
		}
		s.metrics.ContextOp("update", "error")
		errorx.RespondWithError(c, err)
		return
	}
	s.metrics.ContextOp("update", "ok")
	c.JSON(http.StatusOK, ac)
}

func (s *Server) handleContextDelete(c *gin.Context) {
	agentID, sessionID, contextType, err := splitContextKey(c.Param("key"))
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}

	if err := s.store.Delete(c.Request.Context(), agentID, sessionID, contextType); err != nil {
		s.metrics.ContextOp("delete", "error")
		errorx.RespondWithError(c, err)
		return
	}
	s.metrics.ContextOp("delete", "ok")
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "key": c.Param("key")})
}

func (s *Server) handleContextList(c *gin.Context) {
	agentID := c.Query("agent_id")
	sessionID := c.Query("session_id")
	contextType := c.Query("context_type")

	contexts, err := s.store.List(c.Request.Context(), agentID, sessionID)
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	if contextType != "" {
		filtered := contexts[:0]
		for _, ac := range contexts {
			if ac.Type == contextType {
				filtered = append(filtered, ac)
			}
		}
		contexts = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"contexts": contexts,
		"count":    len(contexts),
	})
}

func (s *Server) handleDatabaseContextCreate(c *gin.Context) {
	var dc ctxstore.DatabaseContext
	if err := c.ShouldBindJSON(&dc); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}
	if dc.ConnectionID == "" {
		errorx.RespondWithError(c, errorx.ValidationError("connection_id", "must not be empty"))
		return
	}

	if err := s.store.SetDatabaseContext(c.Request.Context(), &dc); err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &dc)
}

func (s *Server) handleDatabaseContextGet(c *gin.Context) {
	connectionID := c.Param("connectionId")

	dc, err := s.store.GetDatabaseContext(c.Request.Context(), connectionID)
	if err != nil {
		if errors.Is(err, ctxstore.ErrContextNotFound) {
			errorx.RespondWithError(c, errorx.NotFoundError("database context", connectionID))
			return
		}
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dc)
}

func (s *Server) handleRecordQuery(c *gin.Context) {
	connectionID := c.Param("connectionId")

	var req struct {
		AgentID string `json:"agent_id"`
		Query   string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}

	if err := s.store.RecordQuery(c.Request.Context(), connectionID, req.AgentID, req.Query); err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded", "connection_id": connectionID})
}

func (s *Server) handleConversationAppend(c *gin.Context) {
	var req struct {
		SessionID string         `json:"session_id" binding:"required"`
		AgentID   string         `json:"agent_id"`
		Role      string         `json:"role" binding:"required"`
		Content   string         `json:"content" binding:"required"`
		Metadata  map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}

	turn := &ctxstore.Turn{
		AgentID:   req.AgentID,
		Role:      req.Role,
		Content:   req.Content,
		Metadata:  req.Metadata,
		Timestamp: time.Now(),
	}
	if err := s.store.AppendTurn(c.Request.Context(), req.SessionID, turn); err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "appended", "session_id": req.SessionID})
}

func (s *Server) handleConversationGet(c *gin.Context) {
	sessionID := c.Param("sessionId")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			errorx.RespondWithError(c, errorx.ValidationError("limit", "must be an integer"))
			return
		}
		limit = parsed
	}

	turns, err := s.store.Conversation(c.Request.Context(), sessionID, limit)
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"turns":      turns,
		"count":      len(turns),
	})
}

func (s *Server) handleContextStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleClearExpired(c *gin.Context) {
	removed, err := s.store.ClearExpired(c.Request.Context())
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	s.protocol.ClearProcessed()
	s.logger.Info("cleared expired contexts", zap.Int("removed", removed))
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
