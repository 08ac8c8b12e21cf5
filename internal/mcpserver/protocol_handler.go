package mcpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/aurastack/aura/internal/agent"
	"github.com/aurastack/aura/internal/common/errorx"
	"github.com/aurastack/aura/internal/protocol"
	"github.com/aurastack/aura/internal/tool"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleMessageRoute(c *gin.Context) {
	var msg protocol.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}
	if msg.MessageType == "" || msg.SenderID == "" {
		errorx.RespondWithError(c, errorx.ValidationError("message", "message_type and sender_id are required"))
		return
	}

	result := s.protocol.Route(c.Request.Context(), &msg)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

func (s *Server) handleMessageQueue(c *gin.Context) {
	messages := s.protocol.Queue(c.Query("session_id"))
	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

func (s *Server) handleProtocolStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.protocol.Stats())
}

func (s *Server) handleToolList(c *gin.Context) {
	var tools []*tool.Tool
	if category := c.Query("category"); category != "" {
		tools = s.tools.ListByCategory(category)
	} else {
		tools = s.tools.List()
	}
	c.JSON(http.StatusOK, gin.H{
		"tools": tools,
		"count": len(tools),
	})
}

func (s *Server) handleToolGet(c *gin.Context) {
	name := c.Param("name")
	t, err := s.tools.Get(name)
	if err != nil {
		errorx.RespondWithError(c, errorx.NotFoundError("tool", name))
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleToolExecute(c *gin.Context) {
	var req struct {
		ToolName   string         `json:"tool_name" binding:"required"`
		Parameters map[string]any `json:"parameters"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}
	if req.Parameters == nil {
		req.Parameters = make(map[string]any)
	}

	started := time.Now()
	result, err := s.tools.Execute(c.Request.Context(), req.ToolName, req.Parameters)
	if err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			s.metrics.ToolExecDone(req.ToolName, started, "not_found")
			errorx.RespondWithError(c, errorx.NotFoundError("tool", req.ToolName))
			return
		}
		s.metrics.ToolExecDone(req.ToolName, started, "error")
		c.JSON(http.StatusOK, gin.H{
			"tool_name": req.ToolName,
			"success":   false,
			"error":     err.Error(),
		})
		return
	}
	s.metrics.ToolExecDone(req.ToolName, started, "ok")

	c.JSON(http.StatusOK, gin.H{
		"tool_name": req.ToolName,
		"success":   true,
		"result":    result,
	})
}

func (s *Server) handleAgentList(c *gin.Context) {
	infos := s.agents.List()
	c.JSON(http.StatusOK, gin.H{
		"agents": infos,
		"count":  len(infos),
	})
}

func (s *Server) handleAgentGet(c *gin.Context) {
	id := c.Param("id")
	a, err := s.agents.Get(id)
	if err != nil {
		errorx.RespondWithError(c, errorx.NotFoundError("agent", id))
		return
	}
	c.JSON(http.StatusOK, a.Info())
}

func (s *Server) handleAgentExecute(c *gin.Context) {
	var req struct {
		AgentID     string         `json:"agent_id" binding:"required"`
		TaskType    string         `json:"task_type" binding:"required"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}

	a, err := s.agents.Get(req.AgentID)
	if err != nil {
		errorx.RespondWithError(c, errorx.NotFoundError("agent", req.AgentID))
		return
	}

	task := agent.NewTask(req.TaskType, req.Description, req.Parameters)
	task = a.ExecuteTask(c.Request.Context(), task)
	c.JSON(http.StatusOK, task)
}
