package dbservice

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aurastack/aura/internal/common/errorx"
	"github.com/aurastack/aura/internal/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createConnectionRequest struct {
	Name             string         `json:"name" binding:"required"`
	Type             string         `json:"type" binding:"required"`
	Host             string         `json:"host"`
	Port             int            `json:"port"`
	Database         string         `json:"database"`
	Username         string         `json:"username"`
	Password         string         `json:"password"`
	SSLEnabled       bool           `json:"ssl_enabled"`
	ConnectionString string         `json:"connection_string"`
	Metadata         map[string]any `json:"metadata"`
}

type queryRequest struct {
	ConnectionID string `json:"connection_id"`
	Query        string `json:"query" binding:"required"`
	Limit        int    `json:"limit"`
}

func (s *Server) handleConnectionCreate(c *gin.Context) {
	var req createConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}

	dbType := connection.DatabaseType(req.Type)
	port := req.Port
	if port == 0 {
		port = dbType.DefaultPort()
	}
	conn := &connection.Connection{
		Name:             req.Name,
		Type:             dbType,
		Host:             req.Host,
		Port:             port,
		Database:         req.Database,
		Username:         req.Username,
		Password:         req.Password,
		SSLEnabled:       req.SSLEnabled,
		ConnectionString: req.ConnectionString,
		Metadata:         req.Metadata,
	}

	id, err := s.manager.Add(c.Request.Context(), conn)
	if err != nil {
		s.logger.Warn("connection registration failed",
			zap.String("name", req.Name),
			zap.String("type", req.Type),
			zap.Error(err))
		errorx.RespondWithError(c, errorx.ErrBadRequest.
			WithMessage("failed to establish connection").
			WithDetail("reason", err.Error()))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"connection_id": id,
		"connection":    conn,
	})
}

func (s *Server) handleConnectionList(c *gin.Context) {
	connections := s.manager.List()
	c.JSON(http.StatusOK, gin.H{
		"connections": connections,
		"count":       len(connections),
	})
}

func (s *Server) handleConnectionGet(c *gin.Context) {
	id := c.Param("id")
	conn, err := s.manager.Get(id)
	if err != nil {
		errorx.RespondWithError(c, errorx.NotFoundError("connection", id))
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (s *Server) handleConnectionDelete(c *gin.Context) {
	id := c.Param("id")
	if err := s.manager.Remove(id); err != nil {
		errorx.RespondWithError(c, errorx.NotFoundError("connection", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "connection_id": id})
}

func (s *Server) handleConnectionTest(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.manager.Get(id); err != nil {
		errorx.RespondWithError(c, errorx.NotFoundError("connection", id))
		return
	}

	if err := s.manager.Test(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"connection_id": id,
			"status":        "unreachable",
			"error":         err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connection_id": id,
		"status":        "connected",
	})
}

func (s *Server) handleSchemaGet(c *gin.Context) {
	id := c.Param("id")

	refresh := false
	if raw := c.Query("refresh"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			errorx.RespondWithError(c, errorx.ValidationError("refresh", "must be a boolean"))
			return
		}
		refresh = parsed
	}

	schema, err := s.manager.GetSchema(c.Request.Context(), id, refresh)
	if err != nil {
		if errors.Is(err, connection.ErrConnectionNotFound) {
			errorx.RespondWithError(c, errorx.NotFoundError("connection", id))
			return
		}
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (s *Server) handleQueryExecute(c *gin.Context) {
	id := c.Param("id")

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}
	if req.ConnectionID != "" && req.ConnectionID != id {
		errorx.RespondWithError(c, errorx.ValidationError("connection_id", "does not match the path connection"))
		return
	}

	conn, err := s.manager.Get(id)
	if err != nil {
		errorx.RespondWithError(c, errorx.NotFoundError("connection", id))
		return
	}

	started := time.Now()
	result, err := s.manager.ExecuteQuery(c.Request.Context(), id, req.Query, req.Limit)
	if err != nil {
		s.metrics.QueryExecDone(string(conn.Type), started, "error")
		errorx.RespondWithError(c, errorx.ErrBadRequest.
			WithMessage("query execution failed").
			WithDetail("reason", err.Error()))
		return
	}
	s.metrics.QueryExecDone(string(conn.Type), started, "ok")

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSupportedDatabases(c *gin.Context) {
	databases := make([]gin.H, 0, len(connection.AllDatabaseTypes))
	for _, t := range connection.AllDatabaseTypes {
		databases = append(databases, gin.H{
			"type":         t,
			"name":         titleCase(string(t)),
			"default_port": t.DefaultPort(),
			"supports_ssl": true,
			"description":  t.Description(),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"databases": databases,
		"count":     len(databases),
	})
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
