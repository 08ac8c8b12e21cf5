package gateway

import (
	"crypto/subtle"
	"net/http"

	"github.com/aurastack/aura/internal/common/errorx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleTokenIssue exchanges the configured admin credentials for a
// bearer token.
func (s *Server) handleTokenIssue(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.WithDetail("reason", err.Error()))
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.JWT.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.JWT.AdminPassword)) == 1
	if !userOK || !passOK {
		s.logger.Warn("token request rejected", zap.String("username", req.Username))
		errorx.RespondWithError(c, errorx.ErrUnauthorized.WithMessage("invalid credentials"))
		return
	}

	token, err := s.jwtService.GenerateToken(req.Username, "admin")
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(s.jwtService.Duration().Seconds()),
	})
}
