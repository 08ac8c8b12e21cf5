package gateway

import (
	"net/http"

	"github.com/aurastack/aura/internal/common/errorx"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleFileUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		errorx.RespondWithError(c, errorx.ErrBadRequest.
			WithMessage("multipart form must include a %q field", "file").
			WithDetail("reason", err.Error()))
		return
	}

	src, err := header.Open()
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	defer src.Close()

	meta, err := s.files.Save(header.Filename, header.Size, src)
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meta)
}

func (s *Server) handleFileList(c *gin.Context) {
	files := s.files.List()
	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"count": len(files),
	})
}

func (s *Server) handleFileGet(c *gin.Context) {
	meta, err := s.files.Get(c.Param("id"))
	if err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (s *Server) handleFileDelete(c *gin.Context) {
	id := c.Param("id")
	if err := s.files.Delete(id); err != nil {
		errorx.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "file_id": id})
}
