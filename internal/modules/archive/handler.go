package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clauselens/core/internal/pkg/response"
)

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.Named("archive")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, ownerMW gin.HandlerFunc) {
	g := rg.Group("/archive", ownerMW)
	g.GET("", h.list)
	g.POST("/export", h.export)
	g.GET("/:filename", h.download)
	g.DELETE("/:filename", h.remove)
	g.POST("/import", h.restore)
}

// GET /archive
func (h *Handler) list(c *gin.Context) {
	response.OK(c, gin.H{"data": h.svc.List()})
}

// POST /archive/export?upload=true
func (h *Handler) export(c *gin.Context) {
	now := time.Now()
	artifact, err := h.svc.CreateLocal(now)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.logger.Info("archive created", zap.String("filename", artifact.Filename))

	result := gin.H{
		"filename": artifact.Filename,
		"size":     formatSize(int64(artifact.Buffer.Len())),
	}
	if c.Query("upload") == "true" {
		key, err := h.svc.UploadS3(c.Request.Context(), artifact, now)
		if err != nil {
			response.UnprocessableEntity(c, fmt.Sprintf("archive saved but upload failed: %v", err))
			return
		}
		h.logger.Info("archive uploaded", zap.String("key", key))
		result["s3_key"] = key
	}
	response.OK(c, result)
}

// GET /archive/:filename
func (h *Handler) download(c *gin.Context) {
	data, err := h.svc.Read(c.Param("filename"))
	if err != nil {
		response.NotFound(c)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Param("filename")))
	c.Data(http.StatusOK, "application/zip", data)
}

// DELETE /archive/:filename
func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Param("filename")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

// POST /archive/import — multipart "file" upload, or "filename" form field
// naming a stored archive.
func (h *Handler) restore(c *gin.Context) {
	var payload []byte
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			response.BadRequest(c, "cannot open uploaded file")
			return
		}
		defer f.Close()
		payload, err = io.ReadAll(f)
		if err != nil {
			response.BadRequest(c, "cannot read uploaded file")
			return
		}
	} else if filename := c.PostForm("filename"); filename != "" {
		data, err := h.svc.Read(filename)
		if err != nil {
			response.NotFound(c)
			return
		}
		payload = data
	} else {
		response.BadRequest(c, "provide a file upload or a stored archive filename")
		return
	}

	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		response.BadRequest(c, "not a valid zip archive")
		return
	}
	if err := RestoreFromZip(h.svc.db, zr); err != nil {
		h.logger.Error("archive restore failed", zap.Error(err))
		response.UnprocessableEntity(c, fmt.Sprintf("restore failed: %v", err))
		return
	}
	h.logger.Info("archive restored")
	response.OK(c, gin.H{"restored": true})
}
