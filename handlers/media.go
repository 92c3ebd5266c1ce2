package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otravers/otravers/backend/go-services/internal/apperr"
	"github.com/otravers/otravers/backend/go-services/internal/storage"
	"github.com/otravers/otravers/backend/go-services/pkg/response"
)

// MediaHandler exposes the blob collaborator to logged-in users.
type MediaHandler struct {
	media *storage.Media
}

func NewMediaHandler(m *storage.Media) *MediaHandler {
	return &MediaHandler{media: m}
}

// Register routes under /media, all behind g.Protected.
func (h *MediaHandler) Register(rg *gin.RouterGroup, g Guards) {
	m := rg.Group("/media", g.Protected...)
	m.POST("/:owner", h.Upload)
	m.GET("/:owner", h.List)
	m.DELETE("/:owner/:id", h.Delete)
}

// Upload stores the multipart "file" field.
func (h *MediaHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxUploadSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperr.New(apperr.KindValidation, "A file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, apperr.New(apperr.KindValidation, "Unreadable file"))
		return
	}
	defer f.Close()

	obj, err := h.media.Upload(c.Request.Context(), c.Param("owner"), f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "Media uploaded", obj)
}

func (h *MediaHandler) List(c *gin.Context) {
	objs, err := h.media.List(c.Request.Context(), c.Param("owner"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Media retrieved", objs)
}

func (h *MediaHandler) Delete(c *gin.Context) {
	if err := h.media.Delete(c.Request.Context(), c.Param("owner"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Media deleted", nil)
}
