package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/neurons-lms/lms-api/internal/service"
	appErrors "github.com/neurons-lms/lms-api/pkg/errors"
	"github.com/neurons-lms/lms-api/pkg/response"
)

// ContentHandler exposes content item endpoints.
type ContentHandler struct {
	contents *service.ContentService
}

// NewContentHandler constructs ContentHandler.
func NewContentHandler(contents *service.ContentService) *ContentHandler {
	return &ContentHandler{contents: contents}
}

// ListByModule godoc
// @Summary List content items of a module
// @Tags Contents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Router /modules/{id}/contents [get]
func (h *ContentHandler) ListByModule(c *gin.Context) {
	contents, err := h.contents.ListByModule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contents, nil)
}

// Get godoc
// @Summary Content detail
// @Tags Contents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /contents/{id} [get]
func (h *ContentHandler) Get(c *gin.Context) {
	content, err := h.contents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Create godoc
// @Summary Create content item
// @Tags Contents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ContentRequest true "Content payload"
// @Success 201 {object} response.Envelope
// @Router /contents [post]
func (h *ContentHandler) Create(c *gin.Context) {
	var req service.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	content, err := h.contents.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, content)
}

// Update godoc
// @Summary Update content item
// @Tags Contents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param payload body service.ContentRequest true "Content payload"
// @Success 200 {object} response.Envelope
// @Router /contents/{id} [put]
func (h *ContentHandler) Update(c *gin.Context) {
	var req service.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	content, err := h.contents.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Delete godoc
// @Summary Delete content item
// @Tags Contents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 204
// @Router /contents/{id} [delete]
func (h *ContentHandler) Delete(c *gin.Context) {
	if err := h.contents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Upload godoc
// @Summary Attach a file to file-type content
// @Tags Contents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param file formData file true "File payload"
// @Success 200 {object} response.Envelope
// @Router /contents/{id}/file [post]
func (h *ContentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read file"))
		return
	}
	defer file.Close() //nolint:errcheck

	content, err := h.contents.Upload(c.Request.Context(), c.Param("id"), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// DownloadLink godoc
// @Summary Issue a time-limited download link
// @Tags Contents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /contents/{id}/download [get]
func (h *ContentHandler) DownloadLink(c *gin.Context) {
	link, err := h.contents.DownloadLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Serve a file referenced by a signed token
// @Tags Contents
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /downloads/{token} [get]
func (h *ContentHandler) Download(c *gin.Context) {
	file, content, err := h.contents.OpenDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	filename := filepath.Base(*content.FilePath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/octet-stream")
	http.ServeContent(c.Writer, c.Request, filename, content.UpdatedAt, file)
}
