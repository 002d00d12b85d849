package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lichtbild/gallery/internal/services"
)

type AlbumHandler struct {
	albums *services.AlbumService
	index  *services.AlbumIndex
	export *services.ExportService
}

func NewAlbumHandler(albums *services.AlbumService, index *services.AlbumIndex, export *services.ExportService) *AlbumHandler {
	return &AlbumHandler{albums: albums, index: index, export: export}
}

type createAlbumRequest struct {
	Name     string  `json:"name" binding:"required"`
	PhotoIDs []int64 `json:"photoIds"`
}

type albumPhotosRequest struct {
	PhotoIDs []int64 `json:"photoIds"`
}

type renameAlbumRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateAlbum registers an album and optionally seeds its photo set.
// POST /albums
func (h *AlbumHandler) CreateAlbum(c *gin.Context) {
	var req createAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	album, err := h.albums.CreateAlbum(c.Request.Context(), req.Name, req.PhotoIDs)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, album)
}

// ListAlbums returns every album with its photo count.
// GET /albums
func (h *AlbumHandler) ListAlbums(c *gin.Context) {
	albums, err := h.albums.ListAlbums(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums})
}

// GetAlbum returns one album and its associated photo ids.
// GET /albums/:id
func (h *AlbumHandler) GetAlbum(c *gin.Context) {
	ctx := c.Request.Context()
	album, err := h.albums.GetAlbum(ctx, c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	photoIDs, err := h.index.GetAlbumPhotos(ctx, album.ID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"album": album, "photoIds": photoIDs})
}

// RenameAlbum updates the album name.
// PUT /albums/:id
func (h *AlbumHandler) RenameAlbum(c *gin.Context) {
	var req renameAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := h.albums.RenameAlbum(c.Request.Context(), c.Param("id"), req.Name); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAlbum removes the album and all of its associations.
// DELETE /albums/:id
func (h *AlbumHandler) DeleteAlbum(c *gin.Context) {
	if err := h.albums.DeleteAlbum(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetAlbumPhotos replaces the album's photo set wholesale. Callers who
// want an incremental add must union with the current set themselves.
// PUT /albums/:id/photos
func (h *AlbumHandler) SetAlbumPhotos(c *gin.Context) {
	ctx := c.Request.Context()
	albumID := c.Param("id")
	if _, err := h.albums.GetAlbum(ctx, albumID); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	var req albumPhotosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photoIds must be a list of ids"})
		return
	}

	if err := h.index.AddPhotosToAlbum(ctx, albumID, req.PhotoIDs); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetAlbumPhotos returns the album's photo ids in storage order.
// GET /albums/:id/photos
func (h *AlbumHandler) GetAlbumPhotos(c *gin.Context) {
	photoIDs, err := h.index.GetAlbumPhotos(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"photoIds": photoIDs, "count": len(photoIDs)})
}

// RemovePhotoFromAlbum severs one association; absent pairs are a no-op.
// DELETE /albums/:id/photos/:photoId
func (h *AlbumHandler) RemovePhotoFromAlbum(c *gin.Context) {
	photoID, err := strconv.ParseInt(c.Param("photoId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	if err := h.index.RemovePhotoFromAlbum(c.Request.Context(), c.Param("id"), photoID); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportContactSheet renders the album as a PDF contact sheet.
// GET /albums/:id/export.pdf
func (h *AlbumHandler) ExportContactSheet(c *gin.Context) {
	pdf, err := h.export.AlbumContactSheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"album-%s.pdf\"", c.Param("id")))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
