package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lichtbild/gallery/internal/config"
	"github.com/lichtbild/gallery/internal/models"
	"github.com/lichtbild/gallery/internal/services"
	"github.com/lichtbild/gallery/pkg/imagemeta"
)

type GalleryHandler struct {
	gallery *services.GalleryService
	store   *services.PhotoStore
	cfg     *config.Config
}

func NewGalleryHandler(gallery *services.GalleryService, store *services.PhotoStore, cfg *config.Config) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, store: store, cfg: cfg}
}

// photoView is a window record without the full-resolution payload; the
// payload is served by the file endpoints.
type photoView struct {
	ID         int64  `json:"id"`
	Date       string `json:"date"`
	Alt        string `json:"alt"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FileSize   int64  `json:"fileSize"`
	IsUploaded bool   `json:"isUploaded"`
}

func toView(p models.Photo) photoView {
	return photoView{
		ID:         p.ID,
		Date:       p.Date,
		Alt:        p.Alt,
		Width:      p.Width,
		Height:     p.Height,
		FileSize:   p.FileSize,
		IsUploaded: p.IsUploaded,
	}
}

func toViews(photos []models.Photo) []photoView {
	views := make([]photoView, len(photos))
	for i, p := range photos {
		views[i] = toView(p)
	}
	return views
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrNotImage),
		errors.Is(err, services.ErrDecode),
		errors.Is(err, services.ErrRender):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrPhotoExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrPhotoNotFound),
		errors.Is(err, services.ErrAlbumNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// UploadPhoto handles a single upload.
// POST /gallery/photos, multipart form: file (required)
func (h *GalleryHandler) UploadPhoto(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	photo, err := h.gallery.UploadPhoto(c.Request.Context(), header.Filename, data)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toView(*photo))
}

// UploadPhotos handles a batch upload. Parts that do not sniff as image
// content are skipped up front and counted; the remaining files are
// processed sequentially, and the first failure aborts the rest.
// POST /gallery/photos/batch, multipart form: files[] (required)
func (h *GalleryHandler) UploadPhotos(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(64 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse multipart form"})
		return
	}

	form := c.Request.MultipartForm
	fileHeaders, ok := form.File["files[]"]
	if !ok || len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files[] is required"})
		return
	}
	if len(fileHeaders) > h.cfg.UploadMaxBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("maximum %d files per batch", h.cfg.UploadMaxBatch)})
		return
	}

	skippedNonImages := 0
	files := make([]services.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open " + fh.Filename})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read " + fh.Filename})
			return
		}
		if !imagemeta.IsImage(data) {
			skippedNonImages++
			continue
		}
		files = append(files, services.UploadFile{Name: fh.Filename, Data: data})
	}

	uploaded, err := h.gallery.UploadMultiplePhotos(c.Request.Context(), files)
	views := make([]photoView, len(uploaded))
	for i, p := range uploaded {
		views[i] = toView(*p)
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":              err.Error(),
			"uploaded":           views,
			"skipped_non_images": skippedNonImages,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"uploaded":           views,
		"skipped_non_images": skippedNonImages,
	})
}

// GetState returns the facade's window snapshot.
// GET /gallery
func (h *GalleryHandler) GetState(c *gin.Context) {
	state := h.gallery.State()
	c.JSON(http.StatusOK, gin.H{
		"photos":      toViews(state.Photos),
		"totalCount":  state.TotalCount,
		"currentPage": state.CurrentPage,
		"hasMore":     state.HasMore,
		"isLoading":   state.IsLoading,
		"error":       state.Error,
	})
}

// LoadMore advances the incremental loader and returns the new snapshot.
// POST /gallery/load-more
func (h *GalleryHandler) LoadMore(c *gin.Context) {
	if err := h.gallery.LoadMore(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.GetState(c)
}

// ListPage serves a raw offset/limit page, bypassing the loader.
// GET /gallery/photos?offset=0&limit=50
func (h *GalleryHandler) ListPage(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset or limit"})
		return
	}

	photos, err := h.store.LoadPage(c.Request.Context(), offset, limit)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"photos":     toViews(photos),
		"totalCount": count,
	})
}

// GetPhoto returns a single record including its data URI payload.
// GET /gallery/photos/:id
func (h *GalleryHandler) GetPhoto(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	photo, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, photo)
}

// ServePhotoFile streams the full-resolution payload.
// GET /gallery/photos/:id/file
func (h *GalleryHandler) ServePhotoFile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	photo, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	mimeType, data, err := imagemeta.DecodeDataURI(photo.Src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unreadable photo payload"})
		return
	}
	c.Data(http.StatusOK, mimeType, data)
}

// ServeThumbnail streams the preview, falling back to the original when
// no thumbnail was stored.
// GET /gallery/photos/:id/thumbnail
func (h *GalleryHandler) ServeThumbnail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	ctx := c.Request.Context()
	uri := ""
	thumb, err := h.store.GetThumbnail(ctx, id)
	switch {
	case err == nil:
		uri = thumb.Data
	case errors.Is(err, services.ErrPhotoNotFound):
		photo, err := h.store.Get(ctx, id)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		uri = photo.Src
	default:
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	mimeType, data, err := imagemeta.DecodeDataURI(uri)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unreadable thumbnail payload"})
		return
	}
	c.Data(http.StatusOK, mimeType, data)
}

// DeletePhoto removes a photo and scrubs its album associations.
// DELETE /gallery/photos/:id
func (h *GalleryHandler) DeletePhoto(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	if err := h.gallery.DeletePhoto(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearPhotos empties the whole store.
// DELETE /gallery/photos
func (h *GalleryHandler) ClearPhotos(c *gin.Context) {
	if err := h.gallery.ClearAllPhotos(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// HardReset destroys and recreates the photo database.
// POST /gallery/hard-reset
func (h *GalleryHandler) HardReset(c *gin.Context) {
	if err := h.gallery.HardReset(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
