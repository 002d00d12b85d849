package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lichtbild/gallery/internal/config"
	"github.com/lichtbild/gallery/internal/models"
	"github.com/lichtbild/gallery/pkg/imagemeta"
)

var (
	// ErrFileTooLarge is returned before any decode attempt when the
	// payload exceeds the configured per-file limit.
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	// ErrNotImage is returned when the payload does not sniff as image
	// content.
	ErrNotImage = errors.New("payload is not recognized as image content")
)

// GalleryStore is the storage surface the facade drives. *PhotoStore is
// the production implementation.
type GalleryStore interface {
	Open(ctx context.Context) error
	Save(ctx context.Context, photo *models.Photo, thumb *models.Thumbnail) error
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	LoadPage(ctx context.Context, offset, limit int) ([]models.Photo, error)
	LoadAll(ctx context.Context) ([]models.Photo, error)
	HardReset(ctx context.Context) error
}

var _ GalleryStore = (*PhotoStore)(nil)

// UploadFile is one incoming file payload.
type UploadFile struct {
	Name string
	Data []byte
}

// GalleryState is a snapshot of the facade's observable state.
type GalleryState struct {
	Photos      []models.Photo `json:"photos"`
	TotalCount  int64          `json:"totalCount"`
	CurrentPage int            `json:"currentPage"`
	HasMore     bool           `json:"hasMore"`
	IsLoading   bool           `json:"isLoading"`
	Error       string         `json:"error,omitempty"`
}

// GalleryService is the public gallery surface: upload, delete, list,
// clear, paginate. It owns the photo store handle and the in-memory page
// window, and runs the documented two-step delete protocol (durable
// delete, then album association scrub — the steps are not atomic).
type GalleryService struct {
	store  GalleryStore
	thumbs *ThumbnailService
	index  *AlbumIndex
	cfg    *config.Config

	mu          sync.Mutex
	photos      []models.Photo
	currentPage int
	totalCount  int64
	hasMore     bool
	isLoading   bool
	lastErr     error
	lastErrKind string
}

func NewGalleryService(store GalleryStore, thumbs *ThumbnailService, index *AlbumIndex, cfg *config.Config) *GalleryService {
	return &GalleryService{
		store:  store,
		thumbs: thumbs,
		index:  index,
		cfg:    cfg,
	}
}

// The last error is mirrored into observable state and cleared only by
// the next successful operation of the same kind.
func (g *GalleryService) setErr(kind string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastErr = err
	g.lastErrKind = kind
}

func (g *GalleryService) clearErr(kind string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastErrKind == kind {
		g.lastErr = nil
		g.lastErrKind = ""
	}
}

// Init opens the store and loads the first page window.
func (g *GalleryService) Init(ctx context.Context) error {
	if err := g.store.Open(ctx); err != nil {
		g.setErr("load", err)
		return err
	}
	return g.reload(ctx)
}

// reload resets the window to page zero.
func (g *GalleryService) reload(ctx context.Context) error {
	count, err := g.store.Count(ctx)
	if err != nil {
		g.setErr("load", err)
		return err
	}
	page, err := g.store.LoadPage(ctx, 0, g.cfg.PageSize)
	if err != nil {
		g.setErr("load", err)
		return err
	}

	g.mu.Lock()
	g.photos = page
	g.currentPage = 0
	g.totalCount = count
	g.hasMore = int64(g.cfg.PageSize) < count && len(page) > 0
	g.mu.Unlock()
	g.clearErr("load")
	return nil
}

// UploadPhoto validates, decodes, derives a thumbnail and stores one
// file. Validation runs before any decode attempt; nothing is written
// unless decode and thumbnail generation both succeed.
func (g *GalleryService) UploadPhoto(ctx context.Context, filename string, data []byte) (*models.Photo, error) {
	photo, err := g.uploadOne(ctx, filename, data)
	if err != nil {
		g.setErr("upload", err)
		return nil, err
	}
	g.clearErr("upload")
	return photo, nil
}

func (g *GalleryService) uploadOne(ctx context.Context, filename string, data []byte) (*models.Photo, error) {
	if int64(len(data)) > g.cfg.UploadMaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d bytes)", ErrFileTooLarge, len(data), g.cfg.UploadMaxFileSize)
	}

	mimeType := imagemeta.DetectMIME(data)
	if !imagemeta.IsImage(data) {
		return nil, fmt.Errorf("%w: got %s", ErrNotImage, mimeType)
	}

	width, height, err := g.thumbs.Dimensions(data)
	if err != nil {
		return nil, err
	}

	thumbURI, err := g.thumbs.Generate(data)
	if err != nil {
		return nil, err
	}

	photo := &models.Photo{
		ID:         models.NewPhotoID(),
		Date:       models.NewPhotoDate(),
		Src:        imagemeta.EncodeDataURI(mimeType, data),
		Alt:        imagemeta.SanitizeFilename(filename),
		Width:      width,
		Height:     height,
		FileSize:   int64(len(data)),
		IsUploaded: true,
	}

	if err := g.store.Save(ctx, photo, &models.Thumbnail{Data: thumbURI}); err != nil {
		return nil, err
	}

	// Newest first: the fresh record heads the window.
	g.mu.Lock()
	g.photos = append([]models.Photo{*photo}, g.photos...)
	g.totalCount++
	g.recomputeHasMore()
	g.mu.Unlock()

	return photo, nil
}

// UploadMultiplePhotos processes files sequentially; each file is fully
// decoded, thumbnailed and stored before the next begins. The first
// failure aborts the remaining files and is returned alongside the
// photos already stored.
func (g *GalleryService) UploadMultiplePhotos(ctx context.Context, files []UploadFile) ([]*models.Photo, error) {
	uploaded := make([]*models.Photo, 0, len(files))
	for _, f := range files {
		photo, err := g.uploadOne(ctx, f.Name, f.Data)
		if err != nil {
			g.setErr("upload", err)
			return uploaded, fmt.Errorf("upload %q: %w", f.Name, err)
		}
		uploaded = append(uploaded, photo)
	}
	g.clearErr("upload")
	return uploaded, nil
}

// DeletePhoto removes the photo durably, then scrubs its album
// associations. A crash between the two steps leaves a dangling
// association; readers tolerate it. The in-memory window is only touched
// after the durable delete succeeds.
func (g *GalleryService) DeletePhoto(ctx context.Context, id int64) error {
	if err := g.store.Delete(ctx, id); err != nil {
		g.setErr("delete", err)
		return err
	}

	// The deleted photo may live outside the current window, so refresh
	// the count from the store rather than guessing.
	count, err := g.store.Count(ctx)

	g.mu.Lock()
	kept := g.photos[:0]
	for _, p := range g.photos {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	g.photos = kept
	if err == nil {
		g.totalCount = count
	}
	g.recomputeHasMore()
	g.mu.Unlock()

	if err := g.index.RemovePhotoFromAllAlbums(ctx, id); err != nil {
		log.Warn().Err(err).Int64("photoID", id).Msg("photo deleted but association scrub failed")
		g.setErr("delete", err)
		return fmt.Errorf("photo %d deleted, association scrub failed: %w", id, err)
	}

	g.clearErr("delete")
	return nil
}

// GetAllPhotos returns the whole collection in page order.
func (g *GalleryService) GetAllPhotos(ctx context.Context) ([]models.Photo, error) {
	photos, err := g.store.LoadAll(ctx)
	if err != nil {
		g.setErr("load", err)
		return nil, err
	}
	g.clearErr("load")
	return photos, nil
}

// ClearAllPhotos empties the store and resets the window. Album
// associations are left behind by design; see DeletePhoto.
func (g *GalleryService) ClearAllPhotos(ctx context.Context) error {
	if err := g.store.Clear(ctx); err != nil {
		g.setErr("clear", err)
		return err
	}

	g.mu.Lock()
	g.photos = nil
	g.currentPage = 0
	g.totalCount = 0
	g.hasMore = false
	g.mu.Unlock()
	g.clearErr("clear")
	return nil
}

// LoadMore fetches the next page and appends it to the window. A no-op
// while a load is in flight or when nothing is left; the guard is set
// synchronously before the fetch begins, so near-simultaneous triggers
// collapse into one fetch.
func (g *GalleryService) LoadMore(ctx context.Context) error {
	g.mu.Lock()
	if g.isLoading || !g.hasMore {
		g.mu.Unlock()
		return nil
	}
	g.isLoading = true
	offset := (g.currentPage + 1) * g.cfg.PageSize
	g.mu.Unlock()

	page, err := g.store.LoadPage(ctx, offset, g.cfg.PageSize)

	g.mu.Lock()
	g.isLoading = false
	if err != nil {
		g.mu.Unlock()
		g.setErr("load", err)
		return err
	}
	if len(page) == 0 {
		// stale totalCount; trust the empty page
		g.hasMore = false
		g.mu.Unlock()
		g.clearErr("load")
		return nil
	}
	g.photos = append(g.photos, page...)
	g.currentPage++
	g.recomputeHasMore()
	g.mu.Unlock()
	g.clearErr("load")
	return nil
}

// HardReset destroys and recreates the store, then reinitializes the
// window from the now-empty database.
func (g *GalleryService) HardReset(ctx context.Context) error {
	if err := g.store.HardReset(ctx); err != nil {
		g.setErr("reset", err)
		return err
	}
	if err := g.reload(ctx); err != nil {
		g.setErr("reset", err)
		return err
	}
	g.clearErr("reset")
	return nil
}

// State returns a copy of the observable facade state.
func (g *GalleryService) State() GalleryState {
	g.mu.Lock()
	defer g.mu.Unlock()
	photos := make([]models.Photo, len(g.photos))
	copy(photos, g.photos)
	state := GalleryState{
		Photos:      photos,
		TotalCount:  g.totalCount,
		CurrentPage: g.currentPage,
		HasMore:     g.hasMore,
		IsLoading:   g.isLoading,
	}
	if g.lastErr != nil {
		state.Error = g.lastErr.Error()
	}
	return state
}

// caller must hold g.mu
func (g *GalleryService) recomputeHasMore() {
	g.hasMore = int64(g.currentPage+1)*int64(g.cfg.PageSize) < g.totalCount
}
