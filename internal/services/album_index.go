package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lichtbild/gallery/internal/models"
	"github.com/lichtbild/gallery/pkg/kv"
)

// albumPhotosKey holds the serialized association triples. The whole blob
// is read-modify-written on every mutation; kv.Store.Update is the sole
// synchronization point between racing writers.
const albumPhotosKey = "gallery:album_photos"

// AlbumIndex maintains the many-to-many relation between albums and
// photos. It references photo ids by value only: deleting a photo does
// not touch this index, the gallery facade owns that scrub step.
type AlbumIndex struct {
	store kv.Store
}

func NewAlbumIndex(store kv.Store) *AlbumIndex {
	return &AlbumIndex{store: store}
}

func decodeAssociations(raw string, found bool) ([]models.AlbumPhoto, error) {
	if !found || raw == "" {
		return nil, nil
	}
	var assocs []models.AlbumPhoto
	if err := json.Unmarshal([]byte(raw), &assocs); err != nil {
		return nil, fmt.Errorf("corrupt album association blob: %w", err)
	}
	return assocs, nil
}

func encodeAssociations(assocs []models.AlbumPhoto) (string, error) {
	if assocs == nil {
		assocs = []models.AlbumPhoto{}
	}
	raw, err := json.Marshal(assocs)
	if err != nil {
		return "", fmt.Errorf("failed to encode album associations: %w", err)
	}
	return string(raw), nil
}

// AddPhotosToAlbum replaces the album's full association set with the
// given list, all stamped now. Duplicate ids within one call collapse to
// a single association. Callers wanting an incremental add must union
// with GetAlbumPhotos themselves.
func (i *AlbumIndex) AddPhotosToAlbum(ctx context.Context, albumID string, photoIDs []int64) error {
	now := time.Now().UTC()
	return i.store.Update(ctx, albumPhotosKey, func(current string, found bool) (string, error) {
		assocs, err := decodeAssociations(current, found)
		if err != nil {
			return "", err
		}

		kept := assocs[:0]
		for _, a := range assocs {
			if a.AlbumID != albumID {
				kept = append(kept, a)
			}
		}

		seen := make(map[int64]bool, len(photoIDs))
		for _, id := range photoIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			kept = append(kept, models.AlbumPhoto{AlbumID: albumID, PhotoID: id, AddedAt: now})
		}

		return encodeAssociations(kept)
	})
}

// GetAlbumPhotos returns the album's photo ids in storage order.
func (i *AlbumIndex) GetAlbumPhotos(ctx context.Context, albumID string) ([]int64, error) {
	raw, err := i.store.Get(ctx, albumPhotosKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	assocs, err := decodeAssociations(raw, true)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, a := range assocs {
		if a.AlbumID == albumID {
			ids = append(ids, a.PhotoID)
		}
	}
	return ids, nil
}

// RemovePhotoFromAlbum removes exactly one association; no-op if absent.
func (i *AlbumIndex) RemovePhotoFromAlbum(ctx context.Context, albumID string, photoID int64) error {
	return i.removeWhere(ctx, func(a models.AlbumPhoto) bool {
		return a.AlbumID == albumID && a.PhotoID == photoID
	})
}

// RemoveAllPhotosFromAlbum removes every association for the album.
func (i *AlbumIndex) RemoveAllPhotosFromAlbum(ctx context.Context, albumID string) error {
	return i.removeWhere(ctx, func(a models.AlbumPhoto) bool {
		return a.AlbumID == albumID
	})
}

// RemovePhotoFromAllAlbums severs a deleted photo from every album. The
// facade calls this right after the durable photo delete.
func (i *AlbumIndex) RemovePhotoFromAllAlbums(ctx context.Context, photoID int64) error {
	return i.removeWhere(ctx, func(a models.AlbumPhoto) bool {
		return a.PhotoID == photoID
	})
}

func (i *AlbumIndex) removeWhere(ctx context.Context, match func(models.AlbumPhoto) bool) error {
	return i.store.Update(ctx, albumPhotosKey, func(current string, found bool) (string, error) {
		assocs, err := decodeAssociations(current, found)
		if err != nil {
			return "", err
		}
		kept := assocs[:0]
		for _, a := range assocs {
			if !match(a) {
				kept = append(kept, a)
			}
		}
		return encodeAssociations(kept)
	})
}

// GetPhotoCount returns how many photos the album holds.
func (i *AlbumIndex) GetPhotoCount(ctx context.Context, albumID string) (int, error) {
	ids, err := i.GetAlbumPhotos(ctx, albumID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
