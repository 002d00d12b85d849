package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lichtbild/gallery/internal/models"
	"github.com/lichtbild/gallery/pkg/kv"
)

// albumsKey holds the serialized album list, beside the association blob.
const albumsKey = "gallery:albums"

// ErrAlbumNotFound is returned when the album id is unknown.
var ErrAlbumNotFound = errors.New("album not found")

// AlbumSummary is an album with its derived photo count.
type AlbumSummary struct {
	models.Album
	PhotoCount int `json:"photoCount"`
}

// AlbumService manages the user-created album list and seeds the album
// index on creation. Album mutations and index mutations are separate KV
// writes; a crash between them can leave associations without an album,
// which readers tolerate.
type AlbumService struct {
	store kv.Store
	index *AlbumIndex
}

func NewAlbumService(store kv.Store, index *AlbumIndex) *AlbumService {
	return &AlbumService{store: store, index: index}
}

func decodeAlbums(raw string, found bool) ([]models.Album, error) {
	if !found || raw == "" {
		return nil, nil
	}
	var albums []models.Album
	if err := json.Unmarshal([]byte(raw), &albums); err != nil {
		return nil, fmt.Errorf("corrupt album blob: %w", err)
	}
	return albums, nil
}

func encodeAlbums(albums []models.Album) (string, error) {
	if albums == nil {
		albums = []models.Album{}
	}
	raw, err := json.Marshal(albums)
	if err != nil {
		return "", fmt.Errorf("failed to encode albums: %w", err)
	}
	return string(raw), nil
}

// CreateAlbum registers a new album and associates the given photos.
func (s *AlbumService) CreateAlbum(ctx context.Context, name string, photoIDs []int64) (*models.Album, error) {
	album := models.Album{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.Update(ctx, albumsKey, func(current string, found bool) (string, error) {
		albums, err := decodeAlbums(current, found)
		if err != nil {
			return "", err
		}
		return encodeAlbums(append(albums, album))
	})
	if err != nil {
		return nil, err
	}

	if len(photoIDs) > 0 {
		if err := s.index.AddPhotosToAlbum(ctx, album.ID, photoIDs); err != nil {
			return nil, err
		}
	}
	return &album, nil
}

// ListAlbums returns every album with its photo count.
func (s *AlbumService) ListAlbums(ctx context.Context) ([]AlbumSummary, error) {
	raw, err := s.store.Get(ctx, albumsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []AlbumSummary{}, nil
	}
	if err != nil {
		return nil, err
	}
	albums, err := decodeAlbums(raw, true)
	if err != nil {
		return nil, err
	}

	summaries := make([]AlbumSummary, 0, len(albums))
	for _, a := range albums {
		count, err := s.index.GetPhotoCount(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, AlbumSummary{Album: a, PhotoCount: count})
	}
	return summaries, nil
}

// GetAlbum returns one album by id.
func (s *AlbumService) GetAlbum(ctx context.Context, id string) (*models.Album, error) {
	raw, err := s.store.Get(ctx, albumsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrAlbumNotFound
	}
	if err != nil {
		return nil, err
	}
	albums, err := decodeAlbums(raw, true)
	if err != nil {
		return nil, err
	}
	for _, a := range albums {
		if a.ID == id {
			album := a
			return &album, nil
		}
	}
	return nil, ErrAlbumNotFound
}

// RenameAlbum updates the display name.
func (s *AlbumService) RenameAlbum(ctx context.Context, id, name string) error {
	found := false
	err := s.store.Update(ctx, albumsKey, func(current string, ok bool) (string, error) {
		albums, err := decodeAlbums(current, ok)
		if err != nil {
			return "", err
		}
		for idx := range albums {
			if albums[idx].ID == id {
				albums[idx].Name = name
				found = true
			}
		}
		return encodeAlbums(albums)
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrAlbumNotFound
	}
	return nil
}

// DeleteAlbum removes the album, then every association it held. The two
// writes are not atomic; see the service doc.
func (s *AlbumService) DeleteAlbum(ctx context.Context, id string) error {
	found := false
	err := s.store.Update(ctx, albumsKey, func(current string, ok bool) (string, error) {
		albums, err := decodeAlbums(current, ok)
		if err != nil {
			return "", err
		}
		kept := albums[:0]
		for _, a := range albums {
			if a.ID == id {
				found = true
				continue
			}
			kept = append(kept, a)
		}
		return encodeAlbums(kept)
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrAlbumNotFound
	}
	return s.index.RemoveAllPhotosFromAlbum(ctx, id)
}
