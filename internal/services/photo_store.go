package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/lichtbild/gallery/internal/models"
)

var (
	// ErrStoreUnavailable wraps every open or transaction failure of the
	// underlying database. Propagated, never retried automatically.
	ErrStoreUnavailable = errors.New("photo store unavailable")
	// ErrPhotoExists is returned by Save when the id is already stored.
	// The store is add-only; there is no upsert.
	ErrPhotoExists = errors.New("photo already exists")
	// ErrPhotoNotFound is returned by single-record reads.
	ErrPhotoNotFound = errors.New("photo not found")
)

// openAttempt tracks one in-flight database open so concurrent callers
// share its outcome instead of opening twice.
type openAttempt struct {
	done chan struct{}
	err  error
}

// PhotoStore is durable, versioned, keyed storage for photos and their
// thumbnails. The handle is owned by whoever constructs it (the gallery
// facade in production) and moves Uninitialized → Initializing → Ready;
// every operation waits behind an in-flight open.
type PhotoStore struct {
	path string
	env  string

	mu      sync.Mutex
	db      *gorm.DB
	opening *openAttempt
}

func NewPhotoStore(path, env string) *PhotoStore {
	return &PhotoStore{path: path, env: env}
}

// Open creates or migrates the database. Idempotent: once Ready it
// returns immediately, and concurrent calls collapse onto a single
// underlying open. A failed open is reported to every waiter; the next
// explicit call starts a fresh attempt.
func (s *PhotoStore) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.db != nil {
		s.mu.Unlock()
		return nil
	}
	if s.opening != nil {
		attempt := s.opening
		s.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	attempt := &openAttempt{done: make(chan struct{})}
	s.opening = attempt
	s.mu.Unlock()

	db, err := openAndMigrate(s.path, s.env)

	s.mu.Lock()
	if err != nil {
		attempt.err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	} else {
		s.db = db
	}
	s.opening = nil
	close(attempt.done)
	s.mu.Unlock()

	return attempt.err
}

func openAndMigrate(path, env string) (*gorm.DB, error) {
	db, err := models.Connect(path, env)
	if err != nil {
		return nil, err
	}
	if err := models.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases the database handle. Subsequent operations reopen.
func (s *PhotoStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ready queues the caller behind any in-flight open and hands out the
// live handle.
func (s *PhotoStore) ready(ctx context.Context) (*gorm.DB, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrStoreUnavailable
	}
	return s.db, nil
}

// Save inserts a photo and, when provided, its thumbnail as one atomic
// unit. Either both land or neither does.
func (s *PhotoStore) Save(ctx context.Context, photo *models.Photo, thumb *models.Thumbnail) error {
	db, err := s.ready(ctx)
	if err != nil {
		return err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Photo{}).Where("id = ?", photo.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrPhotoExists
		}
		if err := tx.Create(photo).Error; err != nil {
			return err
		}
		if thumb != nil {
			thumb.ID = photo.ID
			if err := tx.Create(thumb).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPhotoExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("save photo %d: %w", photo.ID, ErrPhotoExists)
		}
		return fmt.Errorf("%w: save photo %d: %v", ErrStoreUnavailable, photo.ID, err)
	}
	return nil
}

// Delete removes the photo and its thumbnail in one transaction.
// Deleting an absent id is a no-op success.
func (s *PhotoStore) Delete(ctx context.Context, id int64) error {
	db, err := s.ready(ctx)
	if err != nil {
		return err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Thumbnail{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Photo{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("%w: delete photo %d: %v", ErrStoreUnavailable, id, err)
	}
	return nil
}

// Clear empties both collections atomically. Irreversible.
func (s *PhotoStore) Clear(ctx context.Context) error {
	db, err := s.ready(ctx)
	if err != nil {
		return err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM thumbnails").Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM photos").Error
	})
	if err != nil {
		return fmt.Errorf("%w: clear: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Count returns the total stored photo count, independent of any cursor.
func (s *PhotoStore) Count(ctx context.Context) (int64, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.WithContext(ctx).Model(&models.Photo{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// LoadPage returns up to limit photos ordered by date descending,
// skipping offset records. Ties on date are broken by id ascending,
// i.e. insertion order, so pages never rearrange between calls.
func (s *PhotoStore) LoadPage(ctx context.Context, offset, limit int) ([]models.Photo, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	var photos []models.Photo
	err = db.WithContext(ctx).
		Order("date DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&photos).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load page offset=%d limit=%d: %v", ErrStoreUnavailable, offset, limit, err)
	}
	return photos, nil
}

// LoadAll returns the whole collection in page order. Intended for small
// working sets; LoadPage is the primary access path.
func (s *PhotoStore) LoadAll(ctx context.Context) ([]models.Photo, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	var photos []models.Photo
	if err := db.WithContext(ctx).Order("date DESC, id ASC").Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("%w: load all: %v", ErrStoreUnavailable, err)
	}
	return photos, nil
}

// Get returns one photo by id.
func (s *PhotoStore) Get(ctx context.Context, id int64) (*models.Photo, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	var photo models.Photo
	if err := db.WithContext(ctx).First(&photo, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("photo %d: %w", id, ErrPhotoNotFound)
		}
		return nil, fmt.Errorf("%w: get photo %d: %v", ErrStoreUnavailable, id, err)
	}
	return &photo, nil
}

// GetThumbnail returns the derived preview for a photo, or
// ErrPhotoNotFound when none was stored.
func (s *PhotoStore) GetThumbnail(ctx context.Context, id int64) (*models.Thumbnail, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	var thumb models.Thumbnail
	if err := db.WithContext(ctx).First(&thumb, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("thumbnail %d: %w", id, ErrPhotoNotFound)
		}
		return nil, fmt.Errorf("%w: get thumbnail %d: %v", ErrStoreUnavailable, id, err)
	}
	return &thumb, nil
}

// SchemaVersion exposes the store's applied migration version.
func (s *PhotoStore) SchemaVersion(ctx context.Context) (int, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	return models.SchemaVersion(db)
}

// HardReset destroys every table and re-runs migrations from scratch.
// Corruption recovery only; all data is lost.
func (s *PhotoStore) HardReset(ctx context.Context) error {
	db, err := s.ready(ctx)
	if err != nil {
		return err
	}
	log.Warn().Str("path", s.path).Msg("hard reset: dropping and recreating photo database")
	if err := models.DropAll(db); err != nil {
		return fmt.Errorf("%w: hard reset: %v", ErrStoreUnavailable, err)
	}
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("%w: hard reset migrate: %v", ErrStoreUnavailable, err)
	}
	return nil
}
