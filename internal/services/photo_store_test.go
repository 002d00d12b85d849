package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lichtbild/gallery/internal/models"
)

func setupTestStore(t *testing.T) *PhotoStore {
	t.Helper()
	store := NewPhotoStore(":memory:", "test")
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testPhoto(id int64, date string) *models.Photo {
	return &models.Photo{
		ID:         id,
		Date:       date,
		Src:        fmt.Sprintf("data:image/jpeg;base64,photo%d", id),
		Alt:        fmt.Sprintf("photo-%d.jpg", id),
		Width:      800,
		Height:     600,
		FileSize:   1024,
		IsUploaded: true,
	}
}

func TestPhotoStore_OpenIsIdempotent(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("Second open failed: %v", err)
	}

	// The second open must hand back the same live handle
	if err := store.Save(context.Background(), testPhoto(1, "2026-01-01T00:00:00Z"), nil); err != nil {
		t.Fatalf("Store unusable after repeated open: %v", err)
	}
}

func TestPhotoStore_ConcurrentOpens(t *testing.T) {
	store := NewPhotoStore(":memory:", "test")
	defer store.Close()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = store.Open(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Concurrent open %d failed: %v", i, err)
		}
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count after concurrent opens failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty store, got %d photos", count)
	}
}

func TestPhotoStore_OpenFailurePropagates(t *testing.T) {
	store := NewPhotoStore("/nonexistent-dir/sub/PhotoGalleryDB.sqlite", "test")

	err := store.Open(context.Background())
	if err == nil {
		store.Close()
		t.Fatal("Expected open to fail for inaccessible path")
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestPhotoStore_CountTracksMutations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Fatalf("Expected empty store, got %d", count)
	}

	if err := store.Save(ctx, testPhoto(1, "2026-01-01T00:00:00Z"), nil); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if count, _ = store.Count(ctx); count != 1 {
		t.Errorf("Expected count 1 after save, got %d", count)
	}

	if err := store.Save(ctx, testPhoto(2, "2026-01-02T00:00:00Z"), nil); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if count, _ = store.Count(ctx); count != 2 {
		t.Errorf("Expected count 2 after save, got %d", count)
	}

	if err := store.Delete(ctx, 1); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if count, _ = store.Count(ctx); count != 1 {
		t.Errorf("Expected count 1 after delete, got %d", count)
	}

	// Deleting an unknown id leaves the count unchanged
	if err := store.Delete(ctx, 999); err != nil {
		t.Fatalf("Delete of unknown id errored: %v", err)
	}
	if count, _ = store.Count(ctx); count != 1 {
		t.Errorf("Expected count 1 after no-op delete, got %d", count)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}
	if count, _ = store.Count(ctx); count != 0 {
		t.Errorf("Expected count 0 after clear, got %d", count)
	}
}

func TestPhotoStore_SaveIsAddOnly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testPhoto(5, "2026-01-01T00:00:00Z"), nil); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	err := store.Save(ctx, testPhoto(5, "2026-01-05T00:00:00Z"), &models.Thumbnail{Data: "data:image/jpeg;base64,thumb"})
	if !errors.Is(err, ErrPhotoExists) {
		t.Fatalf("Expected ErrPhotoExists, got %v", err)
	}

	// The failed save must not have left a partial write behind
	if _, err := store.GetThumbnail(ctx, 5); !errors.Is(err, ErrPhotoNotFound) {
		t.Errorf("Expected no thumbnail after failed save, got %v", err)
	}
	photo, err := store.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Failed to get photo: %v", err)
	}
	if photo.Date != "2026-01-01T00:00:00Z" {
		t.Errorf("Original record was modified by failed save: %q", photo.Date)
	}
}

func TestPhotoStore_SaveWithThumbnailIsAtomic(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	thumb := &models.Thumbnail{Data: "data:image/jpeg;base64,thumb"}
	if err := store.Save(ctx, testPhoto(3, "2026-01-01T00:00:00Z"), thumb); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if _, err := store.Get(ctx, 3); err != nil {
		t.Errorf("Photo not retrievable after save: %v", err)
	}
	got, err := store.GetThumbnail(ctx, 3)
	if err != nil {
		t.Fatalf("Thumbnail not retrievable after save: %v", err)
	}
	if got.Data != thumb.Data {
		t.Errorf("Thumbnail payload mismatch: %q", got.Data)
	}
}

func TestPhotoStore_DeleteIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testPhoto(9, "2026-01-01T00:00:00Z"), &models.Thumbnail{Data: "data:image/jpeg;base64,t"}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if err := store.Delete(ctx, 9); err != nil {
		t.Fatalf("First delete failed: %v", err)
	}
	if err := store.Delete(ctx, 9); err != nil {
		t.Fatalf("Second delete errored: %v", err)
	}

	if _, err := store.Get(ctx, 9); !errors.Is(err, ErrPhotoNotFound) {
		t.Errorf("Expected photo gone, got %v", err)
	}
	if _, err := store.GetThumbnail(ctx, 9); !errors.Is(err, ErrPhotoNotFound) {
		t.Errorf("Expected thumbnail gone with its photo, got %v", err)
	}
}

func TestPhotoStore_PaginationIsStable(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// 25 photos across 5 dates, 5 ids per date, inserted out of order to
	// exercise the sort
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for day := 0; day < 5; day++ {
		for n := 0; n < 5; n++ {
			id := int64(100 + day*10 + n)
			date := base.AddDate(0, 0, day).Format(time.RFC3339Nano)
			if err := store.Save(ctx, testPhoto(id, date), nil); err != nil {
				t.Fatalf("Failed to save photo %d: %v", id, err)
			}
			ids = append(ids, id)
		}
	}

	all, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("Failed to load all: %v", err)
	}
	if len(all) != 25 {
		t.Fatalf("Expected 25 photos, got %d", len(all))
	}

	// Order: date descending, ties broken by id ascending (insertion order)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Date < cur.Date {
			t.Errorf("Photos out of date order at %d: %q before %q", i, prev.Date, cur.Date)
		}
		if prev.Date == cur.Date && prev.ID >= cur.ID {
			t.Errorf("Tie not broken by insertion order at %d: id %d before %d", i, prev.ID, cur.ID)
		}
	}

	// Concatenated pages must equal LoadAll exactly: no dupes, no omissions
	const pageSize = 10
	var paged []models.Photo
	for offset := 0; ; offset += pageSize {
		page, err := store.LoadPage(ctx, offset, pageSize)
		if err != nil {
			t.Fatalf("Failed to load page at offset %d: %v", offset, err)
		}
		if len(page) == 0 {
			break
		}
		paged = append(paged, page...)
	}

	if len(paged) != len(all) {
		t.Fatalf("Paged scan returned %d photos, LoadAll returned %d", len(paged), len(all))
	}
	for i := range all {
		if paged[i].ID != all[i].ID {
			t.Errorf("Page concatenation diverges at %d: id %d vs %d", i, paged[i].ID, all[i].ID)
		}
	}
}

func TestPhotoStore_HardReset(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testPhoto(1, "2026-01-01T00:00:00Z"), &models.Thumbnail{Data: "data:image/jpeg;base64,t"}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if err := store.HardReset(ctx); err != nil {
		t.Fatalf("Hard reset failed: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count after reset failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty store after reset, got %d", count)
	}

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("Schema version after reset failed: %v", err)
	}
	if version == 0 {
		t.Error("Expected migrations to be re-applied after reset")
	}

	// The recreated store must accept writes again
	if err := store.Save(ctx, testPhoto(2, "2026-01-02T00:00:00Z"), nil); err != nil {
		t.Errorf("Store unusable after reset: %v", err)
	}
}
