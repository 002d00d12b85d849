package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "v" {
		t.Errorf("Expected v, got %q", val)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an absent key is a no-op
	if err := store.Delete(ctx, "k"); err != nil {
		t.Errorf("Repeated delete errored: %v", err)
	}
}

func TestMemoryStore_UpdateSeesCurrentValue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Update(ctx, "k", func(current string, found bool) (string, error) {
		if found {
			t.Error("Expected found false on first update")
		}
		return "1", nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	err = store.Update(ctx, "k", func(current string, found bool) (string, error) {
		if !found || current != "1" {
			t.Errorf("Expected current 1, got %q (found %v)", current, found)
		}
		return "2", nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	val, _ := store.Get(ctx, "k")
	if val != "2" {
		t.Errorf("Expected 2, got %q", val)
	}
}

func TestMemoryStore_UpdateErrorLeavesValue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", "keep"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	wantErr := errors.New("boom")
	err := store.Update(ctx, "k", func(string, bool) (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected the callback error, got %v", err)
	}

	val, _ := store.Get(ctx, "k")
	if val != "keep" {
		t.Errorf("Expected value untouched after failed update, got %q", val)
	}
}

func TestMemoryStore_ConcurrentUpdatesAllApply(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, "counter", func(current string, found bool) (string, error) {
				n := 0
				if found {
					var err error
					n, err = strconv.Atoi(current)
					if err != nil {
						return "", fmt.Errorf("corrupt counter: %w", err)
					}
				}
				return strconv.Itoa(n + 1), nil
			})
			if err != nil {
				t.Errorf("Update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	val, err := store.Get(ctx, "counter")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != strconv.Itoa(writers) {
		t.Errorf("Expected %d applied updates, got %s", writers, val)
	}
}
