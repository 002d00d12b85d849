package services

import (
	"bytes"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/lichtbild/gallery/pkg/imagemeta"
)

func TestThumbnailService_GenerateCoverFit(t *testing.T) {
	thumbs := NewThumbnailService(testConfig())

	// Wide source: cover-fit must crop the sides, never letterbox
	uri, err := thumbs.Generate(encodeTestJPEG(t, 400, 100))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("Expected a JPEG data URI, got prefix %q", uri[:min(len(uri), 30)])
	}

	_, data, err := imagemeta.DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("Thumbnail URI does not round-trip: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Thumbnail is not decodable: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("Expected jpeg, got %s", format)
	}
	if cfg.Width != 200 || cfg.Height != 200 {
		t.Errorf("Expected 200x200, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestThumbnailService_GenerateTallSource(t *testing.T) {
	thumbs := NewThumbnailService(testConfig())

	uri, err := thumbs.Generate(encodeTestJPEG(t, 50, 800))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	_, data, err := imagemeta.DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI failed: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Thumbnail is not decodable: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 200 {
		t.Errorf("Expected 200x200, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestThumbnailService_GenerateRejectsGarbage(t *testing.T) {
	thumbs := NewThumbnailService(testConfig())

	if _, err := thumbs.Generate([]byte("definitely not pixels")); !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestThumbnailService_Dimensions(t *testing.T) {
	thumbs := NewThumbnailService(testConfig())

	w, h, err := thumbs.Dimensions(encodeTestJPEG(t, 320, 240))
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 320 || h != 240 {
		t.Errorf("Expected 320x240, got %dx%d", w, h)
	}

	if _, _, err := thumbs.Dimensions([]byte("garbage")); !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}
