package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/lichtbild/gallery/internal/config"
)

var (
	// ErrDecode means the payload is not decodable as an image.
	ErrDecode = errors.New("cannot decode payload as image")
	// ErrRender means the preview could not be produced from a decodable
	// image. Fatal for that single upload only.
	ErrRender = errors.New("failed to render thumbnail")
)

// ThumbnailService derives fixed-size cover-fit JPEG previews from
// uploaded originals. Stateless; pure function of the input bytes.
type ThumbnailService struct {
	size    int
	quality int
}

func NewThumbnailService(cfg *config.Config) *ThumbnailService {
	return &ThumbnailService{
		size:    cfg.ThumbnailSize,
		quality: cfg.ThumbnailQuality,
	}
}

// Generate produces a size×size preview as a JPEG data URI. The source is
// scaled by max(size/w, size/h) so it fully covers the target square, then
// center-cropped onto the canvas.
func (s *ThumbnailService) Generate(data []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return "", fmt.Errorf("%w: image has no pixels", ErrDecode)
	}

	target := s.size
	scale := math.Max(float64(target)/float64(w), float64(target)/float64(h))
	scaledW := int(math.Round(float64(w) * scale))
	scaledH := int(math.Round(float64(h) * scale))

	// Translate so the scaled image is centered over the canvas; the
	// overflow on the longer axis is cropped evenly on both sides.
	offX := (target - scaledW) / 2
	offY := (target - scaledH) / 2

	dst := image.NewRGBA(image.Rect(0, 0, target, target))
	xdraw.CatmullRom.Scale(dst, image.Rect(offX, offY, offX+scaledW, offY+scaledH), src, b, xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: s.quality}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Dimensions reads the pixel size of the payload without a full decode.
func (s *ThumbnailService) Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}
