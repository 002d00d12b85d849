package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"

	"github.com/lichtbild/gallery/pkg/imagemeta"
)

// Contact sheet layout on A4 portrait, millimeters.
const (
	sheetMargin   = 10.0
	sheetCell     = 45.0
	sheetGap      = 2.5
	sheetCols     = 4
	sheetPageFold = 287.0 // bottom edge minus margin
)

// ExportService renders an album as a PDF contact sheet of thumbnails.
type ExportService struct {
	store  *PhotoStore
	albums *AlbumService
	index  *AlbumIndex
}

func NewExportService(store *PhotoStore, albums *AlbumService, index *AlbumIndex) *ExportService {
	return &ExportService{store: store, albums: albums, index: index}
}

// AlbumContactSheet produces an A4 PDF grid of the album's previews.
// Dangling associations (photo deleted, scrub missed) are skipped.
func (s *ExportService) AlbumContactSheet(ctx context.Context, albumID string) ([]byte, error) {
	album, err := s.albums.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	ids, err := s.index.GetAlbumPhotos(ctx, albumID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, album.Name)
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 6, fmt.Sprintf("%d photos", len(ids)))
	pdf.Ln(10)

	y := pdf.GetY()
	col := 0
	for _, id := range ids {
		data, imgType, ok := s.previewImage(ctx, id)
		if !ok {
			continue
		}

		if y+sheetCell > sheetPageFold {
			pdf.AddPage()
			y = sheetMargin
		}

		name := fmt.Sprintf("photo-%d", id)
		opt := gofpdf.ImageOptions{ImageType: imgType, ReadDpi: true}
		pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(data))

		x := sheetMargin + float64(col)*(sheetCell+sheetGap)
		pdf.ImageOptions(name, x, y, sheetCell, sheetCell, false, opt, 0, "")

		col++
		if col == sheetCols {
			col = 0
			y += sheetCell + sheetGap
		}
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to render contact sheet: %w", err)
	}
	return out.Bytes(), nil
}

// previewImage returns the photo's thumbnail payload, falling back to the
// original when no thumbnail was stored. Unrenderable entries report ok=false.
func (s *ExportService) previewImage(ctx context.Context, id int64) ([]byte, string, bool) {
	uri := ""
	if thumb, err := s.store.GetThumbnail(ctx, id); err == nil {
		uri = thumb.Data
	} else if errors.Is(err, ErrPhotoNotFound) {
		photo, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, "", false
		}
		uri = photo.Src
	} else {
		return nil, "", false
	}

	mimeType, data, err := imagemeta.DecodeDataURI(uri)
	if err != nil {
		log.Warn().Err(err).Int64("photoID", id).Msg("skipping photo with unreadable payload")
		return nil, "", false
	}

	switch mimeType {
	case "image/jpeg":
		return data, "JPEG", true
	case "image/png":
		return data, "PNG", true
	case "image/gif":
		return data, "GIF", true
	default:
		// gofpdf cannot embed this format
		return nil, "", false
	}
}
