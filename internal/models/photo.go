package models

import (
	"math/rand"
	"time"
)

// Photo represents a single gallery image. Records are immutable once
// written; Src is a self-contained data URI owning the full-resolution
// payload, so a Photo never references an external file.
type Photo struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Date       string `gorm:"size:64;not null" json:"date"`
	Src        string `gorm:"not null" json:"src"`
	Alt        string `gorm:"size:255" json:"alt"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FileSize   int64  `json:"fileSize"`
	IsUploaded bool   `json:"isUploaded"`
}

func (Photo) TableName() string {
	return "photos"
}

// Thumbnail is the derived preview for a Photo, keyed by the same ID.
// Its absence is valid; renderers fall back to the photo's Src.
type Thumbnail struct {
	ID   int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Data string `gorm:"not null" json:"data"`
}

func (Thumbnail) TableName() string {
	return "thumbnails"
}

// NewPhotoID generates an upload-time identifier: millisecond timestamp
// scaled by 1000 plus a random fractional component, so rapid sequential
// uploads stay collision-free while IDs remain roughly insertion-ordered.
func NewPhotoID() int64 {
	return time.Now().UnixMilli()*1000 + rand.Int63n(1000)
}

// NewPhotoDate returns the sort-key timestamp assigned at upload time.
func NewPhotoDate() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
