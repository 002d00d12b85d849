package models

import "time"

// Album is a named, user-created grouping of photos. Albums live outside
// the photo database, serialized as a flat key-value blob.
type Album struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// AlbumPhoto links one album to one photo. PhotoID references a Photo by
// value only; deleting a photo does not cascade here (the gallery facade
// owns the scrub step).
type AlbumPhoto struct {
	AlbumID string    `json:"albumId"`
	PhotoID int64     `json:"photoId"`
	AddedAt time.Time `json:"addedAt"`
}
