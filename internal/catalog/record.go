// Package catalog manages video records whose thumbnails live in an asset
// store. A record is the source of truth for catalog membership; its
// thumbnail file follows it.
package catalog

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Record is one video in the catalog. Thumbnail holds the asset ref relative
// to the storage root, or "" when the video has no thumbnail.
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Upload is a file part admitted for storage. Body is not read until the
// declared ContentType has been accepted.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type CreateInput struct {
	Title       string
	Description string
	Link        string
	Thumbnail   *Upload
}

// Origin is the externally visible scheme and host of the current request.
type Origin struct {
	Scheme string
	Host   string
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is well-formed for the record stores.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
