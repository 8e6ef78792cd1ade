// Package screenshot implements uploading, sharing and managing screenshots.
package screenshot

import (
	"context"
	"time"
)

// Record is the persisted metadata of one uploaded screenshot.
// An empty OwnerID marks an anonymous upload.
type Record struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId,omitempty"`
	AssetURL     string     `json:"assetUrl"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	OriginalName string     `json:"originalName"`
	Title        string     `json:"title"`
	MimeType     string     `json:"mimeType"`
	SizeBytes    int64      `json:"sizeBytes"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	ViewCount    int64      `json:"viewCount"`
	IsPublic     bool       `json:"isPublic"`

	StorageKey   string `json:"-"`
	ThumbnailKey string `json:"-"`
	DeleteToken  string `json:"-"`
}

// SharePath returns the public path of the record's share link.
func (r *Record) SharePath() string {
	return SharePath(r.ID)
}

// blobKeys lists every blob owned by the record, asset first.
func (r *Record) blobKeys() []string {
	keys := []string{r.StorageKey}
	if r.ThumbnailKey != "" {
		keys = append(keys, r.ThumbnailKey)
	}
	return keys
}

// SharePath returns "/s/" + id.
func SharePath(id string) string {
	return "/s/" + id
}

// Descriptor is returned to the uploader.
type Descriptor struct {
	ID           string
	URL          string
	ThumbnailURL string
	SharePath    string
	// DeleteToken is only set for anonymous uploads.
	DeleteToken string
}

// Requester identifies who is asking to read or change a record: the signed-in
// owner, or the holder of an anonymous upload's delete token.
type Requester struct {
	OwnerID     string
	DeleteToken string
}

// RecordStore persists records. Implementations must refuse an id that is
// already in use or was used by a deleted record.
type RecordStore interface {
	// Insert stores a new record, failing with ErrIDTaken on a duplicate id.
	Insert(ctx context.Context, rec *Record) error
	// GetByID returns the record or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Record, error)
	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*Record, error)
	// Update persists the mutable fields: Title, ExpiresAt, IsPublic and ViewCount.
	Update(ctx context.Context, rec *Record) error
	// Delete removes the record and retires its id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// ViewCounter is implemented by stores that can bump a view count in one step.
type ViewCounter interface {
	IncrementViews(ctx context.Context, id string) (int64, error)
}
