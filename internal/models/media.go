package models

import "time"

// MediaItem is one asset in the media library.
type MediaItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind,omitempty"` // "image", "video", "audio", "document"
	URL        string    `json:"url,omitempty"`
	SizeBytes  int64     `json:"sizeBytes,omitempty"`
	UploadedBy string    `json:"uploadedBy,omitempty"`
	UploadedAt time.Time `json:"uploadedAt,omitzero"`
}
