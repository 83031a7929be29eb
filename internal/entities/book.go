package entities

import "time"

// Book is a single document in the library. ContentPath and ThumbnailPath
// hold either an absolute local path or a public URL, depending on which
// storage backend stored the artifact.
//
// ThumbnailPath is nil when no thumbnail exists, whether generation was
// skipped or failed. A book without a thumbnail is a valid steady state.
type Book struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"index;size:512" json:"title"`
	Author        string    `gorm:"index;size:256" json:"author"`
	Category      string    `gorm:"index;size:128" json:"category"`
	ContentPath   string    `gorm:"size:1024" json:"content_path"`
	ThumbnailPath *string   `gorm:"size:1024" json:"thumbnail_path"`
	Views         int64     `json:"views"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasThumbnail reports whether the book has a stored thumbnail artifact.
func (b *Book) HasThumbnail() bool {
	return b.ThumbnailPath != nil && *b.ThumbnailPath != ""
}
