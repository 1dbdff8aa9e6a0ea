package db

import "time"

// GalleryImage is one ordered image of a post's gallery.
// (post_id, sort_order) is unique so two images never share a display slot.
type GalleryImage struct {
	ID         uint      `gorm:"primaryKey"`
	PostID     uint      `gorm:"not null;uniqueIndex:idx_gallery_post_order,priority:1"`
	Image      string    `gorm:"size:255;not null"`
	Caption    string    `gorm:"size:255"`
	AltText    string    `gorm:"size:255"`
	SortOrder  int       `gorm:"not null;uniqueIndex:idx_gallery_post_order,priority:2"`
	UploadedAt time.Time `gorm:"autoCreateTime"`
}
