package db

import "time"

// DefaultProfilePicture is assigned to accounts registered without an avatar upload.
const DefaultProfilePicture = "profile_img/profile_pic.png"

// User is an account with its public profile. Password holds a bcrypt hash.
type User struct {
	ID                uint   `gorm:"primaryKey"`
	Username          string `gorm:"size:150;uniqueIndex;not null"`
	Email             string `gorm:"size:254;uniqueIndex;not null"`
	Password          string `gorm:"not null"`
	FirstName         string `gorm:"size:150"`
	LastName          string `gorm:"size:150"`
	Bio               string `gorm:"type:text"`
	ProfilePicture    string `gorm:"size:500"`
	ProfilePictureURL string `gorm:"size:500"`
	Facebook          string `gorm:"size:255"`
	YouTube           string `gorm:"column:youtube;size:255"`
	Instagram         string `gorm:"size:255"`
	Twitter           string `gorm:"size:255"`
	LinkedIn          string `gorm:"column:linkedin;size:255"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SocialLinks maps each social profile field to its value, keyed by the
// field's wire name.
func (u *User) SocialLinks() map[string]*string {
	return map[string]*string{
		"facebook":  &u.Facebook,
		"youtube":   &u.YouTube,
		"instagram": &u.Instagram,
		"twitter":   &u.Twitter,
		"linkedin":  &u.LinkedIn,
	}
}
