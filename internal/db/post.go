package db

import "time"

// Post categories accepted by the category field.
const (
	CategorySoftwareEngineering = "Full Stack/Software Engineering"
	CategoryDataScience         = "ML/Data Science"
	CategoryDataAnalytics       = "Data Analytics"
	CategoryAI                  = "AI"
)

// Post languages accepted by the language field.
const (
	LanguagePython     = "Python"
	LanguageJavaScript = "JavaScript"
	LanguageJava       = "Java"
	LanguageSQL        = "SQL"
)

// Categories lists the allowed category values in display order.
var Categories = []string{CategorySoftwareEngineering, CategoryDataScience, CategoryDataAnalytics, CategoryAI}

// Languages lists the allowed language values in display order.
var Languages = []string{LanguagePython, LanguageJavaScript, LanguageJava, LanguageSQL}

// Post is a blog entry. Slug is assigned once on creation and never rewritten.
// Removing the author detaches the post; removing the post removes its images.
type Post struct {
	ID            uint   `gorm:"primaryKey"`
	Headline      string `gorm:"size:255;not null"`
	Slug          string `gorm:"size:255;not null;uniqueIndex:idx_posts_slug"`
	Content       string `gorm:"type:text;not null"`
	AuthorID      *uint  `gorm:"index"`
	Author        *User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Category      string `gorm:"size:255"`
	Language      string `gorm:"size:255"`
	FeaturedImage string `gorm:"size:255"`
	// IsDraft has no column default: gorm would substitute it for an explicit false.
	IsDraft     bool           `gorm:"not null"`
	WebAppLink1 string         `gorm:"column:web_app_link_1;size:500"`
	WebAppLink2 string         `gorm:"column:web_app_link_2;size:500"`
	WebAppLink3 string         `gorm:"column:web_app_link_3;size:500"`
	CreatedAt   time.Time      `gorm:"index:idx_posts_created_at"`
	UpdatedAt   time.Time
	Images      []GalleryImage `gorm:"constraint:OnDelete:CASCADE"`
}

// IsOwnedBy reports whether userID is the post's current author.
func (p *Post) IsOwnedBy(userID uint) bool {
	return p.AuthorID != nil && userID != 0 && *p.AuthorID == userID
}
