package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/blogfolio/internal/db"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

const (
	fallbackSlug = "post"
	maxBaseSlug  = 240
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify folds s to ASCII, lowercases it and joins alphanumeric runs with
// single hyphens. It may return an empty string.
func Slugify(s string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}

	slug := slugSeparators.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxBaseSlug {
		slug = strings.TrimRight(slug[:maxBaseSlug], "-")
	}
	return slug
}

// assignSlug picks the first free slug for headline: base, base-1, base-2...
// The check runs inside tx but is not atomic; the unique index on posts.slug
// decides races.
func assignSlug(tx *gorm.DB, headline string) (string, error) {
	base := Slugify(headline)
	if base == "" {
		base = fallbackSlug
	}

	candidate := base
	for i := 1; ; i++ {
		taken, err := slugTaken(tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func slugTaken(tx *gorm.DB, slug string) (bool, error) {
	var count int64
	if err := tx.Model(&db.Post{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return count > 0, nil
}
