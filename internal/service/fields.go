package service

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/blogfolio/internal/storage"
)

const (
	msgRequired   = "This field is required."
	msgBlank      = "This field may not be blank."
	msgInvalidURL = "Enter a valid URL."
)

// NormalizeLink trims raw and prepends https:// when no http(s) scheme is present.
func NormalizeLink(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "https://" + s
	}
	return s
}

func validURL(s string) bool {
	parsed, err := url.Parse(s)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != "" && !strings.ContainsAny(parsed.Host, " \t")
}

func checkRequired(v *ValidationError, field, value string) {
	if value == "" {
		v.Add(field, msgRequired)
		return
	}
	if strings.TrimSpace(value) == "" {
		v.Add(field, msgBlank)
	}
}

func checkMaxLength(v *ValidationError, field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		v.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", limit))
	}
}

func checkChoice(v *ValidationError, field, value string, choices []string) {
	if value == "" {
		return
	}
	if !slices.Contains(choices, value) {
		v.Add(field, fmt.Sprintf("%q is not a valid choice.", value))
	}
}

// checkLink normalizes *value in place and validates the result.
func checkLink(v *ValidationError, field string, value *string, limit int) {
	*value = NormalizeLink(*value)
	if *value == "" {
		return
	}
	if !validURL(*value) {
		v.Add(field, msgInvalidURL)
		return
	}
	checkMaxLength(v, field, *value, limit)
}

// checkURL validates an absolute URL without rewriting its scheme.
func checkURL(v *ValidationError, field string, value *string, limit int) {
	*value = strings.TrimSpace(*value)
	if *value == "" {
		return
	}
	if !validURL(*value) {
		v.Add(field, msgInvalidURL)
		return
	}
	checkMaxLength(v, field, *value, limit)
}

func checkImage(v *ValidationError, field string, upload storage.Upload) {
	switch err := storage.ValidateImage(upload); {
	case err == nil:
	case errors.Is(err, storage.ErrEmptyFile):
		v.Add(field, "The submitted file is empty.")
	case errors.Is(err, storage.ErrNotImage):
		v.Add(field, "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	default:
		v.Add(field, err.Error())
	}
}
