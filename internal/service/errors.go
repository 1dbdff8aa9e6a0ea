package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrPostNotFound        = errors.New("post not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("you are not the author of this blog")
	ErrUnauthenticated     = errors.New("authentication credentials were not provided")
	ErrInvalidCredentials  = errors.New("no active account found with the given credentials")
	ErrInvalidPage         = errors.New("invalid page")
	ErrConstraintViolation = errors.New("unique constraint violated")
)

// ValidationError carries field-keyed messages for rejected input.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError starts an error with a single field message.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add records a message for field.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], message)
}

func (v *ValidationError) merge(other *ValidationError) {
	if other.Empty() {
		return
	}
	for field, messages := range other.Fields {
		for _, message := range messages {
			v.Add(field, message)
		}
	}
}

// Empty reports whether no field has been rejected.
func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// OrNil returns v as an error when it holds messages.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for key := range v.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, strings.Join(v.Fields[key], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// translateWriteError turns a duplicate-key failure into ErrConstraintViolation
// while keeping the driver error in the chain.
func translateWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w: %w", op, ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
