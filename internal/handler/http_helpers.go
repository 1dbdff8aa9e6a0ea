package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/blogfolio/internal/logger"
	"github.com/blogfolio/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	detailNotFound        = "Not found."
	detailInvalidPage     = "Invalid page."
	detailUnauthenticated = "Authentication credentials were not provided."
	detailForbidden       = "You are not the author of this blog"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their wire names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		engine.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func respondDetail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

// respondValidation writes field-keyed messages.
func respondValidation(c *gin.Context, verr *service.ValidationError) {
	c.JSON(http.StatusBadRequest, verr.Fields)
}

// handleServiceError maps service errors onto HTTP statuses.
func (a *API) handleServiceError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(c, verr)
	case errors.Is(err, service.ErrPostNotFound), errors.Is(err, service.ErrUserNotFound):
		respondDetail(c, http.StatusNotFound, detailNotFound)
	case errors.Is(err, service.ErrInvalidPage):
		respondDetail(c, http.StatusNotFound, detailInvalidPage)
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, detailForbidden)
	case errors.Is(err, service.ErrUnauthenticated):
		respondDetail(c, http.StatusUnauthorized, detailUnauthenticated)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondDetail(c, http.StatusUnauthorized, "No active account found with the given credentials")
	case errors.Is(err, service.ErrConstraintViolation):
		a.log.Warn().Err(err).Str("request_id", logger.RequestID(c)).Msg("constraint violation")
		respondDetail(c, http.StatusConflict, "The request conflicts with existing data. Please retry.")
	default:
		_ = c.Error(err)
		a.log.Error().Err(err).Str("request_id", logger.RequestID(c)).Str("path", c.FullPath()).Msg("request failed")
		respondDetail(c, http.StatusInternalServerError, "Internal server error")
	}
}

// bindingError converts gin binding failures into field-keyed messages.
func bindingError(err error) *service.ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return service.NewValidationError("non_field_errors", "Invalid request body.")
	}

	verr := &service.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// parseIDList reads positive integer ids; any malformed entry fails the whole list.
func parseIDList(values []string) ([]uint, error) {
	ids := make([]uint, 0, len(values))
	for _, raw := range values {
		for _, piece := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(piece)
			if trimmed == "" {
				continue
			}
			parsed, err := strconv.ParseUint(trimmed, 10, 32)
			if err != nil || parsed == 0 {
				return nil, fmt.Errorf("invalid id %q", trimmed)
			}
			ids = append(ids, uint(parsed))
		}
	}
	return ids, nil
}

// parsePage reads ?page=. Missing means 1; anything else must be a positive integer.
func parsePage(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("page"))
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

// parsePageSize reads ?page_size=; malformed values fall back to the default.
func parsePageSize(c *gin.Context) int {
	size, err := strconv.Atoi(strings.TrimSpace(c.Query("page_size")))
	if err != nil {
		return service.DefaultPageSize
	}
	return service.ClampPageSize(size)
}

// pageURL rebuilds the current request URL pointing at page.
func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
	}

	query := c.Request.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := *c.Request.URL
	u.Scheme = scheme
	u.Host = c.Request.Host
	u.RawQuery = query.Encode()
	return u.String()
}
