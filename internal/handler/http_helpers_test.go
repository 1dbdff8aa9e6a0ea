package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blogfolio/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList([]string{"3, 5", "7", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 5 || ids[2] != 7 {
		t.Fatalf("unexpected ids %v", ids)
	}

	for _, bad := range [][]string{{"x"}, {"0"}, {"-1"}, {"2,abc"}} {
		if _, err := parseIDList(bad); err == nil {
			t.Fatalf("expected %v to be rejected", bad)
		}
	}
}

func TestPageURL(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/blog_list/?q=go&page=2", nil)
	c.Request.Header.Set("X-Forwarded-Proto", "https")

	if got := pageURL(c, 3); got != "https://example.com/api/blog_list/?page=3&q=go" {
		t.Fatalf("unexpected next url %q", got)
	}
	if got := pageURL(c, 1); got != "https://example.com/api/blog_list/?q=go" {
		t.Fatalf("unexpected first page url %q", got)
	}
}

func TestHandleServiceErrorMapping(t *testing.T) {
	api := &API{log: zerolog.Nop()}

	tests := []struct {
		err    error
		status int
	}{
		{service.NewValidationError("headline", "required"), http.StatusBadRequest},
		{service.ErrPostNotFound, http.StatusNotFound},
		{service.ErrUserNotFound, http.StatusNotFound},
		{service.ErrInvalidPage, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrConstraintViolation, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		api.handleServiceError(c, tt.err)
		if w.Code != tt.status {
			t.Fatalf("%v: expected status %d, got %d", tt.err, tt.status, w.Code)
		}
	}
}
