package handler

import (
	"net/http"
	"strings"
	"testing"
)

func TestRegisterUser(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(jsonRequest(http.MethodPost, "/api/register_user/", map[string]any{
		"username":   "alice",
		"email":      "alice@example.com",
		"password":   "s3cret-pass",
		"first_name": "Alice",
	}, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	decodeJSON(t, w, &body)
	if body["username"] != "alice" || body["first_name"] != "Alice" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["password"]; ok {
		t.Fatalf("password leaked in response")
	}
	if body["profile_picture"] != "/media/profile_img/profile_pic.png" {
		t.Fatalf("expected default picture, got %v", body["profile_picture"])
	}
}

func TestRegisterUserWithProfilePicture(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(multipartRequest(t, http.MethodPost, "/api/register_user/", map[string][]string{
		"username": {"bob"},
		"email":    {"bob@example.com"},
		"password": {"s3cret-pass"},
	}, []formFile{{field: "profile_picture", name: "me.png", data: pngBytes(t)}}, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	decodeJSON(t, w, &body)
	picture, _ := body["profile_picture"].(string)
	if !strings.HasPrefix(picture, "/media/avatar/bob/") {
		t.Fatalf("unexpected picture %q", picture)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	s := setupTestServer(t)
	s.createUser(t, "taken")

	tests := []struct {
		name    string
		payload map[string]any
		field   string
	}{
		{name: "missing email", payload: map[string]any{"username": "x", "password": "longenough"}, field: "email"},
		{name: "bad email", payload: map[string]any{"username": "x", "email": "nope", "password": "longenough"}, field: "email"},
		{name: "short password", payload: map[string]any{"username": "x", "email": "x@example.com", "password": "short"}, field: "password"},
		{name: "bad username", payload: map[string]any{"username": "white space", "email": "x@example.com", "password": "longenough"}, field: "username"},
		{name: "duplicate username", payload: map[string]any{"username": "taken", "email": "new@example.com", "password": "longenough"}, field: "username"},
		{name: "duplicate email", payload: map[string]any{"username": "fresh", "email": "TAKEN@example.com", "password": "longenough"}, field: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(jsonRequest(http.MethodPost, "/api/register_user/", tt.payload, ""))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
			var fields map[string][]string
			decodeJSON(t, w, &fields)
			if len(fields[tt.field]) == 0 {
				t.Fatalf("expected an error for %s, got %v", tt.field, fields)
			}
		})
	}
}

func TestUpdateUserProfile(t *testing.T) {
	s := setupTestServer(t)
	user := s.createUser(t, "alice")
	token := s.token(t, user)

	w := s.do(jsonRequest(http.MethodPatch, "/api/update_user/", map[string]any{
		"bio":      "I write *Go*.",
		"twitter":  "https://twitter.com/alice",
		"linkedin": "https://linkedin.com/in/alice",
	}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var profile userPayload
	decodeJSON(t, w, &profile)
	if profile.Bio == nil || *profile.Bio != "I write *Go*." {
		t.Fatalf("unexpected bio %v", profile.Bio)
	}
	if !strings.Contains(profile.BioHTML, "<em>Go</em>") {
		t.Fatalf("expected rendered bio, got %q", profile.BioHTML)
	}
	if len(profile.SocialLinks) != 2 || profile.SocialLinks[0].Platform != "twitter" {
		t.Fatalf("unexpected social links %+v", profile.SocialLinks)
	}
	if profile.Email != "alice@example.com" {
		t.Fatalf("absent fields must be kept, email=%q", profile.Email)
	}

	w = s.do(jsonRequest(http.MethodPut, "/api/update_user/", map[string]any{"facebook": "not a url"}, token))
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "facebook") {
		t.Fatalf("expected facebook error, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetUserInfoIncludesPosts(t *testing.T) {
	s := setupTestServer(t)
	token := s.token(t, s.createUser(t, "alice"))
	createPostViaAPI(t, s, token, "First", "body")
	createPostViaAPI(t, s, token, "Second", "body")

	w := s.do(jsonRequest(http.MethodGet, "/api/get_userinfo/alice/", nil, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var info userInfoPayload
	decodeJSON(t, w, &info)
	if info.Username != "alice" || len(info.AuthorPosts) != 2 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.AuthorPosts[0].Headline != "Second" {
		t.Fatalf("expected newest post first, got %q", info.AuthorPosts[0].Headline)
	}

	w = s.do(jsonRequest(http.MethodGet, "/api/get_userinfo/nobody/", nil, ""))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestGetUserByEmail(t *testing.T) {
	s := setupTestServer(t)
	s.createUser(t, "alice")

	w := s.do(jsonRequest(http.MethodGet, "/api/get_user/ALICE@example.com/", nil, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var author authorPayload
	decodeJSON(t, w, &author)
	if author.Username != "alice" {
		t.Fatalf("unexpected author %+v", author)
	}

	w = s.do(jsonRequest(http.MethodGet, "/api/get_user/ghost@example.com/", nil, ""))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}
