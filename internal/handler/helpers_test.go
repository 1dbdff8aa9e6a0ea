package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/blogfolio/internal/auth"
	"github.com/blogfolio/internal/db"
	"github.com/blogfolio/internal/service"
	"github.com/blogfolio/internal/storage"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "correct-horse"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	api    *API
	db     *gorm.DB
	engine *gin.Engine
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "-", " ", "-").Replace(t.Name())
	gdb, err := db.Open(db.Options{
		Driver:   db.DriverSQLite,
		Path:     fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	files := storage.NewLocal(t.TempDir(), "/media")
	tokens, err := auth.NewIssuer("handler-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("create token issuer: %v", err)
	}
	api := NewAPI(
		service.NewPostService(gdb, files, zerolog.Nop(), nil),
		service.NewAccountService(gdb, files, zerolog.Nop()),
		tokens,
		files,
		zerolog.Nop(),
	)

	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("handler-test-session"))))
	g := r.Group("/api")
	g.POST("/register_user/", api.RegisterUser)
	g.POST("/token/", api.IssueToken)
	g.POST("/login/", api.Login)
	g.POST("/logout/", api.Logout)
	g.GET("/get_userinfo/:username/", api.GetUserInfo)
	g.GET("/get_user/:email/", api.GetUserByEmail)
	g.GET("/blog_list/", api.ListPosts)
	g.GET("/get_keywordinfo/:keyword", api.ListPostsByKeyword)
	g.GET("/blogs/:slug/", api.GetPost)

	protected := g.Group("", api.AuthRequired())
	protected.GET("/get_username/", api.GetUsername)
	protected.PUT("/update_user/", api.UpdateUserProfile)
	protected.PATCH("/update_user/", api.UpdateUserProfile)
	protected.POST("/create_blog/", api.CreatePost)
	protected.PUT("/update_blog/:id/", api.UpdatePost)
	protected.PATCH("/update_blog/:id/", api.UpdatePost)
	protected.DELETE("/delete_blog/:id/", api.DeletePost)

	return &testServer{api: api, db: gdb, engine: r}
}

func (s *testServer) createUser(t *testing.T, username string) db.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := db.User{Username: username, Email: username + "@example.com", Password: string(hash), ProfilePicture: db.DefaultProfilePicture}
	if err := s.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return user
}

func (s *testServer) token(t *testing.T, user db.User) string {
	t.Helper()
	token, _, err := s.api.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path string, payload any, token string) *http.Request {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type formFile struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, method, path string, fields map[string][]string, files []formFile, token string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, value := range values {
			if err := writer.WriteField(key, value); err != nil {
				t.Fatalf("write field %s: %v", key, err)
			}
		}
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{B: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}
