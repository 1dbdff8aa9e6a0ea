package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/blogfolio/internal/db"
	"github.com/blogfolio/internal/storage"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
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
	return gdb
}

func newTestStore(t *testing.T) *storage.Local {
	t.Helper()
	return storage.NewLocal(t.TempDir(), "/media/")
}

func newTestPostService(t *testing.T) (*PostService, *gorm.DB) {
	t.Helper()
	gdb := setupServiceTestDB(t)
	return NewPostService(gdb, newTestStore(t), zerolog.Nop(), nil), gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, username string) db.User {
	t.Helper()
	user := db.User{Username: username, Email: username + "@example.com", Password: "x"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func pngUpload(t *testing.T, name string) storage.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.Set(1, 1, color.RGBA{G: 180, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return storage.FromBytes(name, buf.Bytes())
}

func emptyUpload() storage.Upload {
	return storage.FromBytes("empty.png", nil)
}

func imageOrders(post *db.Post) []int {
	orders := make([]int, 0, len(post.Images))
	for _, img := range post.Images {
		orders = append(orders, img.SortOrder)
	}
	return orders
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
