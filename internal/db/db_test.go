package db

import (
	"testing"

	"gorm.io/gorm/logger"
)

func TestSQLiteDSNAppendsPragmas(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "plain file", path: "blogfolio.db", want: "blogfolio.db?_foreign_keys=on&_busy_timeout=5000"},
		{name: "existing query", path: "file:test?mode=memory", want: "file:test?mode=memory&_foreign_keys=on&_busy_timeout=5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SQLiteDSN(tt.path); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestOpenRejectsBadDriverSettings(t *testing.T) {
	if _, err := Open(Options{Driver: "mysql"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := Open(Options{Driver: DriverPostgres}); err == nil {
		t.Fatalf("expected missing DSN error")
	}
}

func TestPostIsOwnedBy(t *testing.T) {
	owner := uint(7)
	post := Post{AuthorID: &owner}

	if !post.IsOwnedBy(7) {
		t.Fatalf("expected author to own the post")
	}
	if post.IsOwnedBy(8) || post.IsOwnedBy(0) {
		t.Fatalf("expected other callers not to own the post")
	}
	if (&Post{}).IsOwnedBy(7) {
		t.Fatalf("expected a detached post to have no owner")
	}
}

func TestGalleryCascadeOnPostDelete(t *testing.T) {
	gdb, err := Open(Options{Path: "file:cascade?mode=memory&cache=shared", LogLevel: logger.Silent})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	user := User{Username: "alice", Email: "alice@example.com", Password: "x"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	post := Post{Headline: "h", Slug: "h", Content: "c", AuthorID: &user.ID}
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	if err := gdb.Create(&GalleryImage{PostID: post.ID, Image: "a.png", SortOrder: 0}).Error; err != nil {
		t.Fatalf("create image: %v", err)
	}
	if err := gdb.Create(&GalleryImage{PostID: post.ID, Image: "b.png", SortOrder: 0}).Error; err == nil {
		t.Fatalf("expected duplicate order to violate the unique index")
	}

	if err := gdb.Delete(&Post{}, post.ID).Error; err != nil {
		t.Fatalf("delete post: %v", err)
	}
	var count int64
	gdb.Model(&GalleryImage{}).Where("post_id = ?", post.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected images to cascade, found %d", count)
	}
}
