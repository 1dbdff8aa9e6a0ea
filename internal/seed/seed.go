// Package seed fills a development database with demo accounts and posts.
// Everything goes through the services, so slugs, gallery order and stored
// files look exactly like data created over the API.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/blogfolio/internal/db"
	"github.com/blogfolio/internal/service"
	"github.com/blogfolio/internal/storage"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "blogfolio123"

// Options controls how much data Run creates.
type Options struct {
	Users        int
	PostsPerUser int
	MaxImages    int
	// Seed makes the generated content reproducible when non-zero.
	Seed int64
}

// Result reports what Run created.
type Result struct {
	Users  int
	Posts  int
	Images int
}

// Run creates demo data. It does nothing when accounts already exist.
func Run(ctx context.Context, gdb *gorm.DB, accounts *service.AccountService, posts *service.PostService, opts Options, log zerolog.Logger) (Result, error) {
	var result Result

	var count int64
	if err := gdb.WithContext(ctx).Model(&db.User{}).Count(&count).Error; err != nil {
		return result, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		log.Info().Int64("users", count).Msg("accounts already exist, skipping seed")
		return result, nil
	}

	faker := gofakeit.New(opts.Seed)
	for i := 0; i < opts.Users; i++ {
		user, err := accounts.Register(ctx, service.RegisterInput{
			Username:  fmt.Sprintf("%s%d", strings.ToLower(faker.Username()), i),
			Email:     fmt.Sprintf("demo%d@%s", i, faker.DomainName()),
			Password:  DemoPassword,
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
		})
		if err != nil {
			return result, fmt.Errorf("register demo user: %w", err)
		}
		result.Users++

		for j := 0; j < opts.PostsPerUser; j++ {
			input := demoPost(faker, opts.MaxImages)
			if _, err := posts.Create(ctx, user.ID, input); err != nil {
				return result, fmt.Errorf("create demo post for %s: %w", user.Username, err)
			}
			result.Posts++
			result.Images += len(input.Images)
		}
	}

	log.Info().Int("users", result.Users).Int("posts", result.Posts).Int("images", result.Images).Msg("seed complete")
	return result, nil
}

func demoPost(faker *gofakeit.Faker, maxImages int) service.PostInput {
	headline := strings.TrimSuffix(faker.Sentence(5), ".")
	paragraphs := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		paragraphs = append(paragraphs, faker.Paragraph(1, 4, 12, " "))
	}

	input := service.PostInput{
		Headline: headline,
		Content:  "## " + faker.HackerPhrase() + "\n\n" + strings.Join(paragraphs, "\n\n"),
		Category: db.Categories[faker.Number(0, len(db.Categories)-1)],
		Language: db.Languages[faker.Number(0, len(db.Languages)-1)],
		IsDraft:  boolPtr(faker.Number(1, 10) == 1),
	}
	if faker.Bool() {
		input.WebAppLink1 = faker.URL()
	}

	if maxImages > 0 {
		for n := faker.Number(0, maxImages); n > 0; n-- {
			input.Images = append(input.Images, service.ImageUpload{
				File:    swatch(faker, fmt.Sprintf("swatch-%d.png", n)),
				Caption: faker.Sentence(4),
				AltText: faker.Color(),
			})
		}
	}
	return input
}

// swatch encodes a small solid-color PNG.
func swatch(faker *gofakeit.Faker, name string) storage.Upload {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	fill := color.RGBA{R: faker.Uint8(), G: faker.Uint8(), B: faker.Uint8(), A: 255}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return storage.FromBytes(name, buf.Bytes())
}

func boolPtr(b bool) *bool { return &b }
