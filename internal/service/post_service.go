package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blogfolio/internal/db"
	"github.com/blogfolio/internal/storage"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 50
	AuthorPostLimit = 12
)

// updatableColumns are the post columns an update may write. The slug is fixed
// at creation.
var updatableColumns = []string{
	"headline", "content", "category", "language", "featured_image", "is_draft",
	"web_app_link_1", "web_app_link_2", "web_app_link_3", "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Recorder receives counts of gallery and post mutations.
type Recorder interface {
	PostCreated()
	ImagesAdded(n int)
	ImagesRemoved(n int)
}

type nopRecorder struct{}

func (nopRecorder) PostCreated()      {}
func (nopRecorder) ImagesAdded(int)   {}
func (nopRecorder) ImagesRemoved(int) {}

// PostService owns posts and their galleries.
type PostService struct {
	db     *gorm.DB
	files  storage.Store
	log    zerolog.Logger
	events Recorder
}

// ImageUpload is a gallery file plus its optional display text.
type ImageUpload struct {
	File    storage.Upload
	Caption string
	AltText string
}

// PostInput holds the fields accepted when creating a post.
type PostInput struct {
	Headline      string
	Content       string
	Category      string
	Language      string
	WebAppLink1   string
	WebAppLink2   string
	WebAppLink3   string
	IsDraft       *bool
	FeaturedImage *storage.Upload
	Images        []ImageUpload
}

// PostPatch describes an update. Nil fields are left unchanged.
type PostPatch struct {
	Headline       *string
	Content        *string
	Category       *string
	Language       *string
	WebAppLink1    *string
	WebAppLink2    *string
	WebAppLink3    *string
	IsDraft        *bool
	FeaturedImage  *storage.Upload
	NewImages      []ImageUpload
	RemoveImageIDs []uint

	// ClearFeaturedImage drops the current featured image when no new one is given.
	ClearFeaturedImage bool
	// Rejected holds decode failures found before the post was loaded. They
	// are reported only once the caller is known to own the post.
	Rejected           *ValidationError
}

// PostFilter selects a page of posts, optionally restricted by keyword.
type PostFilter struct {
	Keyword  string
	Page     int
	PageSize int
}

// PostPage is one page of posts plus the totals needed for navigation.
type PostPage struct {
	Posts      []db.Post
	Count      int64
	Page       int
	PageSize   int
	TotalPages int
}

// HasNext reports whether a later page exists.
func (p *PostPage) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrevious reports whether an earlier page exists.
func (p *PostPage) HasPrevious() bool {
	return p.Page > 1
}

// NewPostService creates a PostService. events may be nil.
func NewPostService(gdb *gorm.DB, files storage.Store, log zerolog.Logger, events Recorder) *PostService {
	if events == nil {
		events = nopRecorder{}
	}
	return &PostService{db: gdb, files: files, log: log, events: events}
}

// Create validates input, assigns a unique slug and stores the post with its
// gallery numbered 0..n-1 in upload order.
func (s *PostService) Create(ctx context.Context, authorID uint, input PostInput) (*db.Post, error) {
	if authorID == 0 {
		return nil, ErrUnauthenticated
	}

	isDraft := true
	if input.IsDraft != nil {
		isDraft = *input.IsDraft
	}

	post := db.Post{
		Headline:    strings.TrimSpace(input.Headline),
		Content:     strings.TrimSpace(input.Content),
		Category:    input.Category,
		Language:    input.Language,
		WebAppLink1: input.WebAppLink1,
		WebAppLink2: input.WebAppLink2,
		WebAppLink3: input.WebAppLink3,
		IsDraft:     isDraft,
		AuthorID:    &authorID,
	}

	verr := &ValidationError{}
	checkRequired(verr, "headline", input.Headline)
	checkRequired(verr, "content", input.Content)
	validatePostFields(verr, &post)
	validateUploads(verr, input.FeaturedImage, input.Images)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var saved []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := assignSlug(tx, post.Headline)
		if err != nil {
			return err
		}
		post.Slug = slug

		if input.FeaturedImage != nil {
			ref, err := s.files.Save(ctx, "post_featured", *input.FeaturedImage)
			if err != nil {
				return fmt.Errorf("store featured image: %w", err)
			}
			saved = append(saved, ref)
			post.FeaturedImage = ref
		}

		if err := tx.Create(&post).Error; err != nil {
			return translateWriteError("create post", err)
		}

		refs, err := s.appendImages(ctx, tx, post.ID, 0, input.Images)
		saved = append(saved, refs...)
		return err
	})
	if err != nil {
		s.discardFiles(ctx, saved)
		return nil, err
	}

	s.events.PostCreated()
	s.events.ImagesAdded(len(input.Images))
	s.log.Info().Uint("post_id", post.ID).Str("slug", post.Slug).Int("images", len(input.Images)).Msg("post created")

	return s.Get(ctx, post.ID)
}

// Update reconciles a post owned by callerID: field changes first, then image
// removals, then appended images numbered after the highest remaining order.
// A full update (partial=false) requires headline and content.
func (s *PostService) Update(ctx context.Context, id, callerID uint, patch PostPatch, partial bool) (*db.Post, error) {
	if callerID == 0 {
		return nil, ErrUnauthenticated
	}

	var (
		saved    []string
		obsolete []string
		removed  int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post db.Post
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return fmt.Errorf("load post: %w", err)
		}
		if !post.IsOwnedBy(callerID) {
			return ErrForbidden
		}

		verr := &ValidationError{}
		verr.merge(patch.Rejected)
		if !partial {
			if patch.Headline == nil {
				verr.Add("headline", msgRequired)
			}
			if patch.Content == nil {
				verr.Add("content", msgRequired)
			}
		}
		if patch.Headline != nil {
			checkRequired(verr, "headline", *patch.Headline)
		}
		if patch.Content != nil {
			checkRequired(verr, "content", *patch.Content)
		}
		patch.apply(&post)
		validatePostFields(verr, &post)
		validateUploads(verr, patch.FeaturedImage, patch.NewImages)
		if err := verr.OrNil(); err != nil {
			return err
		}

		if patch.FeaturedImage != nil {
			ref, err := s.files.Save(ctx, "post_featured", *patch.FeaturedImage)
			if err != nil {
				return fmt.Errorf("store featured image: %w", err)
			}
			saved = append(saved, ref)
			if post.FeaturedImage != "" {
				obsolete = append(obsolete, post.FeaturedImage)
			}
			post.FeaturedImage = ref
		} else if patch.ClearFeaturedImage && post.FeaturedImage != "" {
			obsolete = append(obsolete, post.FeaturedImage)
			post.FeaturedImage = ""
		}

		post.UpdatedAt = time.Now()
		if err := tx.Model(&post).Select(updatableColumns).Updates(&post).Error; err != nil {
			return translateWriteError("update post", err)
		}

		if len(patch.RemoveImageIDs) > 0 {
			var doomed []db.GalleryImage
			if err := tx.Where("post_id = ? AND id IN ?", post.ID, patch.RemoveImageIDs).Find(&doomed).Error; err != nil {
				return fmt.Errorf("find gallery images: %w", err)
			}
			if len(doomed) > 0 {
				if err := tx.Delete(&doomed).Error; err != nil {
					return fmt.Errorf("delete gallery images: %w", err)
				}
			}
			for _, image := range doomed {
				obsolete = append(obsolete, image.Image)
			}
			removed = len(doomed)
		}

		if len(patch.NewImages) == 0 {
			return nil
		}
		start, err := nextImageOrder(tx, post.ID)
		if err != nil {
			return err
		}
		refs, err := s.appendImages(ctx, tx, post.ID, start, patch.NewImages)
		saved = append(saved, refs...)
		return err
	})
	if err != nil {
		s.discardFiles(ctx, saved)
		return nil, err
	}

	s.discardFiles(ctx, obsolete)
	s.events.ImagesAdded(len(patch.NewImages))
	s.events.ImagesRemoved(removed)
	s.log.Info().Uint("post_id", id).Int("added", len(patch.NewImages)).Int("removed", removed).Msg("post updated")

	return s.Get(ctx, id)
}

// Delete removes a post owned by callerID together with its gallery.
func (s *PostService) Delete(ctx context.Context, id, callerID uint) error {
	if callerID == 0 {
		return ErrUnauthenticated
	}

	var post db.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Images").First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return fmt.Errorf("load post: %w", err)
		}
		if !post.IsOwnedBy(callerID) {
			return ErrForbidden
		}

		if err := tx.Where("post_id = ?", post.ID).Delete(&db.GalleryImage{}).Error; err != nil {
			return fmt.Errorf("delete gallery images: %w", err)
		}
		if err := tx.Delete(&db.Post{}, post.ID).Error; err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	files := make([]string, 0, len(post.Images)+1)
	for _, image := range post.Images {
		files = append(files, image.Image)
	}
	if post.FeaturedImage != "" {
		files = append(files, post.FeaturedImage)
	}
	s.discardFiles(ctx, files)
	s.events.ImagesRemoved(len(post.Images))
	s.log.Info().Uint("post_id", id).Msg("post deleted")
	return nil
}

// Get loads a post by id with its author and ordered gallery.
func (s *PostService) Get(ctx context.Context, id uint) (*db.Post, error) {
	var post db.Post
	if err := withGraph(s.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// GetBySlug loads a post by its slug.
func (s *PostService) GetBySlug(ctx context.Context, slug string) (*db.Post, error) {
	var post db.Post
	if err := withGraph(s.db.WithContext(ctx)).Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post by slug: %w", err)
	}
	return &post, nil
}

// List returns posts newest first. Drafts are included.
func (s *PostService) List(ctx context.Context, filter PostFilter) (*PostPage, error) {
	result := &PostPage{
		Page:     normalizePage(filter.Page),
		PageSize: ClampPageSize(filter.PageSize),
	}

	if err := s.filtered(ctx, filter.Keyword).Count(&result.Count).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	result.TotalPages = calculateTotalPages(result.Count, result.PageSize)
	if result.Page > result.TotalPages {
		return nil, ErrInvalidPage
	}

	offset := (result.Page - 1) * result.PageSize
	if err := withGraph(s.filtered(ctx, filter.Keyword)).
		Order("posts.created_at desc, posts.id desc").
		Limit(result.PageSize).
		Offset(offset).
		Find(&result.Posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	return result, nil
}

// recentPostsBy returns up to limit of the author's newest posts, drafts
// included. A non-positive limit means AuthorPostLimit.
func recentPostsBy(q *gorm.DB, authorID uint, limit int) ([]db.Post, error) {
	if limit <= 0 {
		limit = AuthorPostLimit
	}
	var posts []db.Post
	if err := withGraph(q).
		Where("author_id = ?", authorID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list author posts: %w", err)
	}
	return posts, nil
}

// ClampPageSize applies the default for non-positive sizes and caps at MaxPageSize.
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

func (s *PostService) filtered(ctx context.Context, keyword string) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&db.Post{})
	if keyword != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
		query = query.Where(`LOWER(posts.content) LIKE ? ESCAPE '\'`, pattern)
	}
	return query
}

func (s *PostService) appendImages(ctx context.Context, tx *gorm.DB, postID uint, start int, uploads []ImageUpload) ([]string, error) {
	saved := make([]string, 0, len(uploads))
	dir := fmt.Sprintf("post_gallery/%d", postID)
	for i, upload := range uploads {
		ref, err := s.files.Save(ctx, dir, upload.File)
		if err != nil {
			return saved, fmt.Errorf("store gallery image: %w", err)
		}
		saved = append(saved, ref)

		image := db.GalleryImage{
			PostID:    postID,
			Image:     ref,
			Caption:   strings.TrimSpace(upload.Caption),
			AltText:   strings.TrimSpace(upload.AltText),
			SortOrder: start + i,
		}
		if err := tx.Create(&image).Error; err != nil {
			return saved, translateWriteError("create gallery image", err)
		}
	}
	return saved, nil
}

// nextImageOrder is recomputed from the stored gallery on every call.
func nextImageOrder(tx *gorm.DB, postID uint) (int, error) {
	var maxOrder int
	if err := tx.Model(&db.GalleryImage{}).
		Where("post_id = ?", postID).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&maxOrder).Error; err != nil {
		return 0, fmt.Errorf("resolve gallery order: %w", err)
	}
	return maxOrder + 1, nil
}

func (s *PostService) discardFiles(ctx context.Context, refs []string) {
	if len(refs) == 0 {
		return
	}
	cleanupCtx := context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.files.Remove(cleanupCtx, ref); err != nil {
			s.log.Warn().Err(err).Str("ref", ref).Msg("failed to remove stored file")
		}
	}
}

func (p PostPatch) apply(post *db.Post) {
	if p.Headline != nil {
		post.Headline = strings.TrimSpace(*p.Headline)
	}
	if p.Content != nil {
		post.Content = strings.TrimSpace(*p.Content)
	}
	if p.Category != nil {
		post.Category = *p.Category
	}
	if p.Language != nil {
		post.Language = *p.Language
	}
	if p.WebAppLink1 != nil {
		post.WebAppLink1 = *p.WebAppLink1
	}
	if p.WebAppLink2 != nil {
		post.WebAppLink2 = *p.WebAppLink2
	}
	if p.WebAppLink3 != nil {
		post.WebAppLink3 = *p.WebAppLink3
	}
	if p.IsDraft != nil {
		post.IsDraft = *p.IsDraft
	}
}

func validatePostFields(verr *ValidationError, post *db.Post) {
	checkMaxLength(verr, "headline", post.Headline, 255)
	checkChoice(verr, "category", post.Category, db.Categories)
	checkChoice(verr, "language", post.Language, db.Languages)
	checkLink(verr, "web_app_link_1", &post.WebAppLink1, 500)
	checkLink(verr, "web_app_link_2", &post.WebAppLink2, 500)
	checkLink(verr, "web_app_link_3", &post.WebAppLink3, 500)
}

func validateUploads(verr *ValidationError, featured *storage.Upload, images []ImageUpload) {
	if featured != nil {
		checkImage(verr, "featured_image", *featured)
	}
	for _, image := range images {
		checkImage(verr, "new_images", image.File)
		checkMaxLength(verr, "captions", image.Caption, 255)
		checkMaxLength(verr, "alt_texts", image.AltText, 255)
	}
}

func withGraph(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Author").
		Preload("Images", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order asc, id asc")
		})
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
