package handler

import (
	"time"

	"github.com/blogfolio/internal/db"
	"github.com/blogfolio/internal/view"
	"github.com/gin-gonic/gin"
)

type authorPayload struct {
	ID             uint    `json:"id"`
	Username       string  `json:"username"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	ProfilePicture *string `json:"profile_picture"`
}

type imagePayload struct {
	ID         uint      `json:"id"`
	Image      string    `json:"image"`
	Caption    *string   `json:"caption"`
	AltText    *string   `json:"alt_text"`
	Order      int       `json:"order"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type postPayload struct {
	ID            uint           `json:"id"`
	Headline      string         `json:"headline"`
	Slug          string         `json:"slug"`
	Author        *authorPayload `json:"author"`
	Category      *string        `json:"category"`
	Language      *string        `json:"language"`
	Content       string         `json:"content"`
	ContentHTML   string         `json:"content_html"`
	FeaturedImage *string        `json:"featured_image"`
	IsDraft       bool           `json:"is_draft"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	WebAppLink1   *string        `json:"web_app_link_1"`
	WebAppLink2   *string        `json:"web_app_link_2"`
	WebAppLink3   *string        `json:"web_app_link_3"`
	Images        []imagePayload `json:"images"`
}

type userPayload struct {
	ID                uint              `json:"id"`
	Username          string            `json:"username"`
	Email             string            `json:"email"`
	FirstName         string            `json:"first_name"`
	LastName          string            `json:"last_name"`
	Bio               *string           `json:"bio"`
	BioHTML           string            `json:"bio_html"`
	ProfilePicture    *string           `json:"profile_picture"`
	ProfilePictureURL *string           `json:"profile_picture_url"`
	Facebook          *string           `json:"facebook"`
	YouTube           *string           `json:"youtube"`
	Instagram         *string           `json:"instagram"`
	Twitter           *string           `json:"twitter"`
	LinkedIn          *string           `json:"linkedin"`
	SocialLinks       []view.SocialLink `json:"social_links"`
}

type userInfoPayload struct {
	userPayload
	AuthorPosts []postPayload `json:"author_posts"`
}

type pagePayload struct {
	Count    int64         `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []postPayload `json:"results"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (a *API) fileURL(ref string) *string {
	if ref == "" {
		return nil
	}
	url := a.files.URL(ref)
	return &url
}

func (a *API) authorPayload(user *db.User) *authorPayload {
	if user == nil {
		return nil
	}
	return &authorPayload{
		ID:             user.ID,
		Username:       user.Username,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Email:          user.Email,
		ProfilePicture: a.fileURL(user.ProfilePicture),
	}
}

func (a *API) postPayload(c *gin.Context, post *db.Post) postPayload {
	html, err := view.RenderMarkdown(post.Content)
	if err != nil {
		_ = c.Error(err)
		a.log.Warn().Err(err).Uint("post_id", post.ID).Msg("render content")
	}

	images := make([]imagePayload, 0, len(post.Images))
	for _, image := range post.Images {
		images = append(images, imagePayload{
			ID:         image.ID,
			Image:      a.files.URL(image.Image),
			Caption:    nullable(image.Caption),
			AltText:    nullable(image.AltText),
			Order:      image.SortOrder,
			UploadedAt: image.UploadedAt,
		})
	}

	return postPayload{
		ID:            post.ID,
		Headline:      post.Headline,
		Slug:          post.Slug,
		Author:        a.authorPayload(post.Author),
		Category:      nullable(post.Category),
		Language:      nullable(post.Language),
		Content:       post.Content,
		ContentHTML:   html,
		FeaturedImage: a.fileURL(post.FeaturedImage),
		IsDraft:       post.IsDraft,
		CreatedAt:     post.CreatedAt,
		UpdatedAt:     post.UpdatedAt,
		WebAppLink1:   nullable(post.WebAppLink1),
		WebAppLink2:   nullable(post.WebAppLink2),
		WebAppLink3:   nullable(post.WebAppLink3),
		Images:        images,
	}
}

func (a *API) postPayloads(c *gin.Context, posts []db.Post) []postPayload {
	out := make([]postPayload, 0, len(posts))
	for i := range posts {
		out = append(out, a.postPayload(c, &posts[i]))
	}
	return out
}

func (a *API) userPayload(c *gin.Context, user *db.User) userPayload {
	bioHTML, err := view.RenderMarkdown(user.Bio)
	if err != nil {
		_ = c.Error(err)
	}

	social := make(map[string]string, 5)
	for key, value := range user.SocialLinks() {
		social[key] = *value
	}

	return userPayload{
		ID:                user.ID,
		Username:          user.Username,
		Email:             user.Email,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		Bio:               nullable(user.Bio),
		BioHTML:           bioHTML,
		ProfilePicture:    a.fileURL(user.ProfilePicture),
		ProfilePictureURL: nullable(user.ProfilePictureURL),
		Facebook:          nullable(user.Facebook),
		YouTube:           nullable(user.YouTube),
		Instagram:         nullable(user.Instagram),
		Twitter:           nullable(user.Twitter),
		LinkedIn:          nullable(user.LinkedIn),
		SocialLinks:       view.SocialLinks(social),
	}
}
