package handler

import (
	"net/http"
	"strings"

	"github.com/blogfolio/internal/service"
	"github.com/gin-gonic/gin"
)

// ListPosts returns a page of posts, newest first. ?q= filters by content.
func (a *API) ListPosts(c *gin.Context) {
	a.listPosts(c, strings.TrimSpace(c.Query("q")))
}

// ListPostsByKeyword is ListPosts with the keyword taken from the path.
func (a *API) ListPostsByKeyword(c *gin.Context) {
	a.listPosts(c, c.Param("keyword"))
}

func (a *API) listPosts(c *gin.Context, keyword string) {
	page, ok := parsePage(c)
	if !ok {
		respondDetail(c, http.StatusNotFound, detailInvalidPage)
		return
	}

	result, err := a.posts.List(c.Request.Context(), service.PostFilter{
		Keyword:  keyword,
		Page:     page,
		PageSize: parsePageSize(c),
	})
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	payload := pagePayload{
		Count:   result.Count,
		Results: a.postPayloads(c, result.Posts),
	}
	if result.HasNext() {
		next := pageURL(c, result.Page+1)
		payload.Next = &next
	}
	if result.HasPrevious() {
		previous := pageURL(c, result.Page-1)
		payload.Previous = &previous
	}
	c.JSON(http.StatusOK, payload)
}

// GetPost looks a post up by slug.
func (a *API) GetPost(c *gin.Context) {
	post, err := a.posts.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.postPayload(c, post))
}

// CreatePost stores a post owned by the caller along with its gallery.
func (a *API) CreatePost(c *gin.Context) {
	fields := withFields(c)
	if fields == nil {
		return
	}

	isDraft, err := fields.boolPtr("is_draft")
	if err != nil {
		respondValidation(c, service.NewValidationError("is_draft", "Must be a valid boolean."))
		return
	}

	post, err := a.posts.Create(c.Request.Context(), currentUserID(c), service.PostInput{
		Headline:      fields.str("headline"),
		Content:       fields.str("content"),
		Category:      fields.str("category"),
		Language:      fields.str("language"),
		WebAppLink1:   fields.str("web_app_link_1"),
		WebAppLink2:   fields.str("web_app_link_2"),
		WebAppLink3:   fields.str("web_app_link_3"),
		IsDraft:       isDraft,
		FeaturedImage: fields.file("featured_image"),
		Images:        imageUploads(fields),
	})
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, a.postPayload(c, post))
}

// UpdatePost reconciles a post: PUT replaces fields, PATCH changes only
// those sent. Both may add and remove gallery images.
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondDetail(c, http.StatusNotFound, detailNotFound)
		return
	}

	fields := withFields(c)
	if fields == nil {
		return
	}

	// Decode failures are reported by the service after its ownership check.
	rejected := &service.ValidationError{}
	removeIDs, err := parseIDList(fields.values("remove_image_ids"))
	if err != nil {
		rejected.Add("remove_image_ids", "A valid positive integer is required.")
	}
	isDraft, err := fields.boolPtr("is_draft")
	if err != nil {
		rejected.Add("is_draft", "Must be a valid boolean.")
	}
	featured := fields.file("featured_image")

	patch := service.PostPatch{
		Headline:       fields.ptr("headline"),
		Content:        fields.ptr("content"),
		Category:       fields.ptr("category"),
		Language:       fields.ptr("language"),
		WebAppLink1:    fields.ptr("web_app_link_1"),
		WebAppLink2:    fields.ptr("web_app_link_2"),
		WebAppLink3:    fields.ptr("web_app_link_3"),
		IsDraft:        isDraft,
		FeaturedImage:  featured,
		NewImages:      imageUploads(fields),
		RemoveImageIDs: removeIDs,

		ClearFeaturedImage: featured == nil && fields.cleared("featured_image"),
		Rejected:           rejected,
	}

	partial := c.Request.Method == http.MethodPatch
	post, err := a.posts.Update(c.Request.Context(), id, currentUserID(c), patch, partial)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, a.postPayload(c, post))
}

// DeletePost removes a post owned by the caller.
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondDetail(c, http.StatusNotFound, detailNotFound)
		return
	}

	if err := a.posts.Delete(c.Request.Context(), id, currentUserID(c)); err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
