package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/blogfolio/internal/service"
	"github.com/blogfolio/internal/storage"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username       string                `json:"username" form:"username" binding:"required,max=150"`
	Email          string                `json:"email" form:"email" binding:"required,email,max=254"`
	Password       string                `json:"password" form:"password" binding:"required"`
	FirstName      string                `json:"first_name" form:"first_name" binding:"max=150"`
	LastName       string                `json:"last_name" form:"last_name" binding:"max=150"`
	ProfilePicture *multipart.FileHeader `json:"-" form:"profile_picture"`
}

// RegisterUser creates an account from JSON or a multipart form.
func (a *API) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		respondValidation(c, bindingError(err))
		return
	}

	input := service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.ProfilePicture != nil {
		upload := storage.FromFileHeader(req.ProfilePicture)
		input.ProfilePicture = &upload
	}

	user, err := a.accounts.Register(c.Request.Context(), input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"username":        user.Username,
		"email":           user.Email,
		"first_name":      user.FirstName,
		"last_name":       user.LastName,
		"profile_picture": a.fileURL(user.ProfilePicture),
	})
}

// UpdateUserProfile edits the caller's own profile (PUT or PATCH).
func (a *API) UpdateUserProfile(c *gin.Context) {
	fields := withFields(c)
	if fields == nil {
		return
	}

	patch := service.ProfilePatch{
		Email:             fields.ptr("email"),
		Username:          fields.ptr("username"),
		FirstName:         fields.ptr("first_name"),
		LastName:          fields.ptr("last_name"),
		Bio:               fields.ptr("bio"),
		ProfilePictureURL: fields.ptr("profile_picture_url"),
		Facebook:          fields.ptr("facebook"),
		YouTube:           fields.ptr("youtube"),
		Instagram:         fields.ptr("instagram"),
		Twitter:           fields.ptr("twitter"),
		LinkedIn:          fields.ptr("linkedin"),
		ProfilePicture:    fields.file("profile_picture"),
	}

	user, err := a.accounts.UpdateProfile(c.Request.Context(), currentUserID(c), patch)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, a.userPayload(c, user))
}

// GetUserInfo returns a profile with the author's most recent posts.
func (a *API) GetUserInfo(c *gin.Context) {
	profile, err := a.accounts.Profile(c.Request.Context(), c.Param("username"))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, userInfoPayload{
		userPayload: a.userPayload(c, &profile.User),
		AuthorPosts: a.postPayloads(c, profile.Posts),
	})
}

// GetUserByEmail returns the short author form of an account.
func (a *API) GetUserByEmail(c *gin.Context) {
	user, err := a.accounts.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, a.authorPayload(user))
}
