package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/blogfolio/internal/db"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
	currentUserKey     = "current_user"
)

type credentialsRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// IssueToken exchanges a username and password for a bearer token.
func (a *API) IssueToken(c *gin.Context) {
	user, ok := a.checkCredentials(c)
	if !ok {
		return
	}

	token, expires, err := a.tokens.Issue(user.ID)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access":     token,
		"token_type": "Bearer",
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

// Login starts a cookie session for browser clients.
func (a *API) Login(c *gin.Context) {
	user, ok := a.checkCredentials(c)
	if !ok {
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	if err := session.Save(); err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

// Logout clears the cookie session.
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AuthRequired accepts a bearer token or a session and loads the caller.
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := a.callerID(c)
		if !ok {
			respondDetail(c, http.StatusUnauthorized, detailUnauthenticated)
			c.Abort()
			return
		}

		user, err := a.accounts.GetByID(c.Request.Context(), userID)
		if err != nil {
			respondDetail(c, http.StatusUnauthorized, "User not found")
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// GetUsername returns the caller's username.
func (a *API) GetUsername(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

func (a *API) callerID(c *gin.Context) (uint, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return 0, false
		}
		userID, err := a.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			return 0, false
		}
		return userID, true
	}

	session := sessions.Default(c)
	switch value := session.Get(sessionUserIDKey).(type) {
	case uint:
		return value, value != 0
	default:
		return 0, false
	}
}

func (a *API) checkCredentials(c *gin.Context) (*db.User, bool) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		respondValidation(c, bindingError(err))
		return nil, false
	}

	user, err := a.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		a.handleServiceError(c, err)
		return nil, false
	}
	return user, true
}

// currentUser is set by AuthRequired.
func currentUser(c *gin.Context) *db.User {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := value.(*db.User)
	return user
}

// currentUserID is zero for anonymous requests.
func currentUserID(c *gin.Context) uint {
	if user := currentUser(c); user != nil {
		return user.ID
	}
	return 0
}
