package router

import (
	"net/http"

	"github.com/blogfolio/internal/config"
	"github.com/blogfolio/internal/handler"
	"github.com/blogfolio/internal/logger"
	"github.com/blogfolio/internal/metrics"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const sessionName = "blogfolio_session"

// SetupRouter configures the Gin engine and routes.
func SetupRouter(cfg config.AppConfig, api *handler.API, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes()
	r.Use(logger.Recovery(log), logger.RequestLogger(log), m.Middleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{cfg.UploadURLPath, "/metrics"})))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode, MaxAge: 86400 * 7})
	r.Use(sessions.Sessions(sessionName, store))

	r.Static(cfg.UploadURLPath, cfg.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	limited := newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware()

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/register_user/", limited, api.RegisterUser)
		apiGroup.POST("/token/", limited, api.IssueToken)
		apiGroup.POST("/login/", limited, api.Login)
		apiGroup.POST("/logout/", api.Logout)

		apiGroup.GET("/get_userinfo/:username/", api.GetUserInfo)
		apiGroup.GET("/get_user/:email/", api.GetUserByEmail)
		apiGroup.GET("/blog_list/", api.ListPosts)
		apiGroup.GET("/get_keywordinfo/:keyword", api.ListPostsByKeyword)
		apiGroup.GET("/blogs/:slug/", api.GetPost)

		auth := apiGroup.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.GET("/get_username/", api.GetUsername)
			auth.PUT("/update_user/", api.UpdateUserProfile)
			auth.PATCH("/update_user/", api.UpdateUserProfile)
			auth.POST("/create_blog/", api.CreatePost)
			auth.PUT("/update_blog/:id/", api.UpdatePost)
			auth.PATCH("/update_blog/:id/", api.UpdatePost)
			auth.DELETE("/delete_blog/:id/", api.DeletePost)
		}
	}

	return r
}
