package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/config"
	"github.com/unknownitems/unknownitems/controllers"
	"github.com/unknownitems/unknownitems/middleware"
	"github.com/unknownitems/unknownitems/utils"
)

// SetupRouter wires middleware, static serving and the API surface.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	gin.SetMode(cfg.GinMode)

	r := gin.New()

	accessLogger, err := utils.NewRollingFileLogger(
		cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		accessLogger = zap.L()
	}
	r.Use(utils.Ginzap(accessLogger, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLogger, true))

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsCfg.AllowCredentials = !corsCfg.AllowAllOrigins
	r.Use(cors.New(corsCfg))

	r.Static("/media", cfg.MediaDir)

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := controllers.NewAuthController(db)
	oauth := controllers.NewOAuthController(db)
	users := controllers.NewUserController(db)
	posts := controllers.NewPostController(db)
	comments := controllers.NewCommentController(db)
	engagement := controllers.NewEngagementController(db)
	tags := controllers.NewTagController(db)

	api := r.Group("/api/v1")

	// Credential endpoints are rate limited but unauthenticated.
	authGroup := api.Group("/auth", middleware.RateLimitMiddleware())
	{
		authGroup.POST("/register", auth.Register)
		authGroup.POST("/login", auth.Login)
		authGroup.GET("/oauth/:provider", oauth.Redirect)
		authGroup.GET("/oauth/:provider/callback", oauth.Callback)
	}

	// Public reads. Optional auth lets signed-in clients be identified
	// without blocking anonymous traffic.
	api.GET("/posts", middleware.AuthOptional(), posts.ListPosts)
	api.GET("/posts/:id", middleware.AuthOptional(), posts.GetPost)
	api.GET("/posts/:id/comments", comments.ListComments)
	api.GET("/tags", tags.ListTrendingTags)
	api.GET("/users/:id", users.GetUserByID)
	api.GET("/user/by-username/:username", users.GetUserByUsername)

	protected := api.Group("", middleware.AuthRequired(), middleware.RateLimitMiddleware())
	{
		protected.POST("/auth/logout", auth.Logout)
		protected.GET("/auth/me", auth.Me)
		protected.PATCH("/auth/profile", auth.UpdateProfile)

		protected.POST("/posts", posts.CreatePost)
		protected.PATCH("/posts/:id", posts.UpdatePost)
		protected.DELETE("/posts/:id", posts.DeletePost)
		protected.POST("/posts/:id/comments", comments.CreateComment)
		protected.POST("/posts/:id/like", engagement.TogglePostLike)
		protected.POST("/posts/:id/bookmark", engagement.TogglePostBookmark)
		protected.DELETE("/comments/:id", comments.DeleteComment)
		protected.POST("/comments/:id/like", engagement.ToggleCommentLike)
		protected.POST("/users/:id/follow", engagement.ToggleFollow)
		protected.GET("/users/me/bookmarks", posts.ListMyBookmarks)
		protected.POST("/upload", posts.UploadMedia)
	}

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
