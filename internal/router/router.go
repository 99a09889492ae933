package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/cosecasa/internal/config"
	"github.com/cosecasa/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg config.AppConfig) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("cosecasa_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// 公开站点路由，每个请求装配一次文章集合
	public := r.Group("")
	public.Use(api.WithCatalog())
	{
		public.GET("/", api.ShowHome)
		public.GET("/search", api.Search)
		public.GET("/about", api.ShowAbout)
		public.GET("/:category", api.ShowCategory)
		public.GET("/:category/:slug", api.ShowArticle)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.GET("/login", api.ShowLoginPage)
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		// 需要认证的后台路由
		auth := admin.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.GET("", api.Browse)
			auth.GET("/upload", api.ShowUploadForm)
			auth.GET("/upload-images", api.ShowUploadImagesForm)

			// API路由
			adminAPI := auth.Group("/api")
			{
				adminAPI.POST("/delete-asset", api.DeleteAsset)
				adminAPI.POST("/delete-article", api.DeleteArticle)
				adminAPI.POST("/upload", api.UploadArticle)
				adminAPI.POST("/upload-images", api.UploadImages)

				adminAPI.GET("/pending", api.ListPending)
				adminAPI.POST("/pending/uploads", api.StageUpload)
				adminAPI.POST("/pending/deletes", api.StageDelete)
				adminAPI.DELETE("/pending/uploads/:slug", api.RemovePendingUpload)
				adminAPI.DELETE("/pending/deletes/:slug", api.RemovePendingDelete)
				adminAPI.POST("/pending/clear", api.ClearPending)
				adminAPI.POST("/pending/publish", api.PublishPending)
			}
		}
	}

	return r
}
