package app

import (
	"studyplanner_backend/docs"
	"studyplanner_backend/internal/config"
	"studyplanner_backend/internal/middleware"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)

		// 用户画像与学习偏好
		authGroup.GET("/user/profile", c.user.GetProfile)
		authGroup.PUT("/user/deadline", c.user.SetDeadline)
		authGroup.PUT("/user/plan", c.user.SelectPlan)
		authGroup.GET("/user/subjects", c.user.GetSubjects)
		authGroup.PUT("/user/subjects", c.user.SelectSubjects)
		authGroup.PUT("/user/subjects/:id/priority", c.user.SetSubjectPriority)
		authGroup.POST("/user/avatar", c.user.UploadAvatar)

		// 内容目录（只读）
		authGroup.GET("/subjects", c.content.ListSubjects)
		authGroup.GET("/subjects/:id", c.content.GetSubject)

		// 排期引擎
		authGroup.POST("/schedule/plans", c.schedule.CalculatePlans)
		authGroup.POST("/schedule/generate", c.schedule.Generate)
		authGroup.GET("/schedule", c.schedule.GetSchedule)
		authGroup.PUT("/schedule/entries/:id/complete", c.schedule.CompleteEntry)

		// 学习进度
		authGroup.POST("/progress/complete", c.progress.CompleteContent)
		authGroup.POST("/progress/sessions", c.progress.LogSession)

		// 打卡与排行榜
		authGroup.POST("/streak/update", c.gamification.UpdateStreak)
		authGroup.GET("/leaderboard", c.gamification.GetLeaderboard)

		// 首页
		authGroup.GET("/dashboard", c.dashboard.GetDashboard)
	}

	// 3. 管理员接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/subjects", c.content.CreateSubject)
		admin.DELETE("/subjects/:id", c.content.DeleteSubject)
		admin.POST("/subjects/:id/modules", c.content.CreateModule)
		admin.POST("/modules/:id/items", c.content.CreateItem)
		admin.POST("/items/:id/video", c.content.UploadLectureVideo)
		admin.POST("/catalog/import", c.content.ImportCatalog)
	}
}
