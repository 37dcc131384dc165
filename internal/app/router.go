package app

import (
	"coursehub_backend/docs"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/middleware"
	"coursehub_backend/internal/model"
	"coursehub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 学员接口
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 管理接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 付费课程详情需要识别登录用户
		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:id", middleware.OptionalAuthMiddleware(cfg), c.course.GetCourseDetail)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)

	progress := group.Group("/progress")
	{
		progress.POST("/steps/:stepId/complete", c.progress.MarkStepComplete)
		progress.GET("/courses/:courseId", c.progress.GetUserProgress)
		progress.GET("/courses/:courseId/summary", c.progress.GetCourseProgressSummary)
	}

	submissions := group.Group("/submissions")
	{
		submissions.POST("", c.submission.Submit)
		submissions.POST("/upload", c.submission.UploadFile)
		submissions.GET("/mine", c.submission.ListMine)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	{
		// PIN 设置和校验只需要管理员身份
		pin := admin.Group("/pin")
		pin.Use(middleware.RoleMiddleware(model.Admin, model.SuperAdmin))
		{
			pin.GET("/status", c.admin.PinStatus)
			pin.POST("", c.admin.SetPin)
			pin.POST("/verify", c.admin.VerifyPin)
		}

		// 作业审核：教师和管理员，管理员需要 PIN
		review := admin.Group("/submissions")
		review.Use(
			middleware.RoleMiddleware(model.Teacher, model.PremiumTeacher, model.FreeTeacher),
			middleware.AdminPinMiddleware(cfg),
		)
		{
			review.GET("", c.submission.List)
			review.POST("/:id/review", c.submission.Review)
		}

		gated := admin.Group("")
		gated.Use(middleware.RoleMiddleware(model.Admin, model.SuperAdmin), middleware.AdminPinMiddleware(cfg))
		{
			gated.POST("/courses", c.course.CreateCourse)
			gated.PUT("/courses/:id", c.course.UpdateCourse)
			gated.DELETE("/courses/:id", c.course.DeleteCourse)
			gated.POST("/courses/:id/modules", c.course.CreateModule)
			gated.POST("/courses/:id/recompute", c.admin.RecomputeCompletion)

			gated.PUT("/modules/:id", c.course.UpdateModule)
			gated.DELETE("/modules/:id", c.course.DeleteModule)
			gated.POST("/modules/:id/steps", c.course.CreateStep)

			gated.PUT("/steps/:id", c.course.UpdateStep)
			gated.DELETE("/steps/:id", c.course.DeleteStep)
			gated.POST("/steps/:id/video", c.course.UploadStepVideo)

			gated.GET("/dashboard", c.admin.Dashboard)
			gated.GET("/users", c.admin.ListUsers)
			gated.PUT("/users/:id/role", c.admin.ChangeRole)
			gated.PUT("/users/:id/subscription", c.admin.UpdateSubscription)
		}
	}
}
