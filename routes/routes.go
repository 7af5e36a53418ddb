package routes

import (
	"net/http"

	"sitesafe-api/controllers"
	"sitesafe-api/middleware"
	"sitesafe-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)
			public.POST("/register", controllers.Register)
			public.GET("/site-checkin/:id", controllers.PublicSiteCheckin)

			public.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"status":  "ok",
					"message": "SiteSafe API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)
			protected.GET("/dashboard", controllers.GetDashboard)

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.ListNotifications)
				notifications.GET("/unread-count", controllers.GetUnreadCount)
				notifications.PATCH("/:id/read", controllers.MarkNotificationRead)
				notifications.POST("/read-all", controllers.MarkAllNotificationsRead)
			}
		}

		setupWorkerRoutes(protected)
		setupStaffRoutes(protected)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Endpoint not found"})
	})
}

// setupWorkerRoutes registers the /me tree used by the worker app.
func setupWorkerRoutes(protected *gin.RouterGroup) {
	me := protected.Group("/me")
	me.Use(middleware.RequireUserType(models.UserTypeWorker))
	{
		me.GET("/profile", controllers.GetMyProfile)
		me.PUT("/profile", controllers.UpdateMyProfile)

		me.GET("/health-questionnaire", controllers.GetMyHealthQuestionnaire)
		me.POST("/health-questionnaire", controllers.SubmitHealthQuestionnaire)

		me.POST("/check-in", controllers.CheckIn)
		me.POST("/check-out", controllers.CheckOut)
		me.GET("/site-log/current", controllers.CurrentCheckin)
		me.GET("/site-logs", controllers.MySiteLogs)

		me.GET("/risk-assessments", controllers.MyRiskAssessments)
		me.GET("/risk-assessments/:id", controllers.MyRiskAssessment)
		me.POST("/risk-assessments/:id/sign", controllers.SignRiskAssessment)
	}
}

func setupStaffRoutes(protected *gin.RouterGroup) {
	staff := protected.Group("")
	staff.Use(middleware.RequireUserType(models.UserTypeStaff))

	users := staff.Group("/users")
	{
		users.GET("", controllers.ListUsers)
		users.POST("", controllers.CreateUser)
		users.PUT("/:id/active", controllers.SetUserActive)
	}

	subcontractors := staff.Group("/subcontractors")
	{
		subcontractors.GET("", controllers.ListSubcontractors)
		subcontractors.GET("/register.pdf", controllers.SubcontractorRegisterPDF)
		subcontractors.POST("", controllers.CreateSubcontractor)
		subcontractors.GET("/:id", controllers.GetSubcontractor)
		subcontractors.PUT("/:id", controllers.UpdateSubcontractor)
		subcontractors.DELETE("/:id", controllers.DeleteSubcontractor)
		subcontractors.GET("/:id/documents", controllers.ListSubcontractorDocuments)
		subcontractors.POST("/:id/documents", controllers.UploadSubcontractorDocument)
	}

	rams := staff.Group("/rams")
	{
		rams.GET("/wizard", controllers.GetRamsWizard)
		rams.GET("", controllers.ListRams)
		rams.POST("", controllers.CreateRams)
		rams.GET("/:id", controllers.GetRams)
		rams.PUT("/:id/steps/:step", controllers.SaveRamsStep)
		rams.POST("/:id/submit", controllers.SubmitRams)
		rams.POST("/:id/approve", controllers.ApproveRams)
		rams.POST("/:id/reject", controllers.RejectRams)
		rams.POST("/:id/archive", controllers.ArchiveRams)
		rams.DELETE("/:id", controllers.DeleteRams)
		rams.GET("/:id/pdf", controllers.GetRamsPDF)
	}

	risk := staff.Group("/risk-assessments")
	{
		risk.GET("/wizard", controllers.GetRiskAssessmentWizard)
		risk.GET("", controllers.ListRiskAssessments)
		risk.POST("", controllers.CreateRiskAssessment)
		risk.GET("/:id", controllers.GetRiskAssessment)
		risk.PUT("/:id/steps/:step", controllers.SaveRiskAssessmentStep)
		risk.POST("/:id/publish", controllers.PublishRiskAssessment)
		risk.POST("/:id/archive", controllers.ArchiveRiskAssessment)
		risk.DELETE("/:id", controllers.DeleteRiskAssessment)
		risk.GET("/:id/signatures", controllers.ListRiskAssessmentSignatures)
		risk.GET("/:id/pdf", controllers.GetRiskAssessmentPDF)
	}

	sites := staff.Group("/sites")
	{
		sites.GET("", controllers.ListSites)
		sites.POST("", controllers.CreateSite)
		sites.GET("/:id", controllers.GetSite)
		sites.PUT("/:id", controllers.UpdateSite)
		sites.DELETE("/:id", controllers.DeleteSite)
		sites.GET("/:id/qr", controllers.GetSiteQR)
		sites.GET("/:id/poster", controllers.GetSitePoster)
		sites.GET("/:id/on-site", controllers.GetSiteOnSite)
	}

	logs := staff.Group("/site-logs")
	{
		logs.GET("", controllers.ListSiteLogs)
		logs.GET("/report", controllers.SiteLogReportPDF)
		logs.POST("/:id/check-out", controllers.ManualCheckOut)
	}

	workers := staff.Group("/workers")
	{
		workers.GET("", controllers.ListWorkers)
		workers.GET("/:id", controllers.GetWorker)
	}

	health := staff.Group("/health-questionnaires")
	{
		health.GET("", controllers.ListHealthQuestionnaires)
		health.PUT("/:id/review", controllers.ReviewHealthQuestionnaire)
	}

	signage := staff.Group("/signage")
	{
		signage.GET("", controllers.ListSignage)
		signage.POST("", controllers.UploadSignage)
		signage.GET("/:id", controllers.GetSignage)
		signage.PUT("/:id", controllers.UpdateSignage)
		signage.PUT("/:id/artwork", controllers.ReplaceSignageArtwork)
		signage.DELETE("/:id", controllers.DeleteSignage)
		signage.GET("/:id/download", controllers.DownloadSignage)
	}

	settings := staff.Group("/settings")
	{
		settings.GET("", controllers.GetSettings)
		settings.PUT("", controllers.UpdateSettings)
		settings.GET("/logo", controllers.GetLogo)
		settings.POST("/logo", controllers.UploadLogo)
	}

	reminders := staff.Group("/reminders")
	{
		reminders.GET("", controllers.ListReminders)
		reminders.POST("/run", controllers.RunReminders)
	}
}
