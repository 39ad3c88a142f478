package routes

import (
	"access-audit-api/controllers"
	"access-audit-api/middleware"
	"access-audit-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Access Audit API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth management
			protected.POST("/refresh", controllers.RefreshToken)

			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Notifications
			protected.GET("/notifications", controllers.GetNotifications)
			protected.PUT("/notifications/:id/read", controllers.MarkNotificationRead)

			// Locations
			locations := protected.Group("/locations")
			{
				locations.GET("", controllers.GetLocations)
				locations.GET("/:id/stats", controllers.GetLocationStats)
				locations.POST("/:id/recompute-score",
					middleware.RequireCapability(models.CapManageAssessments),
					controllers.RecomputeLocationScore)
			}

			// Criterion catalog
			criteria := protected.Group("/criteria")
			{
				criteria.GET("", controllers.GetCriteria)
				criteria.GET("/:id", controllers.GetCriterion)

				// Catalog mutations are reviewer/admin territory
				criteria.POST("", middleware.RequireCapability(models.CapManageAssessments), controllers.CreateCriterion)
				criteria.PUT("/:id", middleware.RequireCapability(models.CapManageAssessments), controllers.UpdateCriterion)
				criteria.DELETE("/:id", middleware.RequireCapability(models.CapManageAssessments), controllers.DeleteCriterion)
			}

			// Assessment sets
			sets := protected.Group("/assessment-sets")
			{
				sets.GET("", controllers.GetAssessmentSets)
				sets.GET("/:id", controllers.GetAssessmentSet)
				sets.GET("/:id/criteria", controllers.GetSetCriteria)

				sets.POST("", middleware.RequireCapability(models.CapManageAssessments), controllers.CreateAssessmentSet)
				sets.PUT("/:id", middleware.RequireCapability(models.CapManageAssessments), controllers.UpdateAssessmentSet)
				sets.DELETE("/:id", middleware.RequireCapability(models.CapManageAssessments), controllers.DeleteAssessmentSet)
				sets.POST("/:id/criteria", middleware.RequireCapability(models.CapManageAssessments), controllers.AddCriterionToSet)
				sets.PUT("/:id/criteria", middleware.RequireCapability(models.CapManageAssessments), controllers.ReplaceSetCriteria)
				sets.DELETE("/:id/criteria/:criterion_id", middleware.RequireCapability(models.CapManageAssessments), controllers.RemoveCriterionFromSet)
			}

			// Assessments
			assessments := protected.Group("/assessments")
			{
				assessments.GET("", controllers.GetAssessments)
				assessments.GET("/:id", controllers.GetAssessment)
				assessments.GET("/:id/details", controllers.GetAssessmentDetails)
				assessments.POST("", controllers.CreateAssessment)

				// Lifecycle transitions; ownership and capability checks live
				// in the service layer
				assessments.POST("/:id/submit", controllers.SubmitAssessment)
				assessments.POST("/:id/verify", controllers.VerifyAssessment)
				assessments.POST("/:id/reject", controllers.RejectAssessment)
				assessments.POST("/:id/reassess", controllers.ReassessAssessment)
				assessments.DELETE("/:id", controllers.DeleteAssessment)

				// Per-criterion details
				assessments.PUT("/:id/criteria/:criterion_id", controllers.UpsertAssessmentDetail)

				// Evidence images and discussion
				assessments.POST("/:id/images", controllers.AttachImage)
				assessments.POST("/:id/comments", controllers.AddAssessmentComment)
				assessments.GET("/:id/comments", controllers.GetAssessmentComments)
			}

			// Details addressed by their own id
			details := protected.Group("/details")
			{
				details.PUT("/:detail_id", controllers.UpdateAssessmentDetail)
				details.POST("/:detail_id/corrected", controllers.MarkDetailCorrected)
				details.POST("/:detail_id/upload-url", controllers.PresignImageUpload)
				details.POST("/:detail_id/images", controllers.UploadImage)
				details.GET("/:detail_id/review-notes", controllers.GetReviewNotes)
				details.POST("/:detail_id/review-notes",
					middleware.RequireCapability(models.CapManageAssessments),
					controllers.AddReviewNote)
			}

			// Images and comments by id
			protected.GET("/images/:image_id/url", controllers.GetImageURL)
			protected.DELETE("/images/:image_id", controllers.DeleteImage)
			protected.PUT("/comments/:comment_id", controllers.EditAssessmentComment)

			// Maintenance sweeps
			maintenance := protected.Group("/maintenance")
			maintenance.Use(middleware.RequireCapability(models.CapManageAssessments))
			{
				maintenance.POST("/repair-null-scores", controllers.RepairNullScores)
				maintenance.POST("/repair-location-scores", controllers.RepairLocationScores)
			}
		}
	}
}
