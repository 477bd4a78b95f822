package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/middleware"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

// SetupSubmissionRoutes wires the originality-pipeline surface: upload,
// status read, listing and report export.
func SetupSubmissionRoutes(router *gin.Engine, authMw *middleware.AuthMiddleware, deps SubmissionDeps) {
	submissions := router.Group("/api/submissions")
	submissions.Use(authMw.RequireAuth())
	{
		submissions.POST("/upload",
			authMw.RequireRole(models.RoleStudent),
			HandleSubmissionUpload(deps))

		submissions.GET("", ListSubmissions(deps))
		submissions.GET("/:id/plagiarism", CheckSubmissionStatus(deps))
		submissions.GET("/:id/plagiarism/export",
			authMw.RequireRole(models.RoleCoordinator, models.RoleAdviser, models.RolePanelist, models.RoleStudent),
			ExportOriginalityReport(deps))
	}
}
