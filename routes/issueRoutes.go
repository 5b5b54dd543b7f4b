package routes

import (
	"civicreport-be/controllers"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes. limiter may be nil when rate limiting
// is disabled.
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, auth, limiter gin.HandlerFunc) {
	create := []gin.HandlerFunc{auth}
	if limiter != nil {
		create = append(create, limiter)
	}
	create = append(create, ic.CreateIssue)

	issue := r.Group("/api/issues")
	{
		issue.GET("", ic.GetAllIssues)
		issue.GET("/stats", ic.GetIssueStats)
		issue.POST("", create...)
		issue.GET("/my-issues", auth, ic.GetMyIssues)

		issue.GET("/:id", ic.GetIssue)
		issue.PUT("/:id", auth, ic.UpdateIssue)
		issue.PATCH("/:id/status", auth, ic.UpdateIssueStatus)
		issue.DELETE("/:id", auth, ic.DeleteIssue)
	}
}
