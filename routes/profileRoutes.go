package routes

import (
	"civicreport-be/controllers"

	"github.com/gin-gonic/gin"
)

func ProfileRoutes(r *gin.Engine, ac *controllers.AuthController, auth gin.HandlerFunc) {
	profile := r.Group("/api/profile", auth)
	{
		profile.GET("", ac.GetMe)
		profile.PUT("", ac.UpdateProfile)
		profile.PUT("/change-password", ac.ChangePassword)
		profile.PUT("/update-image", ac.UpdateProfileImage)
	}
}
