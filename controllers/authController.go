package controllers

import (
	"net/http"
	"time"

	"civicreport-be/middlewares"
	"civicreport-be/models"
	"civicreport-be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthController serves registration, login and the profile endpoints.
type AuthController struct {
	auth    *services.AuthService
	log     *zap.SugaredLogger
	timeout time.Duration
}

func NewAuthController(auth *services.AuthService, log *zap.SugaredLogger, timeout time.Duration) *AuthController {
	return &AuthController{auth: auth, log: log, timeout: timeout}
}

// RegisterUser handles user registration
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
		Role     string `json:"role"`
	}
	if err := bindJSON(c, &input); err != nil {
		writeError(c, ac.log, err)
		return
	}

	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	user, err := ac.auth.Register(ctx, models.RegisterInput{
		Name:     input.Name,
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		Phone:    input.Phone,
		Role:     models.Role(input.Role),
	})
	if err != nil {
		writeError(c, ac.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User Registered Successfully",
		"user":    user,
	})
}

// LoginUser handles user login
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := bindJSON(c, &input); err != nil {
		writeError(c, ac.log, err)
		return
	}

	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	token, user, err := ac.auth.Login(ctx, input.Email, input.Password)
	if err != nil {
		writeError(c, ac.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login Successful",
		"token":   token,
		"user": gin.H{
			"id":       user.ID,
			"name":     user.Name,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// GetMe retrieves the authenticated user's information
func (ac *AuthController) GetMe(c *gin.Context) {
	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	user, err := ac.auth.Profile(ctx, middlewares.CallerFrom(c))
	if err != nil {
		writeError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ac *AuthController) UpdateProfile(c *gin.Context) {
	var input struct {
		Name     *string `json:"name"`
		Username *string `json:"username"`
		Phone    *string `json:"phone"`
		Location *string `json:"location"`
		Bio      *string `json:"bio"`
	}
	if err := bindJSON(c, &input); err != nil {
		writeError(c, ac.log, err)
		return
	}

	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	user, err := ac.auth.UpdateProfile(ctx, middlewares.CallerFrom(c), models.ProfilePatch{
		Name:     input.Name,
		Username: input.Username,
		Phone:    input.Phone,
		Location: input.Location,
		Bio:      input.Bio,
	})
	if err != nil {
		writeError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	var input struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := bindJSON(c, &input); err != nil {
		writeError(c, ac.log, err)
		return
	}

	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	err := ac.auth.ChangePassword(ctx, middlewares.CallerFrom(c), input.CurrentPassword, input.NewPassword)
	if err != nil {
		writeError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// UpdateProfileImage stores an image URL the client already uploaded
func (ac *AuthController) UpdateProfileImage(c *gin.Context) {
	var input struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := bindJSON(c, &input); err != nil {
		writeError(c, ac.log, err)
		return
	}

	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	user, err := ac.auth.UpdateImage(ctx, middlewares.CallerFrom(c), input.ImageURL)
	if err != nil {
		writeError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Profile image updated successfully",
		"imageUrl": user.ImageURL,
		"user":     user,
	})
}
