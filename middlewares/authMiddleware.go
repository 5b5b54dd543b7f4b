package middlewares

import (
	"net/http"
	"strings"

	"civicreport-be/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	UserIDKey = "user_id"
	RoleKey   = "role"
	callerKey = "caller"
)

// Authenticator turns a bearer token into the caller it identifies.
type Authenticator interface {
	Authenticate(token string) (*models.Caller, error)
}

func AuthMiddleware(auth Authenticator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			return
		}

		// Extracting token from "Bearer <token>" format
		tokenString := authHeader
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimSpace(authHeader[7:])
		}

		caller, err := auth.Authenticate(tokenString)
		if err != nil {
			log.Debugw("token validation failed", "error", err, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			return
		}

		c.Set(callerKey, caller)
		c.Set(UserIDKey, caller.UserID.Hex())
		c.Set(RoleKey, string(caller.Role))
		c.Next()
	}
}

// CallerFrom returns the caller AuthMiddleware attached, or nil on
// unauthenticated routes.
func CallerFrom(c *gin.Context) *models.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*models.Caller)
	return caller
}
