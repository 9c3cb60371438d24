package middleware

import (
	"net/http"

	"fyp-portal/internal/models"
	"fyp-portal/internal/response"

	"github.com/gin-gonic/gin"
)

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentActor(c); !ok {
			response.HTTPError(c, http.StatusUnauthorized, "login required", response.Unauthorized)
			return
		}
		c.Next()
	}
}

func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			response.HTTPError(c, http.StatusUnauthorized, "login required", response.Unauthorized)
			return
		}
		if _, ok := roleSet[actor.Role]; !ok {
			response.HTTPError(c, http.StatusForbidden, "access denied", response.Forbidden)
			return
		}
		c.Next()
	}
}
