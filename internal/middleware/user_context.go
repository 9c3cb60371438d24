package middleware

import (
	"net/http"
	"strings"

	"fyp-portal/internal/auth"
	"fyp-portal/internal/models"
	"fyp-portal/internal/response"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	SessionUserID = "user_id"
	actorKey      = "CurrentActor"
)

// InjectActor resolves the caller from a bearer token or, failing that,
// from the session cookie. Requests without either pass through
// anonymously; a bad token is rejected outright.
func InjectActor(db *gorm.DB, tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				response.HTTPError(c, http.StatusUnauthorized, "malformed authorization header", response.InvalidToken)
				return
			}
			actor, err := tokens.CheckToken(strings.TrimSpace(raw))
			if err != nil {
				response.HTTPError(c, http.StatusUnauthorized, "invalid or expired token", response.InvalidToken)
				return
			}
			c.Set(actorKey, actor)
			c.Next()
			return
		}

		sess := sessions.Default(c)
		if uid, ok := sess.Get(SessionUserID).(string); ok && uid != "" {
			var user models.User
			if err := db.WithContext(c.Request.Context()).Where("id = ?", uid).First(&user).Error; err == nil {
				c.Set(actorKey, user.Actor())
			}
		}
		c.Next()
	}
}

// CurrentActor returns the identity InjectActor stored on the request.
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// MustActor is for handlers mounted behind RequireAuth.
func MustActor(c *gin.Context) models.Actor {
	actor, _ := CurrentActor(c)
	return actor
}
