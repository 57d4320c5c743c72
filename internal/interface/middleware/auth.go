package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/organizer-billing/pkg/helpers"
	"github.com/oksasatya/organizer-billing/pkg/response"
)

const CtxUserIDKey = "userID"

// Auth accepts the access_token cookie or a Bearer token. When rdb is set the
// user must also have a live session hash in Redis (user:session:<id>).
// It sets userID in the Gin context on success.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Abort(c, response.Error[any](c, http.StatusUnauthorized, "missing access token", nil))
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Abort(c, response.Error[any](c, http.StatusUnauthorized, "invalid access token", err.Error()))
			return
		}

		if rdb != nil {
			key := "user:session:" + claims.UserID
			n, err := rdb.Exists(c.Request.Context(), key).Result()
			if err != nil || n == 0 {
				response.Abort(c, response.Error[any](c, http.StatusUnauthorized, "session not found", nil))
				return
			}
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	token, err := c.Cookie("access_token")
	if err != nil {
		return ""
	}
	return token
}
