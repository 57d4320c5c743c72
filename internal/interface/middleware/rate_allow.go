package middleware

import "github.com/gin-gonic/gin"

// AllowPrivateIP bypasses rate limiting for loopback and private clients,
// e.g. in-cluster metric scrapers.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		return isPrivate(ipFromCtx(c))
	}
}
