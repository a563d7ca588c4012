package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies. Media confessions carry inline data URLs,
// so the cap is generous.
const maxBodyBytes = 24 << 20

// AdminAuthMiddleware checks for a secret X-Admin-Token header. With no token
// configured the moderation endpoints fail closed.
func AdminAuthMiddleware(requiredToken string, log zerolog.Logger) gin.HandlerFunc {
	if requiredToken == "" {
		log.Warn().Msg("admin token not configured, moderation endpoints disabled")
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Moderation is not configured"})
		}
	}

	return func(c *gin.Context) {
		suppliedToken := c.GetHeader("X-Admin-Token")

		if suppliedToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Admin token required"})
			return
		}
		if suppliedToken != requiredToken {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Invalid admin token"})
			return
		}

		c.Next()
	}
}

// SecurityHeadersMiddleware adds basic, sensible security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevents clickjacking
		c.Header("X-Frame-Options", "DENY")
		// Prevents MIME-type sniffing
		c.Header("X-Content-Type-Options", "nosniff")
		// The server is API-only, nothing here should be treated as a document.
		c.Header("Content-Security-Policy", "default-src 'none'")

		c.Next()
	}
}

// BodyLimitMiddleware rejects bodies larger than maxBodyBytes.
func BodyLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		c.Next()
	}
}

// RequestLoggerMiddleware logs one structured line per request.
func RequestLoggerMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
