package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careloop/careline/internal/auth"
	"github.com/careloop/careline/internal/models"
)

// ContextKeyActor is where the validated actor lives in gin's per-request
// context. A constant instead of an inline string so a typo fails to
// compile rather than silently returning nil.
const ContextKeyActor = "actor"

// AuthMiddleware validates the bearer token and stores the resulting
// domain actor in the request context. If the token is missing or invalid
// the chain is aborted with 401 and the handler never runs.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextKeyActor, claims.Actor())
		c.Next()
	}
}

// GetActor returns the actor stored by AuthMiddleware. The zero Actor is
// returned if the middleware never ran — its Nil user id will fail any
// downstream check gracefully.
func GetActor(c *gin.Context) models.Actor {
	val, exists := c.Get(ContextKeyActor)
	if !exists {
		return models.Actor{}
	}
	actor, ok := val.(models.Actor)
	if !ok {
		return models.Actor{}
	}
	return actor
}
