package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/fleetorbit/fleetorbit-api/internal/config"
	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"github.com/fleetorbit/fleetorbit-api/internal/security"
	"github.com/fleetorbit/fleetorbit-api/internal/util"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Context keys set by the auth middleware.
const (
	ctxUserID     = "userID"
	ctxCustomerID = "customerID"
)

// requestLogMiddleware logs each request with sensitive query parameters
// masked.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		query := util.MaskSensitiveQuery(c.Request.URL.RawQuery)
		target := c.Request.URL.Path
		if query != "" {
			target = target + "?" + query
		}
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     target,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}).Info("http request")
	}
}

// authMiddleware validates caller JWTs and loads the acting user into the
// request context.
func authMiddleware(db *gorm.DB, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(cfg.JWT.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if user.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxCustomerID, user.CustomerID)
		c.Next()
	}
}
