package middleware

import (
	"bitwise74/szoniska-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaintenanceGate answers 503 while a maintenance window is active. Admins
// pass through. Must run after Auth.Optional or Auth.Required.
func MaintenanceGate(site *service.Site) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := CurrentUser(c); u != nil && u.IsAdmin {
			c.Next()
			return
		}

		m, err := site.ActiveMaintenance(c.Request.Context())
		if err != nil {
			// Don't take the site down because the check failed
			zap.L().Error("Failed to check maintenance", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
			c.Next()
			return
		}

		if m != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":       m.Message,
				"maintenance": m,
				"requestID":   c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
