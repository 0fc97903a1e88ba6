package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silverhost/panel/internal/tenant"
)

// TenantHeader carries the authenticated tenant identifier. In a full
// deployment it is injected by the auth proxy in front of this
// service.
const TenantHeader = "X-Tenant-ID"

// TenantKey is the gin context key holding the validated tenant id.
const TenantKey = "tenant_id"

// Tenant extracts and validates the tenant identifier from the request
// headers. Requests without a valid tenant never reach a handler.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TenantHeader)
		if id == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing " + TenantHeader + " header",
			})
			c.Abort()
			return
		}
		if err := tenant.ValidateID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			c.Abort()
			return
		}
		c.Set(TenantKey, id)
		c.Next()
	}
}

// TenantID returns the validated tenant id set by the Tenant middleware.
func TenantID(c *gin.Context) string {
	return c.GetString(TenantKey)
}
