package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const TenantHeader = "X-Tenant-Id"

const tenantKey = "tenant_id"

// Tenant resolves the tenant every request is scoped to. Credentials are
// validated by the edge; this layer only carries the tenant through.
func Tenant(defaultTenant string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := strings.TrimSpace(c.GetHeader(TenantHeader))
		if tenant == "" {
			tenant = defaultTenant
		}
		c.Set(tenantKey, tenant)
		c.Next()
	}
}

func TenantID(c *gin.Context) string {
	return c.GetString(tenantKey)
}
