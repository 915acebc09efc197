package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
)

// ContextScopeKey is the gin context key storing the resolved tenant scope.
const ContextScopeKey = "tenantScope"

// TenantScope resolves the tenant scope from JWT claims once per request and
// stashes it in the context. Handlers read it instead of re-deriving.
func TenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		var claims *models.JWTClaims
		if value, exists := c.Get(ContextUserKey); exists {
			claims, _ = value.(*models.JWTClaims)
		}
		c.Set(ContextScopeKey, tenancy.Resolve(claims))
		c.Next()
	}
}

// ScopeFromContext returns the resolved scope, or an empty (fail-closed)
// scope when none was stored.
func ScopeFromContext(c *gin.Context) tenancy.Scope {
	if value, exists := c.Get(ContextScopeKey); exists {
		if scope, ok := value.(tenancy.Scope); ok {
			return scope
		}
	}
	return tenancy.Scope{}
}
