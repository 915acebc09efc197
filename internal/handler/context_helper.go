package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shulecore/academic-api/internal/middleware"
	"github.com/shulecore/academic-api/internal/tenancy"
)

func scopeFromContext(c *gin.Context) tenancy.Scope {
	return middleware.ScopeFromContext(c)
}
