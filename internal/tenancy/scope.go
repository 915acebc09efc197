package tenancy

import (
	"github.com/shulecore/academic-api/internal/models"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

// Scope is the resolved tenant context for a request. It is derived once from
// the authenticated principal and threaded explicitly through every service
// and repository call; nothing downstream re-derives it.
type Scope struct {
	SchoolID  *string
	Superuser bool
}

// Resolve derives the scope from validated token claims.
func Resolve(claims *models.JWTClaims) Scope {
	if claims == nil {
		return Scope{}
	}
	scope := Scope{Superuser: claims.Role == models.RoleSuperAdmin}
	if claims.SchoolID != "" {
		id := claims.SchoolID
		scope.SchoolID = &id
	}
	return scope
}

// ForSchool builds a scope bound to a single school. Used by tests and
// internal callers acting on behalf of a tenant.
func ForSchool(schoolID string) Scope {
	return Scope{SchoolID: &schoolID}
}

// Superuser builds an unrestricted scope.
func Superuser() Scope {
	return Scope{Superuser: true}
}

// Restricted reports whether queries must be conjoined with a school
// predicate. A non-superuser with no school is also restricted; it simply
// matches nothing (fail closed).
func (s Scope) Restricted() bool {
	return !s.Superuser
}

// School returns the school id queries must be scoped to. The second return
// is false for a non-superuser with no resolved school, in which case the
// caller must treat the scope as matching no rows.
func (s Scope) School() (string, bool) {
	if s.SchoolID == nil {
		return "", false
	}
	return *s.SchoolID, true
}

// Validate fails closed: a non-superuser principal with no school may not
// perform any tenant-scoped operation.
func (s Scope) Validate() error {
	if s.Superuser {
		return nil
	}
	if s.SchoolID == nil || *s.SchoolID == "" {
		return appErrors.Clone(appErrors.ErrAccessDenied, "no school scope resolved for caller")
	}
	return nil
}

// Allows reports whether the scope may mutate rows belonging to schoolID.
func (s Scope) Allows(schoolID string) bool {
	if s.Superuser {
		return true
	}
	return s.SchoolID != nil && *s.SchoolID == schoolID
}
