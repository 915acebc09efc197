package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulecore/academic-api/internal/models"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

func TestResolveFromClaims(t *testing.T) {
	scope := Resolve(&models.JWTClaims{Role: models.RoleAdmin, SchoolID: "sch-1"})
	require.NotNil(t, scope.SchoolID)
	assert.Equal(t, "sch-1", *scope.SchoolID)
	assert.False(t, scope.Superuser)

	super := Resolve(&models.JWTClaims{Role: models.RoleSuperAdmin})
	assert.True(t, super.Superuser)
	assert.Nil(t, super.SchoolID)
}

func TestResolveNilClaims(t *testing.T) {
	scope := Resolve(nil)
	assert.False(t, scope.Superuser)
	assert.Nil(t, scope.SchoolID)
	assert.Error(t, scope.Validate())
}

func TestValidateFailsClosedWithoutSchool(t *testing.T) {
	scope := Scope{}
	err := scope.Validate()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccessDenied.Code, appErrors.FromError(err).Code)

	assert.NoError(t, Superuser().Validate())
	assert.NoError(t, ForSchool("sch-1").Validate())
}

func TestAllows(t *testing.T) {
	scope := ForSchool("sch-1")
	assert.True(t, scope.Allows("sch-1"))
	assert.False(t, scope.Allows("sch-2"))
	assert.True(t, Superuser().Allows("sch-2"))
}

func TestSchoolFailClosed(t *testing.T) {
	_, ok := Scope{}.School()
	assert.False(t, ok)

	id, ok := ForSchool("sch-9").School()
	require.True(t, ok)
	assert.Equal(t, "sch-9", id)
}
