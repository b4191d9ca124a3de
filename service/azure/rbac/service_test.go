package azurerbac

import (
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
)

func TestSameRoleDefinition(t *testing.T) {
	full := "/subscriptions/1111/providers/Microsoft.Authorization/roleDefinitions/acdd72a7-3385-48ef-bd42-f606fba81ae7"
	tenantLevel := "/providers/Microsoft.Authorization/roleDefinitions/ACDD72A7-3385-48EF-BD42-F606FBA81AE7"
	other := "/providers/Microsoft.Authorization/roleDefinitions/582fc458-8989-419f-a480-75249bc5db7e"

	assert.True(t, sameRoleDefinition(full, tenantLevel))
	assert.True(t, sameRoleDefinition(full, full))
	assert.False(t, sameRoleDefinition(full, other))
}

func TestHasErrorCode(t *testing.T) {
	conflict := &azcore.ResponseError{ErrorCode: "RoleAssignmentExists"}
	notFound := &azcore.ResponseError{ErrorCode: "PrincipalNotFound"}

	assert.True(t, hasErrorCode(conflict, "RoleAssignmentExists"))
	assert.True(t, hasErrorCode(notFound, "principalnotfound"))
	assert.False(t, hasErrorCode(conflict, "PrincipalNotFound"))
	assert.False(t, hasErrorCode(errors.New("plain"), "RoleAssignmentExists"))
	assert.False(t, hasErrorCode(nil, "RoleAssignmentExists"))
}
