package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/taskflow-api/internal/models"
)

var allRoles = []models.TeamRole{models.RoleOwner, models.RoleAdmin, models.RoleMember}

func TestAuthorize_OwnerNeverRemovable(t *testing.T) {
	for _, caller := range allRoles {
		assert.False(t, Authorize(caller, models.RoleOwner, ActionRemoveMember), "caller %s", caller)
		assert.False(t, Authorize(caller, models.RoleOwner, ActionChangeRole), "caller %s", caller)
	}
}

func TestAuthorize_RemoveMember(t *testing.T) {
	assert.True(t, Authorize(models.RoleOwner, models.RoleAdmin, ActionRemoveMember))
	assert.True(t, Authorize(models.RoleOwner, models.RoleMember, ActionRemoveMember))
	assert.True(t, Authorize(models.RoleAdmin, models.RoleMember, ActionRemoveMember))
	assert.False(t, Authorize(models.RoleAdmin, models.RoleAdmin, ActionRemoveMember))
	assert.False(t, Authorize(models.RoleMember, models.RoleMember, ActionRemoveMember))
}

func TestAuthorize_TeamWideActions(t *testing.T) {
	assert.True(t, Authorize(models.RoleAdmin, "", ActionManageTeam))
	assert.True(t, Authorize(models.RoleAdmin, "", ActionRegenerateInvite))
	assert.False(t, Authorize(models.RoleMember, "", ActionManageTeam))
	assert.True(t, Authorize(models.RoleOwner, "", ActionDeleteTeam))
	assert.False(t, Authorize(models.RoleAdmin, "", ActionDeleteTeam))
}

func TestAuthorize_UnknownAction(t *testing.T) {
	assert.False(t, Authorize(models.RoleOwner, models.RoleMember, Action("launch")))
}
