package policy

import "github.com/yukikurage/taskflow-api/internal/models"

// Action is a team operation subject to role checks.
type Action string

const (
	ActionRemoveMember     Action = "remove_member"
	ActionChangeRole       Action = "change_role"
	ActionManageTeam       Action = "manage_team"
	ActionRegenerateInvite Action = "regenerate_invite"
	ActionDeleteTeam       Action = "delete_team"
)

// Authorize decides whether a caller holding callerRole may perform action on a
// member holding targetRole. targetRole is ignored for team-wide actions.
// The owner can never be the target of a member-level action.
func Authorize(callerRole, targetRole models.TeamRole, action Action) bool {
	switch action {
	case ActionRemoveMember:
		if targetRole == models.RoleOwner {
			return false
		}
		switch callerRole {
		case models.RoleOwner:
			return true
		case models.RoleAdmin:
			return targetRole == models.RoleMember
		}
		return false
	case ActionChangeRole:
		return callerRole == models.RoleOwner && targetRole != models.RoleOwner
	case ActionManageTeam, ActionRegenerateInvite:
		return callerRole == models.RoleOwner || callerRole == models.RoleAdmin
	case ActionDeleteTeam:
		return callerRole == models.RoleOwner
	}
	return false
}
