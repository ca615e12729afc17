package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// TeamWithRoleDTO represents a team with the user's role
type TeamWithRoleDTO struct {
	TeamDTO
	Role models.TeamRole `json:"role"`
}

// TeamMemberDTO represents a member in a team
type TeamMemberDTO struct {
	User     UserDTO         `json:"user"`
	Role     models.TeamRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// TeamDetailDTO represents detailed team information
type TeamDetailDTO struct {
	TeamDTO
	Members  []TeamMemberDTO `json:"members"`
	YourRole models.TeamRole `json:"your_role"`
}

// ToTeamWithRoleDTO converts a team member to DTO with role
func ToTeamWithRoleDTO(member models.TeamMember) TeamWithRoleDTO {
	return TeamWithRoleDTO{
		TeamDTO: ToTeamDTO(member.Team, false),
		Role:    member.Role,
	}
}

// ToTeamMemberDTO converts a member to DTO
func ToTeamMemberDTO(member models.TeamMember) TeamMemberDTO {
	return TeamMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToTeamDetailDTO converts a team with members to detailed DTO.
// Only owners and admins see the invite code.
func ToTeamDetailDTO(team models.Team, members []models.TeamMember, yourRole models.TeamRole) TeamDetailDTO {
	memberDTOs := make([]TeamMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToTeamMemberDTO(member)
	}

	return TeamDetailDTO{
		TeamDTO:  ToTeamDTO(team, yourRole == models.RoleOwner || yourRole == models.RoleAdmin),
		Members:  memberDTOs,
		YourRole: yourRole,
	}
}
