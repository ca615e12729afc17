package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/policy"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound               = errors.New("team not found")
	ErrInvalidTeamName            = errors.New("team name cannot be empty")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
	ErrInvalidInviteCode          = errors.New("invalid invite code")
	ErrAlreadyTeamMember          = errors.New("user is already a member of this team")
	ErrCannotRemoveYourself       = errors.New("cannot remove yourself from the team")
	ErrTeamMemberNotFound         = errors.New("team member not found")
	ErrNotTeamMember              = errors.New("user is not a member of the team")
	ErrInsufficientRole           = errors.New("your role does not allow this action")
	ErrCannotModifyOwner          = errors.New("the team owner cannot be removed or changed")
	ErrInvalidRole                = errors.New("role must be admin or member")
)

// TeamService provides business logic for team operations.
type TeamService struct {
	teamRepo repository.TeamRepository
	now      func() time.Time
}

// NewTeamService creates a new TeamService.
func NewTeamService(teamRepo repository.TeamRepository) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		now:      time.Now,
	}
}

// CreateTeamInput represents parameters to create a new team.
type CreateTeamInput struct {
	Name    string
	OwnerID uint64
}

// CreateTeam creates a new team and assigns the owner.
func (s *TeamService) CreateTeam(input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidTeamName
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	team := &models.Team{
		Name:       name,
		InviteCode: inviteCode,
	}

	if err := s.teamRepo.Create(team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	member := &models.TeamMember{
		TeamID:   team.ID,
		UserID:   input.OwnerID,
		Role:     models.RoleOwner,
		JoinedAt: s.now(),
	}

	if err := s.teamRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add owner to team: %w", err)
	}

	return team, nil
}

// ListTeamsForUser returns teams the user belongs to.
func (s *TeamService) ListTeamsForUser(userID uint64) ([]models.TeamMember, error) {
	memberships, err := s.teamRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return memberships, nil
}

// GetTeamWithMembers returns a team and all of its members.
func (s *TeamService) GetTeamWithMembers(teamID uint64) (*models.Team, []models.TeamMember, error) {
	team, err := s.findTeam(teamID)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.teamRepo.ListMembers(teamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list team members: %w", err)
	}

	return team, members, nil
}

// UpdateTeamName renames a team. Owners and admins only.
func (s *TeamService) UpdateTeamName(teamID, actorID uint64, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidTeamName
	}

	if err := s.authorizeTeamWide(teamID, actorID, policy.ActionManageTeam); err != nil {
		return nil, err
	}

	team, err := s.findTeam(teamID)
	if err != nil {
		return nil, err
	}

	team.Name = name
	if err := s.teamRepo.Update(team); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	return team, nil
}

// DeleteTeam removes a team with its tasks and memberships. Owner only.
func (s *TeamService) DeleteTeam(teamID, actorID uint64) error {
	if _, err := s.findTeam(teamID); err != nil {
		return err
	}

	if err := s.authorizeTeamWide(teamID, actorID, policy.ActionDeleteTeam); err != nil {
		return err
	}

	if err := s.teamRepo.Delete(teamID); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	return nil
}

// JoinTeamByInvite adds a user to a team via invite code.
func (s *TeamService) JoinTeamByInvite(userID uint64, inviteCode string) (*models.Team, error) {
	team, err := s.teamRepo.FindByInviteCode(utils.NormalizeInviteCode(inviteCode))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find team by invite code: %w", err)
	}

	if _, err := s.teamRepo.FindMember(team.ID, userID); err == nil {
		return nil, ErrAlreadyTeamMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.TeamMember{
		TeamID:   team.ID,
		UserID:   userID,
		Role:     models.RoleMember,
		JoinedAt: s.now(),
	}

	if err := s.teamRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member to team: %w", err)
	}

	return team, nil
}

// RegenerateInviteCode generates a new invite code for the team.
func (s *TeamService) RegenerateInviteCode(teamID, actorID uint64) (*models.Team, error) {
	if err := s.authorizeTeamWide(teamID, actorID, policy.ActionRegenerateInvite); err != nil {
		return nil, err
	}

	team, err := s.findTeam(teamID)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	team.InviteCode = code
	if err := s.teamRepo.Update(team); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}

	return team, nil
}

// ChangeMemberRole promotes or demotes a member. Ownership cannot be granted or taken.
func (s *TeamService) ChangeMemberRole(teamID, actorID, targetID uint64, role models.TeamRole) error {
	if !role.Valid() || role == models.RoleOwner {
		return ErrInvalidRole
	}

	actor, target, err := s.loadPair(teamID, actorID, targetID)
	if err != nil {
		return err
	}

	if !policy.Authorize(actor.Role, target.Role, policy.ActionChangeRole) {
		if target.Role == models.RoleOwner {
			return ErrCannotModifyOwner
		}
		return ErrInsufficientRole
	}

	if err := s.teamRepo.UpdateMemberRole(teamID, targetID, role); err != nil {
		return fmt.Errorf("failed to change role: %w", err)
	}
	return nil
}

// RemoveMember removes a member from the team. The owner can never be removed.
func (s *TeamService) RemoveMember(teamID, actorID, targetID uint64) error {
	actor, err := s.findMembership(teamID, actorID, ErrNotTeamMember)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleOwner && actor.Role != models.RoleAdmin {
		return ErrInsufficientRole
	}

	target, err := s.findMembership(teamID, targetID, ErrTeamMemberNotFound)
	if err != nil {
		return err
	}
	// the owner row is never removable, not even by the owner
	if target.Role == models.RoleOwner {
		return ErrCannotModifyOwner
	}
	if targetID == actorID {
		return ErrCannotRemoveYourself
	}

	if !policy.Authorize(actor.Role, target.Role, policy.ActionRemoveMember) {
		if target.Role == models.RoleOwner {
			return ErrCannotModifyOwner
		}
		return ErrInsufficientRole
	}

	if err := s.teamRepo.RemoveMember(teamID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

func (s *TeamService) findTeam(teamID uint64) (*models.Team, error) {
	team, err := s.teamRepo.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return team, nil
}

// findMembership loads a membership, reporting notFound when the user is not in the team
func (s *TeamService) findMembership(teamID, userID uint64, notFound error) (*models.TeamMember, error) {
	member, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to find team member: %w", err)
	}
	return member, nil
}

func (s *TeamService) loadPair(teamID, actorID, targetID uint64) (*models.TeamMember, *models.TeamMember, error) {
	actor, err := s.findMembership(teamID, actorID, ErrNotTeamMember)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.findMembership(teamID, targetID, ErrTeamMemberNotFound)
	if err != nil {
		return nil, nil, err
	}
	return actor, target, nil
}

func (s *TeamService) authorizeTeamWide(teamID, actorID uint64, action policy.Action) error {
	actor, err := s.findMembership(teamID, actorID, ErrNotTeamMember)
	if err != nil {
		return err
	}
	if !policy.Authorize(actor.Role, "", action) {
		return ErrInsufficientRole
	}
	return nil
}
