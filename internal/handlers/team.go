package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// CreateTeam creates a new team owned by the caller
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTeamRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	team, err := h.teamService.CreateTeam(services.CreateTeamInput{
		Name:    req.Name,
		OwnerID: userID,
	})
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTeamDTO(*team, true))
}

// ListTeams returns all teams the user is a member of
func (h *TeamHandler) ListTeams(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	memberships, err := h.teamService.ListTeamsForUser(userID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	teams := make([]dto.TeamWithRoleDTO, len(memberships))
	for i, m := range memberships {
		teams[i] = dto.ToTeamWithRoleDTO(m)
	}

	c.JSON(http.StatusOK, gin.H{
		"teams": teams,
	})
}

// GetTeam returns team details
// Team and membership are already loaded by RequireTeamAccess
func (h *TeamHandler) GetTeam(c *gin.Context) {
	team, member, ok := teamFromContext(c)
	if !ok {
		return
	}

	_, members, err := h.teamService.GetTeamWithMembers(team.ID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDetailDTO(team, members, member.Role))
}

// UpdateTeam renames a team
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	team, member, ok := teamFromContext(c)
	if !ok {
		return
	}

	type UpdateTeamRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.teamService.UpdateTeamName(team.ID, member.UserID, req.Name)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*updated, true))
}

// DeleteTeam deletes a team. Owner only.
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	team, member, ok := teamFromContext(c)
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(team.ID, member.UserID); err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Team deleted successfully",
	})
}

// JoinTeam adds the caller to the team identified by an invite code
func (h *TeamHandler) JoinTeam(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type JoinTeamRequest struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}

	var req JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	team, err := h.teamService.JoinTeamByInvite(userID, req.InviteCode)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Joined team successfully",
		"team":    dto.ToTeamDTO(*team, false),
	})
}

// RegenerateInviteCode replaces the team's invite code
func (h *TeamHandler) RegenerateInviteCode(c *gin.Context) {
	team, member, ok := teamFromContext(c)
	if !ok {
		return
	}

	updated, err := h.teamService.RegenerateInviteCode(team.ID, member.UserID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*updated, true))
}

// ChangeMemberRole promotes or demotes a member. Owner only.
func (h *TeamHandler) ChangeMemberRole(c *gin.Context) {
	team, member, ok := teamFromContext(c)
	if !ok {
		return
	}

	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	type ChangeRoleRequest struct {
		Role models.TeamRole `json:"role" binding:"required"`
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.teamService.ChangeMemberRole(team.ID, member.UserID, targetID, req.Role); err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveMember removes the member in the :user_id parameter from the team in :id
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	team, member, ok := teamFromContext(c)
	if !ok {
		return
	}

	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.teamService.RemoveMember(team.ID, member.UserID, targetID); err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveMemberByBody handles DELETE /api/teams/members with {teamId, memberId}
func (h *TeamHandler) RemoveMemberByBody(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type RemoveMemberRequest struct {
		TeamID   uint64 `json:"teamId" binding:"required"`
		MemberID uint64 `json:"memberId" binding:"required"`
	}

	var req RemoveMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "teamId and memberId are required")
		return
	}

	if err := h.teamService.RemoveMember(req.TeamID, userID, req.MemberID); err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func teamFromContext(c *gin.Context) (models.Team, models.TeamMember, bool) {
	teamValue, exists := c.Get(constants.ContextKeyTeam)
	if !exists {
		apierrors.InternalError(c, "Team not found in context")
		return models.Team{}, models.TeamMember{}, false
	}
	team, ok := teamValue.(models.Team)
	if !ok {
		apierrors.InternalError(c, "Invalid team data")
		return models.Team{}, models.TeamMember{}, false
	}

	memberValue, exists := c.Get(constants.ContextKeyMember)
	if !exists {
		apierrors.InternalError(c, "Team membership not found in context")
		return models.Team{}, models.TeamMember{}, false
	}
	member, ok := memberValue.(models.TeamMember)
	if !ok {
		apierrors.InternalError(c, "Invalid membership data")
		return models.Team{}, models.TeamMember{}, false
	}

	return team, member, true
}

func respondTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTeamName),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrCannotRemoveYourself):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrTeamMemberNotFound),
		errors.Is(err, services.ErrInvalidInviteCode):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTeamMember),
		errors.Is(err, services.ErrInsufficientRole),
		errors.Is(err, services.ErrCannotModifyOwner):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrAlreadyTeamMember):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInviteCodeGenerationFailed):
		apierrors.InternalError(c, err.Error())
	default:
		log.Printf("[Teams] unexpected error: %v", err)
		apierrors.InternalError(c, "Internal server error")
	}
}
