package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/dto"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
	"gorm.io/gorm"
)

type teamTestEnv struct {
	db          *gorm.DB
	handler     *TeamHandler
	teamService *services.TeamService
}

func setupTeamTestEnv(t *testing.T) teamTestEnv {
	t.Helper()

	db := setupHandlerTestDB(t)
	teamService := services.NewTeamService(repository.NewTeamRepository(db))

	return teamTestEnv{
		db:          db,
		handler:     NewTeamHandler(teamService),
		teamService: teamService,
	}
}

// withTeamContext simulates RequireTeamAccess
func withTeamContext(c *gin.Context, team models.Team, userID uint64, role models.TeamRole) {
	c.Set(constants.ContextKeyTeam, team)
	c.Set(constants.ContextKeyMember, models.TeamMember{TeamID: team.ID, UserID: userID, Role: role})
}

func TestTeamHandler_CreateTeam(t *testing.T) {
	env := setupTeamTestEnv(t)

	user := createHandlerTestUser(t, env.db, "owner@example.com")

	payload := map[string]string{"name": "New Team"}
	c, w := handlerTestContext(http.MethodPost, "/api/teams", mustJSON(t, payload), user.ID)

	env.handler.CreateTeam(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.TeamDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, payload["name"], response.Name)
	require.NotEmpty(t, response.InviteCode)
}

func TestTeamHandler_ListTeams(t *testing.T) {
	env := setupTeamTestEnv(t)

	user := createHandlerTestUser(t, env.db, "member@example.com")

	_, err := env.teamService.CreateTeam(services.CreateTeamInput{
		Name:    "Team One",
		OwnerID: user.ID,
	})
	require.NoError(t, err)

	c, w := handlerTestContext(http.MethodGet, "/api/teams", nil, user.ID)

	env.handler.ListTeams(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string][]dto.TeamWithRoleDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	teams := response["teams"]
	require.Len(t, teams, 1)
	require.Equal(t, "Team One", teams[0].TeamDTO.Name)
	require.Equal(t, models.RoleOwner, teams[0].Role)
}

func TestTeamHandler_GetTeam_HidesInviteCodeFromMembers(t *testing.T) {
	env := setupTeamTestEnv(t)

	owner := createHandlerTestUser(t, env.db, "owner@example.com")
	member := createHandlerTestUser(t, env.db, "member@example.com")
	team := createHandlerTestTeam(t, env.db, "crew", map[uint64]models.TeamRole{
		owner.ID:  models.RoleOwner,
		member.ID: models.RoleMember,
	})

	c, w := handlerTestContext(http.MethodGet, "/api/teams/1", nil, member.ID)
	withTeamContext(c, *team, member.ID, models.RoleMember)
	env.handler.GetTeam(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.TeamDetailDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Members, 2)
	require.Empty(t, response.InviteCode)
	require.Equal(t, models.RoleMember, response.YourRole)
}

func TestTeamHandler_JoinTeam_InvalidCode(t *testing.T) {
	env := setupTeamTestEnv(t)

	user := createHandlerTestUser(t, env.db, "user@example.com")

	payload := map[string]string{"invite_code": "UNKNOWN"}
	c, w := handlerTestContext(http.MethodPost, "/api/teams/join", mustJSON(t, payload), user.ID)

	env.handler.JoinTeam(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTeamHandler_RemoveMemberByBody(t *testing.T) {
	env := setupTeamTestEnv(t)

	owner := createHandlerTestUser(t, env.db, "owner@example.com")
	admin := createHandlerTestUser(t, env.db, "admin@example.com")
	member := createHandlerTestUser(t, env.db, "member@example.com")
	outsider := createHandlerTestUser(t, env.db, "outsider@example.com")
	team := createHandlerTestTeam(t, env.db, "crew", map[uint64]models.TeamRole{
		owner.ID:  models.RoleOwner,
		admin.ID:  models.RoleAdmin,
		member.ID: models.RoleMember,
	})

	tests := []struct {
		name    string
		actor   uint64
		target  uint64
		want    int
		removed bool
	}{
		{"admin cannot remove owner", admin.ID, owner.ID, http.StatusForbidden, false},
		{"member cannot remove anyone", member.ID, admin.ID, http.StatusForbidden, false},
		{"outsider is forbidden", outsider.ID, member.ID, http.StatusForbidden, false},
		{"owner cannot remove themselves", owner.ID, owner.ID, http.StatusForbidden, false},
		{"admin cannot remove themselves", admin.ID, admin.ID, http.StatusBadRequest, false},
		{"unknown target", owner.ID, outsider.ID, http.StatusNotFound, false},
		{"owner removes member", owner.ID, member.ID, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := map[string]uint64{"teamId": team.ID, "memberId": tt.target}
			c, w := handlerTestContext(http.MethodDelete, "/api/teams/members", mustJSON(t, payload), tt.actor)

			env.handler.RemoveMemberByBody(c)

			assert.Equal(t, tt.want, w.Code)

			var count int64
			require.NoError(t, env.db.Model(&models.TeamMember{}).
				Where("team_id = ? AND user_id = ?", team.ID, tt.target).
				Count(&count).Error)
			if tt.removed {
				assert.Zero(t, count)
				assert.JSONEq(t, `{"success":true}`, w.Body.String())
			} else if tt.target != outsider.ID {
				assert.Equal(t, int64(1), count)
			}
		})
	}

	// the owner row survived every attempt
	var owners int64
	require.NoError(t, env.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND role = ?", team.ID, models.RoleOwner).
		Count(&owners).Error)
	assert.Equal(t, int64(1), owners)
}

func TestTeamHandler_RemoveMemberByBody_MissingFields(t *testing.T) {
	env := setupTeamTestEnv(t)

	user := createHandlerTestUser(t, env.db, "owner@example.com")

	c, w := handlerTestContext(http.MethodDelete, "/api/teams/members", mustJSON(t, map[string]uint64{"teamId": 1}), user.ID)
	env.handler.RemoveMemberByBody(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeamHandler_RemoveMember_ByPath(t *testing.T) {
	env := setupTeamTestEnv(t)

	owner := createHandlerTestUser(t, env.db, "owner@example.com")
	admin := createHandlerTestUser(t, env.db, "admin@example.com")
	team := createHandlerTestTeam(t, env.db, "crew", map[uint64]models.TeamRole{
		owner.ID: models.RoleOwner,
		admin.ID: models.RoleAdmin,
	})

	c, w := handlerTestContext(http.MethodDelete, "/api/teams/1/members/1", nil, admin.ID)
	c.Params = gin.Params{{Key: "user_id", Value: strconv.FormatUint(owner.ID, 10)}}
	withTeamContext(c, *team, admin.ID, models.RoleAdmin)

	env.handler.RemoveMember(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTeamHandler_ChangeMemberRole(t *testing.T) {
	env := setupTeamTestEnv(t)

	owner := createHandlerTestUser(t, env.db, "owner@example.com")
	member := createHandlerTestUser(t, env.db, "member@example.com")
	team := createHandlerTestTeam(t, env.db, "crew", map[uint64]models.TeamRole{
		owner.ID:  models.RoleOwner,
		member.ID: models.RoleMember,
	})

	c, w := handlerTestContext(http.MethodPut, "/api/teams/1/members/2", mustJSON(t, map[string]string{"role": "admin"}), owner.ID)
	c.Params = gin.Params{{Key: "user_id", Value: strconv.FormatUint(member.ID, 10)}}
	withTeamContext(c, *team, owner.ID, models.RoleOwner)

	env.handler.ChangeMemberRole(c)

	require.Equal(t, http.StatusOK, w.Code)

	var updated models.TeamMember
	require.NoError(t, env.db.Where("team_id = ? AND user_id = ?", team.ID, member.ID).First(&updated).Error)
	require.Equal(t, models.RoleAdmin, updated.Role)
}
