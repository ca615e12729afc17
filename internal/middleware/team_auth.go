package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/constants"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

// RequireTeamAccess checks if the user is a member of the team in the :id parameter
func RequireTeamAccess(teamRepo repository.TeamRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid team ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		team, err := teamRepo.FindByID(teamID)
		if err != nil {
			respondLookupError(c, err, "Team not found")
			return
		}

		member, err := teamRepo.FindMember(teamID, userID)
		if err != nil {
			// Return 404 instead of 403 to avoid leaking team existence
			respondLookupError(c, err, "Team not found")
			return
		}

		c.Set(constants.ContextKeyTeam, *team)
		c.Set(constants.ContextKeyMember, *member)
		c.Next()
	}
}

func respondLookupError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierrors.NotFound(c, notFound)
	} else {
		apierrors.InternalError(c, "")
	}
	c.Abort()
}
