package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/constants"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

// RequireTaskAccess checks if the user has access to a task
// User must be a member of the task's team
func RequireTaskAccess(taskRepo repository.TaskRepository, teamRepo repository.TeamRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := taskRepo.FindByID(taskID)
		if err != nil {
			respondLookupError(c, err, "Task not found")
			return
		}

		if _, err := teamRepo.FindMember(task.TeamID, userID); err != nil {
			// Return 404 instead of 403 to avoid leaking task existence
			respondLookupError(c, err, "Task not found")
			return
		}

		c.Set(constants.ContextKeyTask, *task)
		c.Next()
	}
}
