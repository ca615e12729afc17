package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type CalendarHandler struct {
	reminders *services.ReminderService
}

func NewCalendarHandler(reminders *services.ReminderService) *CalendarHandler {
	return &CalendarHandler{reminders: reminders}
}

// ScheduleNotification queues a push for the moment a task falls due
func (h *CalendarHandler) ScheduleNotification(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type ScheduleRequest struct {
		TaskID    uint64    `json:"taskId" binding:"required"`
		TaskTitle string    `json:"taskTitle"`
		DueDate   time.Time `json:"dueDate" binding:"required"`
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "taskId and dueDate are required")
		return
	}

	scheduledFor, err := h.reminders.ScheduleDueReminder(c.Request.Context(), services.ScheduleReminderInput{
		UserID: userID,
		TaskID: req.TaskID,
		Title:  req.TaskTitle,
		DueAt:  req.DueDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidScheduleWindow):
			apierrors.InvalidScheduleWindow(c, "dueDate must be in the future and within the next 24 hours")
		case errors.Is(err, services.ErrTaskNotFound):
			apierrors.NotFound(c, err.Error())
		default:
			log.Printf("[Calendar] failed to schedule reminder for task %d: %v", req.TaskID, err)
			apierrors.InternalError(c, "Failed to schedule notification")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"scheduledFor": scheduledFor,
	})
}
