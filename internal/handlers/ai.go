package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type AIHandler struct {
	study *services.StudyService
}

func NewAIHandler(study *services.StudyService) *AIHandler {
	return &AIHandler{study: study}
}

// StudyPlan asks the model for a day-by-day plan on a topic
func (h *AIHandler) StudyPlan(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type StudyPlanRequest struct {
		Topic string `json:"topic" binding:"required"`
		Days  int    `json:"days"`
	}

	var req StudyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "topic is required")
		return
	}
	if req.Days == 0 {
		req.Days = 7
	}

	plan, err := h.study.GenerateStudyPlan(c.Request.Context(), userID, req.Topic, req.Days)
	if err != nil {
		respondAIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan})
}
