package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"golang.org/x/time/rate"
)

// MaintenanceRunner is the set of jobs the external scheduler can trigger
type MaintenanceRunner interface {
	ResetDailyTasks(ctx context.Context) (int64, error)
	ResetMonthlyCredits(ctx context.Context) (int, error)
}

// CronHandler exposes maintenance jobs to the external scheduler.
type CronHandler struct {
	maintenance MaintenanceRunner
	limiter     *rate.Limiter
}

// NewCronHandler creates a CronHandler. limiter may be nil to disable in-process throttling.
func NewCronHandler(maintenance MaintenanceRunner, limiter *rate.Limiter) *CronHandler {
	return &CronHandler{
		maintenance: maintenance,
		limiter:     limiter,
	}
}

// ResetDailyTasks runs the per-timezone reset once and reports how many tasks were reset
func (h *CronHandler) ResetDailyTasks(c *gin.Context) {
	if h.limiter != nil && !middleware.Allow(c, h.limiter) {
		return
	}

	result, err := h.maintenance.ResetDailyTasks(c.Request.Context())
	if err != nil {
		respondCronError(c, "reset-daily-tasks", err)
		return
	}

	log.Printf("[Cron] daily reset affected %d tasks", result)
	c.JSON(http.StatusOK, gin.H{
		"message": "Daily tasks reset",
		"result":  result,
	})
}

// ResetMonthlyCredits refills AI credits for paid plans
func (h *CronHandler) ResetMonthlyCredits(c *gin.Context) {
	if h.limiter != nil && !middleware.Allow(c, h.limiter) {
		return
	}

	result, err := h.maintenance.ResetMonthlyCredits(c.Request.Context())
	if err != nil {
		respondCronError(c, "reset-monthly-credits", err)
		return
	}

	log.Printf("[Cron] monthly credit reset processed %d users", result)
	c.JSON(http.StatusOK, gin.H{
		"message": "Monthly credits reset",
		"result":  result,
	})
}

func respondCronError(c *gin.Context, job string, err error) {
	var rateErr *repository.RateLimitError
	if errors.As(err, &rateErr) {
		log.Printf("[Cron] %s throttled by database: %v", job, err)
		apierrors.TooManyRequests(c, "Database is busy, retry later", rateErr.RetryAfter)
		return
	}

	log.Printf("[Cron] %s failed: %v", job, err)
	apierrors.InternalError(c, "")
}
