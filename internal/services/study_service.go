package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yukikurage/taskflow-api/internal/constants"
)

// StudyService produces AI study plans, one credit per plan.
type StudyService struct {
	planner StudyPlanner
	credits CreditSpender
}

// NewStudyService creates a StudyService. planner may be nil when AI is not configured.
func NewStudyService(planner StudyPlanner, credits CreditSpender) *StudyService {
	return &StudyService{planner: planner, credits: credits}
}

// GenerateStudyPlan validates the request, charges a credit and asks the model for a plan
func (s *StudyService) GenerateStudyPlan(ctx context.Context, userID uint64, topic string, days int) ([]StudyPlanItem, error) {
	if s.planner == nil {
		return nil, ErrAIServiceNotConfigured
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrStudyTopicRequired
	}
	if days < 1 || days > constants.MaxStudyPlanDays {
		return nil, ErrInvalidStudyPlanDays
	}

	if err := s.credits.Consume(userID); err != nil {
		return nil, err
	}

	plan, err := s.planner.GenerateStudyPlan(ctx, topic, days)
	if err != nil {
		return nil, fmt.Errorf("failed to generate study plan: %w", err)
	}
	if len(plan) == 0 {
		return nil, ErrAIEmptyResponse
	}
	if len(plan) > days {
		plan = plan[:days]
	}
	return plan, nil
}
