package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/taskflow-api/internal/constants"
)

var (
	ErrAIEmptyResponse      = errors.New("no response from AI provider")
	ErrStudyTopicRequired   = errors.New("study topic is required")
	ErrInvalidStudyPlanDays = errors.New("study plan days out of range")
)

// TaskGenerator extracts tasks from free text
type TaskGenerator interface {
	GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error)
}

// StudyPlanner builds day-by-day study plans
type StudyPlanner interface {
	GenerateStudyPlan(ctx context.Context, topic string, days int) ([]StudyPlanItem, error)
}

type AIService struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

type GeneratedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

type StudyPlanItem struct {
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewAIService creates a client for an OpenAI-compatible endpoint such as Groq
func NewAIService(apiKey, baseURL, model string) *AIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		now:    time.Now,
	}
}

// GenerateTasksFromText analyzes text and extracts tasks
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error) {
	currentTime := s.now().Format(time.RFC3339)
	prompt := fmt.Sprintf(`You are a task extraction assistant. Extract concrete tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of tasks in this shape:
[
  {
    "title": "short task title",
    "description": "task details",
    "due_date": "deadline in ISO8601 (e.g. 2025-10-28T23:59:59Z), or null when none is given"
  }
]

Rules:
- Return [] when the text contains no tasks
- Convert relative expressions ("tomorrow", "next week") to concrete dates
- due_date must be an ISO8601 string or null
- Return JSON only, no commentary
- Return at most %d tasks`, currentTime, text, constants.MaxAIGeneratedTasks)

	var tasks []GeneratedTask
	if err := s.complete(ctx, prompt, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GenerateStudyPlan asks the model for a plan with one entry per day
func (s *AIService) GenerateStudyPlan(ctx context.Context, topic string, days int) ([]StudyPlanItem, error) {
	prompt := fmt.Sprintf(`You are a study coach. Build a %d-day study plan for the topic below.

Topic:
%s

Return a JSON array with exactly one entry per day:
[
  {"day": 1, "title": "what to study", "description": "how to study it"}
]

Return JSON only, no commentary.`, days, topic)

	var plan []StudyPlanItem
	if err := s.complete(ctx, prompt, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *AIService) complete(ctx context.Context, prompt string, out interface{}) error {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return fmt.Errorf("AI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ErrAIEmptyResponse
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	return nil
}

// stripCodeFence removes a surrounding ```json fence some models add
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[i+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
