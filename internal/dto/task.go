package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
}

// TaskAssignmentDTO represents a task assignment in API responses
type TaskAssignmentDTO struct {
	User         UserDTO   `json:"user"`
	AssignedByID uint64    `json:"assigned_by_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           uint64              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Status       models.TaskStatus   `json:"status"`
	DueDate      *time.Time          `json:"due_date"`
	DisplayOrder int                 `json:"display_order"`
	IsDaily      bool                `json:"is_daily"`
	CompletedAt  *time.Time          `json:"completed_at"`
	LastResetAt  *time.Time          `json:"last_reset_at"`
	CreatorID    uint64              `json:"creator_id"`
	TeamID       uint64              `json:"team_id"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Creator      *UserDTO            `json:"creator,omitempty"`
	Team         *TeamDTO            `json:"team,omitempty"`
	Assignments  []TaskAssignmentDTO `json:"assignments,omitempty"`
}

// TaskListItemDTO represents a task in list responses (minimal data)
type TaskListItemDTO struct {
	ID           uint64            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Status       models.TaskStatus `json:"status"`
	DueDate      *time.Time        `json:"due_date"`
	DisplayOrder int               `json:"display_order"`
	IsDaily      bool              `json:"is_daily"`
	CreatorID    uint64            `json:"creator_id"`
	TeamID       uint64            `json:"team_id"`
	Creator      *UserDTO          `json:"creator,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskListItemDTO `json:"tasks"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:    user.ID,
		Email: user.Email,
	}
}

// ToTeamDTO converts a Team model to TeamDTO
func ToTeamDTO(team models.Team, includeInviteCode bool) TeamDTO {
	dto := TeamDTO{
		ID:   team.ID,
		Name: team.Name,
	}
	if includeInviteCode {
		dto.InviteCode = team.InviteCode
	}
	return dto
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       task.Status,
		DueDate:      task.DueDate,
		DisplayOrder: task.DisplayOrder,
		IsDaily:      task.IsDaily,
		CompletedAt:  task.CompletedAt,
		LastResetAt:  task.LastResetAt,
		CreatorID:    task.CreatorID,
		TeamID:       task.TeamID,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}

	if task.Team.ID != 0 {
		team := ToTeamDTO(task.Team, false)
		dto.Team = &team
	}

	// Include assignments if preloaded
	if len(task.Assignments) > 0 {
		dto.Assignments = make([]TaskAssignmentDTO, len(task.Assignments))
		for i, assignment := range task.Assignments {
			dto.Assignments[i] = TaskAssignmentDTO{
				User:         ToUserDTO(assignment.User),
				AssignedByID: assignment.AssignedByID,
				AssignedAt:   assignment.AssignedAt,
			}
		}
	}

	return dto
}

// ToTaskListItemDTO converts a Task model to TaskListItemDTO
func ToTaskListItemDTO(task models.Task) TaskListItemDTO {
	dto := TaskListItemDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       task.Status,
		DueDate:      task.DueDate,
		DisplayOrder: task.DisplayOrder,
		IsDaily:      task.IsDaily,
		CreatorID:    task.CreatorID,
		TeamID:       task.TeamID,
		CreatedAt:    task.CreatedAt,
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskListItemDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskListItemDTO(task)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
