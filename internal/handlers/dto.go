package handlers

import (
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ApprovalRequest struct {
	Approval models.ApprovalStatus `json:"approval_status"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

type AddMemberRequest struct {
	UserID uuid.UUID         `json:"user_id"`
	Role   models.MemberRole `json:"role"`
}

type CreateBoardRequest struct {
	Name string `json:"name"`
}

type CreateColumnRequest struct {
	Title  string         `json:"title"`
	Status *models.Status `json:"status,omitempty"`
	Color  string         `json:"color"`
}

type UpdateColumnRequest struct {
	Title    *string        `json:"title,omitempty"`
	Status   *models.Status `json:"status,omitempty"`
	Color    *string        `json:"color,omitempty"`
	Position *int           `json:"position,omitempty"`
}

type CreateTaskRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Priority    *models.Priority `json:"priority,omitempty"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	AssigneeIDs []uuid.UUID      `json:"assignee_ids,omitempty"`
}

// UpdateTaskRequest — частичное обновление: присутствующие поля
// применяются, отсутствующие не трогаются.
type UpdateTaskRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *models.Status   `json:"status,omitempty"`
	Priority    *models.Priority `json:"priority,omitempty"`
	ColumnID    *uuid.UUID       `json:"column_id,omitempty"`
	Position    *int             `json:"position,omitempty"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	IsArchived  *bool            `json:"is_archived,omitempty"`
	AssigneeIDs *[]uuid.UUID     `json:"assignee_ids,omitempty"`
}

// ReplaceTaskRequest — полная замена (PUT): отсутствующие поля
// принимают нулевые значения, пустой список исполнителей очищает их.
type ReplaceTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      models.Status   `json:"status,omitempty"`
	Priority    models.Priority `json:"priority,omitempty"`
	ColumnID    *uuid.UUID      `json:"column_id,omitempty"`
	Position    int             `json:"position"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	AssigneeIDs []uuid.UUID     `json:"assignee_ids"`
}

type ReorderRequest struct {
	Moves []ReorderMove `json:"moves"`
}

type ReorderMove struct {
	TaskID   uuid.UUID  `json:"task_id"`
	Position int        `json:"position"`
	ColumnID *uuid.UUID `json:"column_id,omitempty"`
}

type CreateCommentRequest struct {
	Body     string     `json:"body"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

type CreateAttachmentRequest struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}
