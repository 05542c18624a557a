package models

import (
	"time"

	"github.com/google/uuid"
)

type Status string
type Priority string
type UserRole string
type ApprovalStatus string
type MemberRole string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusDeferred   Status = "deferred"
	StatusBacklog    Status = "backlog"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleUser    UserRole = "user"
)

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

const (
	MemberOwner  MemberRole = "owner"
	MemberAdmin  MemberRole = "admin"
	MemberMember MemberRole = "member"
)

// ValidStatuses — статусы, которые принимаются на границе API.
var ValidStatuses = map[Status]struct{}{
	StatusTodo:       {},
	StatusInProgress: {},
	StatusReview:     {},
	StatusDone:       {},
	StatusDeferred:   {},
}

var ValidPriorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
	PriorityUrgent: {},
}

type User struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Email        string         `json:"email" db:"email"`
	Name         string         `json:"name" db:"name"`
	PasswordHash string         `json:"-" db:"password_hash"`
	Role         UserRole       `json:"role" db:"role"`
	Approval     ApprovalStatus `json:"approval_status" db:"approval_status"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty" db:"updated_at"`
}

type Session struct {
	Token     string    `json:"token" db:"token"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Project struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Color       string     `json:"color" db:"color"`
	Icon        string     `json:"icon" db:"icon"`
	CreatedBy   uuid.UUID  `json:"created_by" db:"created_by"`
	IsArchived  bool       `json:"is_archived" db:"is_archived"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ProjectMember — членство пользователя в проекте, уникально по паре проект+пользователь.
type ProjectMember struct {
	ProjectID uuid.UUID  `json:"project_id" db:"project_id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Role      MemberRole `json:"role" db:"role"`
	JoinedAt  time.Time  `json:"joined_at" db:"joined_at"`
}

type Board struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ProjectID uuid.UUID  `json:"project_id" db:"project_id"`
	Name      string     `json:"name" db:"name"`
	IsDefault bool       `json:"is_default" db:"is_default"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Column — колонка доски. Поле Status, если задано, однозначно определяет
// статус задач в колонке; иначе статус выводится из названия.
type Column struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	BoardID   uuid.UUID  `json:"board_id" db:"board_id"`
	Title     string     `json:"title" db:"title"`
	Position  int        `json:"position" db:"position"`
	Status    *Status    `json:"status,omitempty" db:"status"`
	Color     string     `json:"color" db:"color"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ProjectID   uuid.UUID  `json:"project_id" db:"project_id"`
	BoardID     uuid.UUID  `json:"board_id" db:"board_id"`
	ColumnID    *uuid.UUID `json:"column_id,omitempty" db:"column_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Priority    Priority   `json:"priority" db:"priority"`
	Status      Status     `json:"status" db:"status"`
	Position    int        `json:"position" db:"position"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	IsArchived  bool       `json:"is_archived" db:"is_archived"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	ReporterID  uuid.UUID  `json:"reporter_id" db:"reporter_id"`
	Tags        []string   `json:"tags,omitempty" db:"tags"`
	Assignees   []User     `json:"assignees,omitempty" db:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ActivityTime — время последней активности задачи. Используется лимитером
// колонки "Выполнено": updated_at, иначе created_at, иначе текущий момент,
// чтобы отсутствие меток времени никогда не приводило к ошибке.
func (t *Task) ActivityTime() time.Time {
	if t.UpdatedAt != nil && !t.UpdatedAt.IsZero() {
		return *t.UpdatedAt
	}
	if !t.CreatedAt.IsZero() {
		return t.CreatedAt
	}
	return time.Now()
}

type Comment struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TaskID    uuid.UUID  `json:"task_id" db:"task_id"`
	AuthorID  uuid.UUID  `json:"author_id" db:"author_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Body      string     `json:"body" db:"body"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

type Attachment struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TaskID     uuid.UUID `json:"task_id" db:"task_id"`
	UploadedBy uuid.UUID `json:"uploaded_by" db:"uploaded_by"`
	FileName   string    `json:"file_name" db:"file_name"`
	FileSize   int64     `json:"file_size" db:"file_size"`
	MimeType   string    `json:"mime_type" db:"mime_type"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
