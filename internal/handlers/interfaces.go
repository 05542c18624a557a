package handlers

import (
	"context"

	"github.com/google/uuid"

	"taskboard/internal/models"
	"taskboard/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.Session, *models.User, error)
	Logout(ctx context.Context, token string) error
	ApproveUser(ctx context.Context, adminID, userID uuid.UUID, approval models.ApprovalStatus) error
}

type ProjectService interface {
	CreateProject(ctx context.Context, userID uuid.UUID, in service.CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	UpdateProject(ctx context.Context, userID uuid.UUID, project *models.Project) (*models.Project, error)
	DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error
	AddMember(ctx context.Context, userID, projectID, memberID uuid.UUID, role models.MemberRole) error
	ListMembers(ctx context.Context, userID, projectID uuid.UUID) ([]models.ProjectMember, error)
	RemoveMember(ctx context.Context, userID, projectID, memberID uuid.UUID) error

	CreateBoard(ctx context.Context, userID, projectID uuid.UUID, name string) (*models.Board, error)
	ListBoards(ctx context.Context, userID, projectID uuid.UUID) ([]models.Board, error)
	GetBoard(ctx context.Context, userID, boardID uuid.UUID) (*models.Board, error)
	DeleteBoard(ctx context.Context, userID, boardID uuid.UUID) error
	CreateColumn(ctx context.Context, userID, boardID uuid.UUID, in service.CreateColumnInput) (*models.Column, error)
	ListColumns(ctx context.Context, userID, boardID uuid.UUID) ([]models.Column, error)
	UpdateColumn(ctx context.Context, userID, columnID uuid.UUID, in service.UpdateColumnInput) (*models.Column, error)
	DeleteColumn(ctx context.Context, userID, columnID uuid.UUID) error
}

type TaskService interface {
	ListColumnTasks(ctx context.Context, userID, columnID uuid.UUID) ([]models.Task, error)
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error)
	CreateTask(ctx context.Context, userID, columnID uuid.UUID, in service.CreateTaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, in service.UpdateTaskInput) (*models.Task, error)
	ToggleComplete(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
	ReorderTasks(ctx context.Context, userID uuid.UUID, moves []service.TaskPosition) error
	ListArchivedTasks(ctx context.Context, userID, boardID uuid.UUID) ([]models.Task, error)
	UnarchiveTask(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error)

	AddComment(ctx context.Context, userID, taskID uuid.UUID, body string, parentID *uuid.UUID) (*models.Comment, error)
	ListComments(ctx context.Context, userID, taskID uuid.UUID) ([]models.Comment, error)
	DeleteComment(ctx context.Context, userID, taskID, commentID uuid.UUID) error
	AddAttachment(ctx context.Context, userID, taskID uuid.UUID, fileName, mimeType string, fileSize int64) (*models.Attachment, error)
	ListAttachments(ctx context.Context, userID, taskID uuid.UUID) ([]models.Attachment, error)
	DeleteAttachment(ctx context.Context, userID, taskID, attachmentID uuid.UUID) error

	HealthCheck(ctx context.Context) error
}
