package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
	rep "taskboard/internal/repository"
)

// Repository — всё, что сервису нужно от хранилища.
// Реализуется postgres- и inmemory-адаптерами.
type Repository interface {
	HealthCheck(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetUserApproval(ctx context.Context, id uuid.UUID, approval models.ApprovalStatus) error
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionUser(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error

	CreateProject(ctx context.Context, project *models.Project) error
	GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListUserProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	AddProjectMember(ctx context.Context, member *models.ProjectMember) error
	ListProjectMembers(ctx context.Context, projectID uuid.UUID) ([]models.ProjectMember, error)
	RemoveProjectMember(ctx context.Context, projectID, userID uuid.UUID) error
	HasProjectAccess(ctx context.Context, userID, projectID uuid.UUID) (bool, error)

	CreateBoard(ctx context.Context, board *models.Board) error
	GetBoardByID(ctx context.Context, id uuid.UUID) (*models.Board, error)
	ListProjectBoards(ctx context.Context, projectID uuid.UUID) ([]models.Board, error)
	DeleteBoard(ctx context.Context, id uuid.UUID) error
	CreateColumn(ctx context.Context, column *models.Column) error
	GetColumnByID(ctx context.Context, id uuid.UUID) (*models.Column, error)
	ListBoardColumns(ctx context.Context, boardID uuid.UUID) ([]models.Column, error)
	UpdateColumn(ctx context.Context, column *models.Column) error
	DeleteColumn(ctx context.Context, id uuid.UUID) error
	GetColumnRef(ctx context.Context, columnID uuid.UUID) (*rep.ColumnRef, error)

	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetColumnTasks(ctx context.Context, columnID uuid.UUID) ([]models.Task, error)
	GetArchivedTasks(ctx context.Context, boardID uuid.UUID) ([]models.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, upd rep.TaskUpdate) (*models.Task, error)
	ArchiveTask(ctx context.Context, id uuid.UUID, at time.Time) error
	UnarchiveTask(ctx context.Context, id uuid.UUID) error
	DeleteTask(ctx context.Context, id uuid.UUID) error
	UpdateTaskPositions(ctx context.Context, moves []rep.PositionUpdate) error
	ReplaceAssignees(ctx context.Context, taskID uuid.UUID, userIDs []uuid.UUID) error
	GetAssignees(ctx context.Context, taskID uuid.UUID) ([]models.User, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	ListTaskComments(ctx context.Context, taskID uuid.UUID) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
	CreateAttachment(ctx context.Context, att *models.Attachment) error
	ListTaskAttachments(ctx context.Context, taskID uuid.UUID) ([]models.Attachment, error)
	DeleteAttachment(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo      Repository
	doneLimit int
}

func New(repo Repository, doneLimit int) *Service {
	return &Service{
		repo:      repo,
		doneLimit: doneLimit,
	}
}

func (s *Service) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func isNotFound(err error) bool {
	return errors.Is(err, rep.ErrNotFound)
}

// ensureColumnAccess находит проект колонки и проверяет доступ пользователя.
// Возвращает ссылку на колонку, чтобы вызывающий знал проект и доску.
func (s *Service) ensureColumnAccess(ctx context.Context, userID, columnID uuid.UUID) (*rep.ColumnRef, error) {
	ref, err := s.repo.GetColumnRef(ctx, columnID)
	if err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceColumn, columnID.String())
		}
		return nil, NewInternal(err)
	}
	ok, err := s.repo.HasProjectAccess(ctx, userID, ref.ProjectID)
	if err != nil {
		return nil, NewInternal(err)
	}
	if !ok {
		return nil, NewForbidden(ResourceColumn, columnID.String())
	}
	return ref, nil
}

func (s *Service) ensureProjectAccess(ctx context.Context, userID, projectID uuid.UUID) error {
	ok, err := s.repo.HasProjectAccess(ctx, userID, projectID)
	if err != nil {
		return NewInternal(err)
	}
	if !ok {
		return NewForbidden(ResourceProject, projectID.String())
	}
	return nil
}

// ensureTaskAccess загружает задачу и проверяет доступ к её проекту.
func (s *Service) ensureTaskAccess(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceTask, taskID.String())
		}
		return nil, NewInternal(err)
	}
	if err := s.ensureProjectAccess(ctx, userID, task.ProjectID); err != nil {
		return nil, err
	}
	return task, nil
}
