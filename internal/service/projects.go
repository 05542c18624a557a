package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/logger"
	"taskboard/internal/models"
)

type CreateProjectInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

func (s *Service) CreateProject(ctx context.Context, userID uuid.UUID, in CreateProjectInput) (*models.Project, error) {
	if in.Name == "" {
		return nil, NewValidationError("name", "обязательное поле")
	}

	project := &models.Project{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
		CreatedBy:   userID,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, NewInternal(fmt.Errorf("создание проекта: %w", err))
	}

	// создатель сразу становится владельцем
	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    userID,
		Role:      models.MemberOwner,
	}
	if err := s.repo.AddProjectMember(ctx, member); err != nil {
		return nil, NewInternal(err)
	}

	// у каждого проекта есть доска по умолчанию со стандартными колонками
	board, err := s.createDefaultBoard(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	logger.Info("Service: проект создан",
		zap.String("project_id", project.ID.String()),
		zap.String("board_id", board.ID.String()))
	return project, nil
}

func (s *Service) createDefaultBoard(ctx context.Context, projectID uuid.UUID) (*models.Board, error) {
	board := &models.Board{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      "Основная доска",
		IsDefault: true,
	}
	if err := s.repo.CreateBoard(ctx, board); err != nil {
		return nil, NewInternal(fmt.Errorf("создание доски: %w", err))
	}

	defaults := []struct {
		title  string
		status models.Status
	}{
		{"К выполнению", models.StatusTodo},
		{"В работе", models.StatusInProgress},
		{"На проверке", models.StatusReview},
		{"Выполнено", models.StatusDone},
	}
	for i, d := range defaults {
		st := d.status
		col := &models.Column{
			ID:       uuid.New(),
			BoardID:  board.ID,
			Title:    d.title,
			Position: i,
			Status:   &st,
		}
		if err := s.repo.CreateColumn(ctx, col); err != nil {
			return nil, NewInternal(fmt.Errorf("создание колонки: %w", err))
		}
	}
	return board, nil
}

func (s *Service) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.repo.GetProjectByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceProject, projectID.String())
		}
		return nil, NewInternal(err)
	}
	if err := s.ensureProjectAccess(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	projects, err := s.repo.ListUserProjects(ctx, userID)
	if err != nil {
		return nil, NewInternal(err)
	}
	return projects, nil
}

func (s *Service) UpdateProject(ctx context.Context, userID uuid.UUID, project *models.Project) (*models.Project, error) {
	if project.Name == "" {
		return nil, NewValidationError("name", "обязательное поле")
	}
	if err := s.ensureProjectAccess(ctx, userID, project.ID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceProject, project.ID.String())
		}
		return nil, NewInternal(err)
	}
	return project, nil
}

// DeleteProject доступно только создателю, не любому участнику.
func (s *Service) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	project, err := s.repo.GetProjectByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceProject, projectID.String())
		}
		return NewInternal(err)
	}
	if project.CreatedBy != userID {
		return NewForbidden(ResourceProject, projectID.String())
	}
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		return NewInternal(err)
	}
	logger.Info("Service: проект удалён", zap.String("project_id", projectID.String()))
	return nil
}

func (s *Service) AddMember(ctx context.Context, userID, projectID, memberID uuid.UUID, role models.MemberRole) error {
	if err := s.ensureProjectAccess(ctx, userID, projectID); err != nil {
		return err
	}
	if _, err := s.repo.GetUserByID(ctx, memberID); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceUser, memberID.String())
		}
		return NewInternal(err)
	}
	if role == "" {
		role = models.MemberMember
	}
	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    memberID,
		Role:      role,
	}
	if err := s.repo.AddProjectMember(ctx, member); err != nil {
		return NewInternal(err)
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, userID, projectID uuid.UUID) ([]models.ProjectMember, error) {
	if err := s.ensureProjectAccess(ctx, userID, projectID); err != nil {
		return nil, err
	}
	members, err := s.repo.ListProjectMembers(ctx, projectID)
	if err != nil {
		return nil, NewInternal(err)
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, userID, projectID, memberID uuid.UUID) error {
	if err := s.ensureProjectAccess(ctx, userID, projectID); err != nil {
		return err
	}
	if err := s.repo.RemoveProjectMember(ctx, projectID, memberID); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceUser, memberID.String())
		}
		return NewInternal(err)
	}
	return nil
}
